package giffiscript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fortio.org/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitReader serves imports named "<source>/<path>" from git checkouts.
//
// Each source is cloned once into CacheDir/<source>/<revision> and reused on
// later runs; an existing checkout directory is trusted as-is. Branch
// checkouts only move when Update is set.
type GitReader struct {
	CacheDir string
	Sources  map[string]*GitSource
	Update   bool // re-fetch branch checkouts that already exist

	checkouts map[string]string
}

// NewGitReader returns a reader over the given sources.
func NewGitReader(cacheDir string, sources map[string]*GitSource) *GitReader {
	return &GitReader{CacheDir: cacheDir, Sources: sources, checkouts: make(map[string]string)}
}

// ReadSource implements SourceReader.
func (g *GitReader) ReadSource(name string) (string, string, error) {
	source, rest, ok := strings.Cut(name, "/")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: %s (git imports look like <source>/<path>)", ErrModuleNotFound, name)
	}
	spec, ok := g.Sources[source]
	if !ok {
		return "", "", fmt.Errorf("%w: %s (no git source %q)", ErrModuleNotFound, name, source)
	}
	if !insideCheckout(rest) {
		return "", "", fmt.Errorf("%w: %s (path leaves the %s checkout)", ErrModuleNotFound, name, source)
	}
	dir, err := g.Checkout(source)
	if err != nil {
		return "", "", err
	}
	root := filepath.Join(dir, filepath.FromSlash(spec.Dir))
	return (&DirReader{Base: root}).ReadSource(rest)
}

// Checkout makes sure the named source is available locally and returns its
// directory.
func (g *GitReader) Checkout(source string) (string, error) {
	if dir, ok := g.checkouts[source]; ok {
		return dir, nil
	}
	spec, ok := g.Sources[source]
	if !ok || spec == nil {
		return "", fmt.Errorf("git source %q is not declared", source)
	}
	dir, err := ensureGitCheckout(filepath.Join(g.CacheDir, sanitizePathSegment(source)), spec, g.Update)
	if err != nil {
		return "", fmt.Errorf("git source %s: %w", source, err)
	}
	if g.checkouts == nil {
		g.checkouts = make(map[string]string)
	}
	g.checkouts[source] = dir
	return dir, nil
}

// FetchAll checks out every declared source, in name order, and returns
// their directories.
func (g *GitReader) FetchAll() ([]string, error) {
	names := make([]string, 0, len(g.Sources))
	for name := range g.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	dirs := make([]string, 0, len(names))
	for _, name := range names {
		dir, err := g.Checkout(name)
		if err != nil {
			return dirs, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// insideCheckout reports whether rel, joined to a checkout directory, stays
// inside it.
func insideCheckout(rel string) bool {
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	return clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

func ensureGitCheckout(baseDir string, spec *GitSource, update bool) (string, error) {
	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", err
	}
	targetDir := filepath.Join(baseDir, sanitizePathSegment(descriptor))
	if _, err := os.Stat(targetDir); err == nil {
		if !update || strings.TrimSpace(spec.Branch) == "" {
			log.Debugf("git checkout cache hit: %s", targetDir)
			return targetDir, nil
		}
		if err := os.RemoveAll(targetDir); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", err
	}

	log.Infof("cloning %s (%s)", spec.Git, descriptor)
	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL:               spec.Git,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", err
	}
	log.Infof("checked out %s at %s into %s", spec.Git, hash, targetDir)
	return targetDir, nil
}

func gitRevisionFromSpec(spec *GitSource) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		// clones only create remote-tracking refs for branches other than HEAD
		return plumbing.Revision("refs/remotes/origin/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git sources require rev, tag, or branch")
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if out := b.String(); out != "." && out != ".." {
		return out
	}
	return strings.Repeat("_", len(segment))
}
