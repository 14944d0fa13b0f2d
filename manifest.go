package giffiscript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fortio.org/log"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the conventional project manifest name.
const ManifestFile = "giffi.yml"

// DefaultCacheDir is where git sources are checked out, relative to the
// manifest directory.
const DefaultCacheDir = ".giffi/cache"

// Manifest is the parsed contents of giffi.yml.
type Manifest struct {
	Path             string // absolute path of the manifest file
	Dir              string // directory containing the manifest
	Name             string
	Main             string
	Paths            []string
	LogLevel         string
	MaxDepth         int
	BlockLocalReturn bool
	CacheDir         string
	Sources          map[string]*GitSource
}

// GitSource declares a git repository whose files can be imported as
// "<source name>/<path>". Exactly one of Rev, Tag or Branch selects the
// revision.
type GitSource struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Dir    string `yaml:"dir,omitempty"` // subdirectory holding the modules
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name             string                `yaml:"name"`
	Main             string                `yaml:"main"`
	Paths            []string              `yaml:"paths"`
	LogLevel         string                `yaml:"log_level"`
	MaxDepth         int                   `yaml:"max_depth"`
	BlockLocalReturn bool                  `yaml:"block_local_return"`
	CacheDir         string                `yaml:"cache_dir"`
	Sources          map[string]*GitSource `yaml:"sources"`
}

// LoadManifest parses and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	m, err := ParseManifest(file)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", absPath, err)
	}
	m.Path = absPath
	m.Dir = filepath.Dir(absPath)
	log.Infof("loaded manifest %s (project %q)", absPath, m.Name)
	return m, nil
}

// ParseManifest decodes and validates a manifest from r. Path and Dir are
// left empty.
func ParseManifest(r io.Reader) (*Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty manifest")
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	m := &Manifest{
		Name:             strings.TrimSpace(raw.Name),
		Main:             strings.TrimSpace(raw.Main),
		Paths:            raw.Paths,
		LogLevel:         strings.TrimSpace(raw.LogLevel),
		MaxDepth:         raw.MaxDepth,
		BlockLocalReturn: raw.BlockLocalReturn,
		CacheDir:         strings.TrimSpace(raw.CacheDir),
		Sources:          raw.Sources,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// FindManifest walks up from start looking for giffi.yml. ok is false when
// none is found before the file-system root.
func FindManifest(start string) (path string, ok bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ManifestFile)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// MainPath returns the absolute path of the entry script, or "".
func (m *Manifest) MainPath() string {
	if m.Main == "" {
		return ""
	}
	if filepath.IsAbs(m.Main) {
		return m.Main
	}
	return filepath.Join(m.Dir, m.Main)
}

// CachePath returns the directory git sources are checked out into.
func (m *Manifest) CachePath() string {
	dir := m.CacheDir
	if dir == "" {
		dir = DefaultCacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Dir, dir)
}

// SourceNames returns the declared git source names, sorted.
func (m *Manifest) SourceNames() []string {
	names := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reader builds the import reader the manifest describes: the manifest
// directory and its search paths, then the git sources.
func (m *Manifest) Reader() SourceReader {
	dirs := NewDirReader(m.Dir, m.Paths...)
	if len(m.Sources) == 0 {
		return dirs
	}
	return ChainReader{dirs, NewGitReader(m.CachePath(), m.Sources)}
}

// Options converts the manifest into interpreter options.
func (m *Manifest) Options() []Option {
	opts := []Option{
		WithReader(m.Reader()),
		WithBlockLocalReturn(m.BlockLocalReturn),
	}
	if m.MaxDepth > 0 {
		opts = append(opts, WithMaxDepth(m.MaxDepth))
	}
	return opts
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Main != "" && filepath.Ext(m.Main) != SourceExt {
		errs.Issues = append(errs.Issues, fmt.Sprintf("main %q must be a %s file", m.Main, SourceExt))
	}
	for i, p := range m.Paths {
		if strings.TrimSpace(p) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("paths[%d] must be a non-empty string", i))
		}
	}
	if m.LogLevel != "" {
		if _, err := log.ValidateLevel(m.LogLevel); err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("log_level: %v", err))
		}
	}
	if m.MaxDepth < 0 {
		errs.Issues = append(errs.Issues, "max_depth must not be negative")
	}
	for _, name := range m.SourceNames() {
		src := m.Sources[name]
		if src == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("sources.%s must not be empty", name))
			continue
		}
		for _, issue := range src.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("sources.%s: %s", name, issue))
		}
		if strings.ContainsAny(name, `/\`) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("sources.%s: name must not contain a path separator", name))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (s *GitSource) validate() []string {
	var issues []string
	if strings.TrimSpace(s.Git) == "" {
		issues = append(issues, "git url must be provided")
	}
	selectors := 0
	for _, v := range []string{s.Rev, s.Tag, s.Branch} {
		if strings.TrimSpace(v) != "" {
			selectors++
		}
	}
	if selectors != 1 {
		issues = append(issues, "exactly one of rev, tag or branch is required")
	}
	if filepath.IsAbs(s.Dir) || strings.HasPrefix(filepath.Clean(s.Dir), "..") {
		issues = append(issues, fmt.Sprintf("dir %q must stay inside the repository", s.Dir))
	}
	return issues
}
