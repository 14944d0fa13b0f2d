// modules.go: import resolution (public API + private implementation)
//
// OVERVIEW
// --------
// `import "name";` is resolved in two steps:
//
//  1. Reserved native modules. Names registered with RegisterNativeModule
//     (io, math, time and array out of the box) run their Go entry point,
//     which usually defines a handful of native functions.
//  2. Source modules. Any other name is handed to the interpreter's
//     SourceReader, and the returned text goes through the whole pipeline
//     (tokenize, parse, execute) in the importing interpreter's current
//     state: functions and top-level variables it declares become visible to
//     the importer.
//
// Every name is imported at most once per interpreter; a repeated import is a
// no-op. A name is marked as imported before its code runs, so import cycles
// terminate.
//
// READERS
// -------
//   - DirReader resolves a name against a base directory and then each search
//     path (plus the GIFFIPATH environment variable). For every directory it
//     tries `name` and then `name + ".giffi"`.
//   - GitReader (gitsource.go) serves names of the form "source/rest" from git
//     checkouts declared in the project manifest.
//   - ChainReader asks several readers in order; the first success wins.
//
// Error semantics:
//   - Read failures are ImportError values naming the module.
//   - Lexical, parse and runtime errors inside the imported text keep their
//     own kind and carry the module's display name.
package giffiscript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/log"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// SourceExt is the conventional extension of GiffiScript source files.
const SourceExt = ".giffi"

// PathEnv names the environment variable with extra import roots
// (os.PathListSeparator separated).
const PathEnv = "GIFFIPATH"

// ErrModuleNotFound is wrapped by readers that could not find a module.
var ErrModuleNotFound = errors.New("module not found")

// SourceReader provides the text of a source module. display is a
// human-readable identity (usually a path) used in diagnostics.
type SourceReader interface {
	ReadSource(name string) (src, display string, err error)
}

// DirReader reads modules from the file system.
type DirReader struct {
	Base  string   // first directory searched; "" means the working directory
	Paths []string // further roots; relative entries are taken from Base
	// UseEnv adds the roots listed in GIFFIPATH after Paths.
	UseEnv bool
}

// NewDirReader returns a reader rooted at base that also honours GIFFIPATH.
func NewDirReader(base string, paths ...string) *DirReader {
	return &DirReader{Base: base, Paths: paths, UseEnv: true}
}

// ReadSource implements SourceReader.
func (r *DirReader) ReadSource(name string) (string, string, error) {
	path, err := r.resolve(name)
	if err != nil {
		return "", "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), path, nil
}

// Roots returns the directories searched, in order.
func (r *DirReader) Roots() []string {
	base := r.Base
	if base == "" {
		base = "."
	}
	roots := []string{base}
	for _, p := range r.Paths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		roots = append(roots, p)
	}
	if r.UseEnv {
		for _, p := range filepath.SplitList(os.Getenv(PathEnv)) {
			if p != "" {
				roots = append(roots, p)
			}
		}
	}
	return roots
}

// ChainReader tries each reader in order and returns the first success.
type ChainReader []SourceReader

// ReadSource implements SourceReader.
func (c ChainReader) ReadSource(name string) (string, string, error) {
	var errs []error
	for _, r := range c {
		if r == nil {
			continue
		}
		src, display, err := r.ReadSource(name)
		if err == nil {
			return src, display, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", "", fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return "", "", errors.Join(errs...)
}

// Imported reports whether name has already been imported.
func (ip *Interpreter) Imported(name string) bool { return ip.imported[name] }

// Import runs `import name;` from Go.
func (ip *Interpreter) Import(name string) error {
	ip.unwindFailed()
	if err := ip.importModule(name); err != nil {
		ip.failed = true
		return err
	}
	return nil
}

//// END_OF_PUBLIC

func (r *DirReader) resolve(name string) (string, error) {
	try := func(dir string) (string, bool) {
		cands := []string{filepath.Join(dir, name)}
		if filepath.Ext(name) != SourceExt {
			cands = append(cands, filepath.Join(dir, name)+SourceExt)
		}
		for _, c := range cands {
			if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
				return filepath.Clean(c), true
			}
		}
		return "", false
	}

	if filepath.IsAbs(name) {
		if p, ok := try(""); ok {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	roots := r.Roots()
	for _, root := range roots {
		if p, ok := try(root); ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrModuleNotFound, name, strings.Join(roots, ", "))
}

func (ip *Interpreter) importModule(name string) error {
	if ip.imported[name] {
		log.Debugf("import %s: already imported", name)
		return nil
	}

	if entry, ok := ip.modules[name]; ok {
		ip.imported[name] = true
		log.Debugf("import %s: native module", name)
		if err := entry(ip); err != nil {
			if _, ok := err.(*Error); ok {
				return err
			}
			return rtErr(ImportError, "native module '%s': %v", name, err)
		}
		return nil
	}

	if ip.reader == nil {
		return rtErr(ImportError, "cannot import '%s': no source reader configured", name)
	}
	src, display, err := ip.reader.ReadSource(name)
	if err != nil {
		return rtErr(ImportError, "cannot import '%s': %v", name, err)
	}
	log.Debugf("import %s: %s", name, display)

	instrs, err := ParseSource(src)
	if err != nil {
		return withName(err, display)
	}

	ip.imported[name] = true
	prev := ip.srcName
	ip.srcName = display
	defer func() { ip.srcName = prev }()

	base := len(ip.stack)
	if _, err := ip.exec(instrs); err != nil {
		return err
	}
	ip.collect(base)
	return nil
}
