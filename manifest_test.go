package giffiscript

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const fullManifest = `
name: demo
main: src/main.giffi
paths: [lib, vendor]
log_level: debug
max_depth: 200
block_local_return: true
cache_dir: /var/cache/giffi
sources:
  std:
    git: https://example.com/giffi/std.git
    tag: v1.0.0
    dir: modules
  extra:
    git: https://example.com/giffi/extra.git
    branch: main
`

func parseManifest(t *testing.T, text string) *Manifest {
	t.Helper()
	m, err := ParseManifest(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseManifest: %v\n%s", err, text)
	}
	return m
}

func Test_Manifest_Parse_AllFields(t *testing.T) {
	m := parseManifest(t, fullManifest)
	if m.Name != "demo" || m.Main != "src/main.giffi" || m.LogLevel != "debug" {
		t.Fatalf("scalars: %+v", m)
	}
	if strings.Join(m.Paths, ",") != "lib,vendor" {
		t.Fatalf("paths: %v", m.Paths)
	}
	if m.MaxDepth != 200 || !m.BlockLocalReturn || m.CacheDir != "/var/cache/giffi" {
		t.Fatalf("runtime settings: %+v", m)
	}
	std := m.Sources["std"]
	if std == nil || std.Git != "https://example.com/giffi/std.git" || std.Tag != "v1.0.0" || std.Dir != "modules" {
		t.Fatalf("std source: %+v", std)
	}
	if got := strings.Join(m.SourceNames(), ","); got != "extra,std" {
		t.Fatalf("source names: %s", got)
	}
}

func Test_Manifest_UnknownField(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("name: demo\nmian: typo.giffi\n"))
	if err == nil || !strings.Contains(err.Error(), "mian") {
		t.Fatalf("unknown field should be rejected, got %v", err)
	}
}

func Test_Manifest_Empty(t *testing.T) {
	_, err := ParseManifest(strings.NewReader(""))
	if err == nil || !strings.Contains(err.Error(), "empty manifest") {
		t.Fatalf("want empty manifest error, got %v", err)
	}
}

func Test_Manifest_Validation(t *testing.T) {
	_, err := ParseManifest(strings.NewReader(`
main: main.txt
paths: ["", ok]
log_level: loud
max_depth: -1
sources:
  bad:
    rev: abc
    branch: main
    dir: ../outside
`))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want *ValidationError, got %v", err)
	}
	msg := ve.Error()
	for _, want := range []string{
		"name must be provided",
		`main "main.txt" must be a .giffi file`,
		"paths[0] must be a non-empty string",
		"log_level:",
		"max_depth must not be negative",
		"sources.bad: git url must be provided",
		"sources.bad: exactly one of rev, tag or branch is required",
		`sources.bad: dir "../outside" must stay inside the repository`,
	} {
		mustContain(t, msg, want)
	}
	if len(ve.Issues) != 8 {
		t.Fatalf("want 8 issues, got %d:\n%s", len(ve.Issues), msg)
	}
}

func Test_Manifest_SourceName_NoSeparator(t *testing.T) {
	_, err := ParseManifest(strings.NewReader(`
name: demo
sources:
  a/b:
    git: https://example.com/x.git
    rev: abc
`))
	if err == nil || !strings.Contains(err.Error(), "path separator") {
		t.Fatalf("want separator issue, got %v", err)
	}
}

func Test_Manifest_Load_And_Find(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFile), "name: demo\nmain: src/main.giffi\n")
	nested := filepath.Join(root, "src", "deep")
	writeFile(t, filepath.Join(nested, "x.giffi"), "1;")

	path, ok := FindManifest(nested)
	if !ok || path != filepath.Join(root, ManifestFile) {
		t.Fatalf("FindManifest from %s: %s %v", nested, path, ok)
	}
	if p, ok := FindManifest(filepath.Join(nested, "x.giffi")); !ok || p != path {
		t.Fatalf("FindManifest from a file: %s %v", p, ok)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Dir != root || m.Path != path {
		t.Fatalf("location: dir=%s path=%s", m.Dir, m.Path)
	}
	if got := m.MainPath(); got != filepath.Join(root, "src", "main.giffi") {
		t.Fatalf("MainPath: %s", got)
	}
	if got := m.CachePath(); got != filepath.Join(root, ".giffi", "cache") {
		t.Fatalf("CachePath: %s", got)
	}
}

func Test_Manifest_Load_Missing(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), ManifestFile)); err == nil {
		t.Fatalf("missing manifest should fail")
	}
	if _, err := LoadManifest(""); err == nil {
		t.Fatalf("empty path should fail")
	}
}

func Test_Manifest_Reader_Kinds(t *testing.T) {
	m := parseManifest(t, "name: demo\n")
	if _, ok := m.Reader().(*DirReader); !ok {
		t.Fatalf("without sources the reader is a DirReader, got %T", m.Reader())
	}
	m = parseManifest(t, fullManifest)
	chain, ok := m.Reader().(ChainReader)
	if !ok || len(chain) != 2 {
		t.Fatalf("with sources the reader chains dirs and git, got %T", m.Reader())
	}
	if g, ok := chain[1].(*GitReader); !ok || g.CacheDir != "/var/cache/giffi" {
		t.Fatalf("git reader: %+v", chain[1])
	}
}

func Test_Manifest_Options_Apply(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFile), `
name: demo
paths: [lib]
max_depth: 20
block_local_return: true
`)
	writeFile(t, filepath.Join(root, "lib", "helper.giffi"), "fn answer() { return 42; }")
	m, err := LoadManifest(filepath.Join(root, ManifestFile))
	if err != nil {
		t.Fatal(err)
	}

	ip, _ := newTestInterpreter(m.Options()...)
	wantInt(t, mustEvalPersistent(t, ip, "import helper; answer()"), 42)
	wantInt(t, mustEvalPersistent(t, ip, "fn f() { if true { return 1; } return 2; } f()"), 2)
	if _, err := ip.RunLine("fn down(n) { return down(n + 1); } down(0)"); !IsKind(err, StackOverflow) {
		t.Fatalf("max_depth should bound recursion, got %v", err)
	}
}
