package giffiscript

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

func readOK(t *testing.T, r SourceReader, name string) (string, string) {
	t.Helper()
	src, display, err := r.ReadSource(name)
	if err != nil {
		t.Fatalf("ReadSource(%q): %v", name, err)
	}
	return src, display
}

func Test_Modules_DirReader_SearchOrder(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "util.giffi"), "// base util")
	writeFile(t, filepath.Join(base, "lib", "util.giffi"), "// lib util")
	writeFile(t, filepath.Join(base, "lib", "other.giffi"), "// lib other")
	writeFile(t, filepath.Join(base, "notes.txt"), "// exact name")

	r := &DirReader{Base: base, Paths: []string{"lib"}}
	if src, display := readOK(t, r, "util"); src != "// base util\n" || display != filepath.Join(base, "util.giffi") {
		t.Fatalf("base dir should win: %q from %s", src, display)
	}
	if src, _ := readOK(t, r, "other"); src != "// lib other\n" {
		t.Fatalf("search path not used: %q", src)
	}
	if src, _ := readOK(t, r, "notes.txt"); src != "// exact name\n" {
		t.Fatalf("exact name not tried: %q", src)
	}
	if src, _ := readOK(t, r, "util.giffi"); src != "// base util\n" {
		t.Fatalf("explicit extension: %q", src)
	}
}

func Test_Modules_DirReader_SkipsDirectories(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(base, "pkg.giffi"), "let pkg = 1;")
	if _, display := readOK(t, &DirReader{Base: base}, "pkg"); display != filepath.Join(base, "pkg.giffi") {
		t.Fatalf("directory should be skipped, got %s", display)
	}
}

func Test_Modules_DirReader_NotFound(t *testing.T) {
	base := t.TempDir()
	_, _, err := (&DirReader{Base: base}).ReadSource("missing")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("want ErrModuleNotFound, got %v", err)
	}
	mustContain(t, err.Error(), "searched "+base)
}

func Test_Modules_DirReader_AbsoluteName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.giffi")
	writeFile(t, path, "let abs = 1;")
	if _, display := readOK(t, &DirReader{Base: t.TempDir()}, strings.TrimSuffix(path, SourceExt)); display != path {
		t.Fatalf("absolute name resolved to %s", display)
	}
}

func Test_Modules_DirReader_PathEnv(t *testing.T) {
	base := t.TempDir()
	envDir := t.TempDir()
	writeFile(t, filepath.Join(envDir, "shared.giffi"), "let shared = 1;")
	t.Setenv(PathEnv, envDir)

	if _, _, err := (&DirReader{Base: base}).ReadSource("shared"); err == nil {
		t.Fatalf("GIFFIPATH should be ignored without UseEnv")
	}
	r := NewDirReader(base, "lib")
	readOK(t, r, "shared")

	roots := r.Roots()
	want := []string{base, filepath.Join(base, "lib"), envDir}
	if strings.Join(roots, "|") != strings.Join(want, "|") {
		t.Fatalf("roots: want %v, got %v", want, roots)
	}
}

func Test_Modules_DirReader_DefaultBase(t *testing.T) {
	if roots := (&DirReader{}).Roots(); len(roots) != 1 || roots[0] != "." {
		t.Fatalf("empty base should search the working directory, got %v", roots)
	}
}

func Test_Modules_ChainReader(t *testing.T) {
	first := memReader{"a": "let a = 1;"}
	second := memReader{"a": "let a = 2;", "b": "let b = 2;"}
	chain := ChainReader{nil, first, second}

	if src, _ := readOK(t, chain, "a"); src != "let a = 1;" {
		t.Fatalf("first reader should win, got %q", src)
	}
	if src, _ := readOK(t, chain, "b"); src != "let b = 2;" {
		t.Fatalf("fallback failed, got %q", src)
	}
	_, _, err := chain.ReadSource("c")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("want ErrModuleNotFound, got %v", err)
	}
	if _, _, err := (ChainReader{}).ReadSource("c"); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("empty chain: want ErrModuleNotFound, got %v", err)
	}
}

func Test_Modules_Import_FromDisk(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "lib", "geometry.giffi"), `
import "lib/helpers";
fn area(w, h) { return mul(w, h); }
`)
	writeFile(t, filepath.Join(base, "lib", "helpers.giffi"), `
fn mul(a, b) { return a * b; }
`)
	ip, _ := newTestInterpreter(WithReader(NewDirReader(base)))
	wantInt(t, mustEvalPersistent(t, ip, `import "lib/geometry"; area(3, 4)`), 12)

	f, ok := ip.Function("mul")
	if !ok || f.Source != filepath.Join(base, "lib", "helpers.giffi") {
		t.Fatalf("mul should come from helpers.giffi, got %+v", f)
	}
	for _, name := range []string{"lib/geometry", "lib/helpers"} {
		if !ip.Imported(name) {
			t.Fatalf("%s should be marked imported", name)
		}
	}
}

func Test_Modules_Import_Cycle_Terminates(t *testing.T) {
	reader := memReader{
		"a": "import b; let fromA = 1;",
		"b": "import a; let fromB = 2;",
	}
	ip, _ := newTestInterpreter(WithReader(reader))
	v := mustEvalPersistent(t, ip, "import a; [fromA, fromB]")
	wantValue(t, v, ints(1, 2))
}

func Test_Modules_Import_FromGo(t *testing.T) {
	ip, _ := newTestInterpreter()
	if err := ip.Import("math"); err != nil {
		t.Fatal(err)
	}
	if err := ip.Import("math"); err != nil {
		t.Fatalf("second import should be a no-op: %v", err)
	}
	wantInt(t, mustEvalPersistent(t, ip, "pow(3, 2)"), 9)
	if err := ip.Import("nowhere"); !IsKind(err, ImportError) {
		t.Fatalf("want ImportError, got %v", err)
	}
}

func Test_Modules_NativeModule_PlainErrorBecomesImportError(t *testing.T) {
	ip, _ := newTestInterpreter(WithNativeModule("broken", func(*Interpreter) error {
		return errors.New("driver missing")
	}))
	_, err := ip.RunLine("import broken;")
	if !IsKind(err, ImportError) {
		t.Fatalf("want ImportError, got %v", err)
	}
	mustContain(t, err.Error(), "driver missing")
}
