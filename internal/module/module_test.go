package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/buzzlang/buzz/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeFile(%s): %v", path, err)
	}
	return path
}

func TestResolverPrefersPathRelativeToImportingFile(t *testing.T) {
	dir := t.TempDir()
	libDir := t.TempDir()

	writeFile(t, dir, "util.buzz", "")
	writeFile(t, libDir, "util.buzz", "")

	fromFile := filepath.Join(dir, "main.buzz")
	r := NewResolver(nil, libDir)

	got, err := r.Resolve("util.buzz", fromFile)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want, _ := filepath.Abs(filepath.Join(dir, "util.buzz"))
	if got != want {
		t.Errorf("Resolve() = %q, want %q (relative-to-file should win over library dir)", got, want)
	}
}

func TestResolverFallsBackToLibPathsThenLibraryDir(t *testing.T) {
	libA := t.TempDir()
	libB := t.TempDir()
	libraryDir := t.TempDir()
	writeFile(t, libB, "helper.buzz", "")
	writeFile(t, libraryDir, "helper.buzz", "")
	writeFile(t, libraryDir, "builtin.buzz", "")

	r := NewResolver([]string{libA, libB}, libraryDir)
	got, err := r.Resolve("helper.buzz", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want, _ := filepath.Abs(filepath.Join(libB, "helper.buzz"))
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
	got, err = r.Resolve("builtin.buzz", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want, _ = filepath.Abs(filepath.Join(libraryDir, "builtin.buzz"))
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolverAbsolutePathSkipsSearch(t *testing.T) {
	dir := t.TempDir()
	abs := writeFile(t, dir, "script.buzz", "")

	r := NewResolver([]string{t.TempDir()}, "")
	got, err := r.Resolve(abs, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want, _ := filepath.Abs(abs)
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolverMissingFileErrors(t *testing.T) {
	r := NewResolver(nil, "")
	if _, err := r.Resolve("nope.buzz", ""); err == nil {
		t.Error("Resolve() of a nonexistent module = nil error, want an error")
	}
}

func TestCacheCompilesUnitOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.buzz", "int x = 1;")

	reg := types.NewRegistry()
	r := NewResolver(nil, "")
	c := NewCache(r, reg)

	main := filepath.Join(dir, "main.buzz")
	prog1, _, err := c.Import("a.buzz", main)
	if err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	prog2, _, err := c.Import("a.buzz", main)
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if prog1 != prog2 {
		t.Error("Import() recompiled an already-cached unit; want the identical *ast.Program")
	}
}

func TestCacheReportsImportCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.buzz", `import "b.buzz";`)
	writeFile(t, dir, "b.buzz", `import "a.buzz";`)

	reg := types.NewRegistry()
	r := NewResolver(nil, "")
	c := NewCache(r, reg)

	_, _, err := c.Import("a.buzz", filepath.Join(dir, "main.buzz"))
	if err == nil {
		t.Fatalf("Import() of a cyclic pair = nil error, want a cycle error (a.buzz path: %s)", aPath)
	}
}
