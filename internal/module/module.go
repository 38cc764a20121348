// Package module resolves and caches Buzz compilation units pulled in by
// `import` statements, grounded on the teacher's internal/units package
// (search-path walk, cache-by-canonical-path) and spec.md §6 "Module
// resolution".
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/parser"
	"github.com/buzzlang/buzz/internal/types"
)

// Resolver implements spec.md §6's search order for an `import "x"`: the
// path as given (if absolute), relative to the importing file, each -L
// directory, each BUZZ_PATH entry, then the built-in library directory.
type Resolver struct {
	LibPaths    []string // -L flags, in order given
	LibraryDir  string    // built-in library directory, tried last
}

// NewResolver builds a Resolver seeded from BUZZ_PATH (colon-separated) and
// any -L directories the caller already collected.
func NewResolver(libPaths []string, libraryDir string) *Resolver {
	r := &Resolver{LibraryDir: libraryDir}
	r.LibPaths = append(r.LibPaths, libPaths...)
	if env := os.Getenv("BUZZ_PATH"); env != "" {
		r.LibPaths = append(r.LibPaths, strings.Split(env, ":")...)
	}
	return r
}

// Resolve finds the file `path` names, searched relative to fromFile first
// and then through every configured search directory, returning its
// canonical (absolute, symlink-resolved where possible) form.
func (r *Resolver) Resolve(path, fromFile string) (string, error) {
	candidates := make([]string, 0, len(r.LibPaths)+3)
	if filepath.IsAbs(path) {
		candidates = append(candidates, path)
	} else {
		if fromFile != "" {
			candidates = append(candidates, filepath.Join(filepath.Dir(fromFile), path))
		}
		for _, lp := range r.LibPaths {
			candidates = append(candidates, filepath.Join(lp, path))
		}
		if r.LibraryDir != "" {
			candidates = append(candidates, filepath.Join(r.LibraryDir, path))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs, nil
			}
			return c, nil
		}
	}
	return "", fmt.Errorf("module: cannot find %q (searched %d candidates)", path, len(candidates))
}

// entry is one compiled unit, cached so a module with more than one
// importer compiles exactly once per process (spec.md §4.2).
type entry struct {
	program *ast.Program
	err     error
}

// Cache compiles and caches units by canonical file path, and is the
// concrete parser.Importer every parse in this process shares. Every
// cached unit resolves its own types against the same *types.Registry, so
// a type declared in one module is the identical TypeDef pointer wherever
// another module references it (spec.md §3 invariant on interning).
type Cache struct {
	resolver *Resolver
	registry *types.Registry
	units    map[string]*entry
	inFlight map[string]bool
}

// NewCache creates an empty Cache resolving paths with r and registering
// every unit's types against registry.
func NewCache(r *Resolver, registry *types.Registry) *Cache {
	return &Cache{
		resolver: r,
		registry: registry,
		units:    make(map[string]*entry),
		inFlight: make(map[string]bool),
	}
}

// Import satisfies parser.Importer: resolve path against fromFile, compile
// it (once) against the Cache's shared registry, and report any diagnostic
// the unit produced as a single error.
func (c *Cache) Import(path, fromFile string) (*ast.Program, *types.Registry, error) {
	canonical, err := c.resolver.Resolve(path, fromFile)
	if err != nil {
		return nil, nil, err
	}

	if e, ok := c.units[canonical]; ok {
		return e.program, c.registry, e.err
	}

	if c.inFlight[canonical] {
		return nil, nil, fmt.Errorf("module: import cycle detected at %q", canonical)
	}
	c.inFlight[canonical] = true
	defer delete(c.inFlight, canonical)

	src, readErr := os.ReadFile(canonical)
	if readErr != nil {
		e := &entry{err: fmt.Errorf("module: %w", readErr)}
		c.units[canonical] = e
		return nil, nil, e.err
	}

	diags := errors.NewDiagnostics(string(src), canonical)
	prog := parser.ParseSource(string(src), canonical, c.registry, diags, c)

	var unitErr error
	if diags.HasErrors() {
		unitErr = diags
	}
	c.units[canonical] = &entry{program: prog, err: unitErr}
	return prog, c.registry, unitErr
}
