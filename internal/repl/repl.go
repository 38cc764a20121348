// Package repl is a documented boundary, not an implementation: spec.md
// lists an interactive read-eval-print loop among its explicit Non-goals
// (alongside a JIT, a WASM build target, a zdef-style native FFI, and an
// AST-to-JSON dumper). This package exists only so cmd/buzz and pkg/buzz
// have a named place to wire one in later; it deliberately carries no
// logic of its own.
package repl
