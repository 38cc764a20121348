// Package native is the thin glue between a stdlib package's Go functions
// and the two places a native binding has to exist: the parser's global
// symbol table (so ordinary call syntax resolves it) and the VM's global
// slots (so CALL finds a callable Value there). Grounded on the teacher's
// internal/builtins registration-map convention (spec.md §4.6 "Native
// ABI").
package native

import (
	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/parser"
	"github.com/buzzlang/buzz/internal/types"
)

// Builtin describes one native function: its call signature for the type
// checker and its implementation for the VM.
type Builtin struct {
	Name   string
	Params []types.Param
	Return *types.TypeDef
	Fn     bytecode.NativeFn
}

// Bind declares every builtin as a global in p (so Buzz source can call it
// by name) and installs its NativeFunction Value at the matching VM global
// slot. Must run before p.Parse().
func Bind(p *parser.Parser, vm *bytecode.VM, reg *types.Registry, builtins []Builtin) {
	for _, b := range builtins {
		fnType := reg.Func(b.Name, types.KindExtern, b.Params, b.Return)
		idx := p.DeclareGlobal(b.Name, fnType)
		nf := &bytecode.NativeFunction{Name: b.Name, Arity: len(b.Params), Fn: b.Fn}
		vm.Collector().Track(nf)
		vm.SetGlobal(idx, bytecode.Obj(nf))
	}
}
