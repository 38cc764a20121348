// Package oslib is Buzz's operating-system native module: process clock,
// environment, and argv access wired against the Native ABI, grounded on
// the teacher's internal/builtins (spec.md §4.6).
package oslib

import (
	"os"
	"time"

	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/native"
	"github.com/buzzlang/buzz/internal/types"
)

// Args holds the script arguments the embedder passed to the running
// program (argv[1:]), read by the args() builtin below. Set once before
// Run by whatever constructs the VM (cmd/buzz, pkg/buzz).
var Args []string

// Clock(): float — seconds since the Unix epoch.
func Clock(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(float64(time.Now().UnixNano()) / 1e9))
	return 1, nil
}

// Getenv(name: str): str — empty string if unset.
func Getenv(ctx *bytecode.NativeCtx) (int, error) {
	name, _ := ctx.Peek(0).Obj.(*bytecode.String)
	val := ""
	if name != nil {
		val = os.Getenv(name.Value)
	}
	ctx.Push(bytecode.Obj(ctx.VM().Interner().Intern(val)))
	return 1, nil
}

// ScriptArgs(): [str] — the script's own command-line arguments.
func ScriptArgs(ctx *bytecode.NativeCtx) (int, error) {
	l := &bytecode.List{}
	for _, a := range Args {
		l.Items = append(l.Items, bytecode.Obj(ctx.VM().Interner().Intern(a)))
	}
	ctx.VM().Collector().Track(l)
	ctx.Push(bytecode.Obj(l))
	return 1, nil
}

// Builtins lists every function this module installs, for native.Bind.
func Builtins(reg *types.Registry) []native.Builtin {
	return []native.Builtin{
		{Name: "clock", Return: reg.Float(), Fn: Clock},
		{Name: "getenv", Params: []types.Param{{Name: "name", Type: reg.String()}}, Return: reg.String(), Fn: Getenv},
		{Name: "scriptArgs", Return: reg.List(reg.String()), Fn: ScriptArgs},
	}
}
