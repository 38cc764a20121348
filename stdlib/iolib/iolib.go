// Package iolib is Buzz's output native module: the `print` builtin every
// concrete scenario in spec.md §8 is built around, wired against the
// Native ABI and the VM's configured Output writer (spec.md §4.6, and
// NewVMWithOutput in internal/bytecode), grounded on the teacher's
// internal/builtins var-param convention for a native that performs a side
// effect rather than computing a value.
package iolib

import (
	"fmt"

	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/native"
	"github.com/buzzlang/buzz/internal/types"
)

// Println(s: str): void — writes s to the VM's Output followed by '\n'
// (spec.md §8 scenario 1: `print("hello");` -> stdout `hello\n`).
func Println(ctx *bytecode.NativeCtx) (int, error) {
	s, _ := ctx.Peek(0).Obj.(*bytecode.String)
	if s != nil {
		fmt.Fprintln(ctx.VM().Output, s.Value)
	} else {
		fmt.Fprintln(ctx.VM().Output)
	}
	return 0, nil
}

// Write(s: str): void — writes s to the VM's Output with no trailing
// newline, for callers building up a line across several calls.
func Write(ctx *bytecode.NativeCtx) (int, error) {
	s, _ := ctx.Peek(0).Obj.(*bytecode.String)
	if s != nil {
		fmt.Fprint(ctx.VM().Output, s.Value)
	}
	return 0, nil
}

// Builtins lists every function this module installs, for native.Bind.
func Builtins(reg *types.Registry) []native.Builtin {
	one := []types.Param{{Name: "s", Type: reg.String()}}
	return []native.Builtin{
		{Name: "print", Params: one, Return: reg.Void(), Fn: Println},
		{Name: "write", Params: one, Return: reg.Void(), Fn: Write},
	}
}
