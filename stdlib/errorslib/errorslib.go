// Package errorslib is Buzz's native error-raising module: a way for
// native code to hand control back to Buzz-level catch blocks, grounded
// on spec.md §4.6 "Native functions surface failures by throwing" and
// the VM's plain-interned-string fault representation (internal/bytecode
// vm_ops.go).
package errorslib

import (
	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/native"
	"github.com/buzzlang/buzz/internal/types"
)

// Fail(msg: str): void — throws msg as the fault value, exactly like a
// VM-raised runtime fault, so a `catch` around the call site sees the
// same shape it would see from a builtin error.
func Fail(ctx *bytecode.NativeCtx) (int, error) {
	msg, ok := ctx.Peek(0).Obj.(*bytecode.String)
	text := "error"
	if ok {
		text = msg.Value
	}
	return 0, ctx.Throw(bytecode.Obj(ctx.VM().Interner().Intern(text)))
}

// Assert(cond: bool, message: str): void — throws message if cond is false.
// Parameter named `message` (not `msg`) to match the named-argument call
// convention `assert(cond, message: "...")` (spec.md §8 scenario 2).
func Assert(ctx *bytecode.NativeCtx) (int, error) {
	cond := ctx.Peek(0)
	msg, ok := ctx.Peek(1).Obj.(*bytecode.String)
	if cond.IsTruthy() {
		return 0, nil
	}
	text := "assertion failed"
	if ok {
		text = msg.Value
	}
	return 0, ctx.Throw(bytecode.Obj(ctx.VM().Interner().Intern(text)))
}

// Builtins lists every function this module installs, for native.Bind.
func Builtins(reg *types.Registry) []native.Builtin {
	return []native.Builtin{
		{Name: "fail", Params: []types.Param{{Name: "msg", Type: reg.String()}}, Return: reg.Void(), Fn: Fail},
		{Name: "assert", Params: []types.Param{
			{Name: "cond", Type: reg.Bool()}, {Name: "message", Type: reg.String()},
		}, Return: reg.Void(), Fn: Assert},
	}
}
