// Package mathlib is Buzz's math native module: floating-point functions
// wired against the Native ABI (internal/bytecode.NativeCtx), grounded on
// the teacher's internal/builtins (each function reads its arguments with
// ctx.Peek and returns a single Value, spec.md §4.6 "Native ABI").
package mathlib

import (
	"math"

	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/native"
	"github.com/buzzlang/buzz/internal/types"
)

func arg0Float(ctx *bytecode.NativeCtx) float64 {
	v := ctx.Peek(0)
	if v.Kind == bytecode.KInteger {
		return float64(v.I)
	}
	return v.F
}

// Sqrt(x: float): float
func Sqrt(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Sqrt(arg0Float(ctx))))
	return 1, nil
}

// Abs(x: float): float
func Abs(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Abs(arg0Float(ctx))))
	return 1, nil
}

// Floor(x: float): float
func Floor(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Floor(arg0Float(ctx))))
	return 1, nil
}

// Ceil(x: float): float
func Ceil(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Ceil(arg0Float(ctx))))
	return 1, nil
}

// Round(x: float): float
func Round(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Round(arg0Float(ctx))))
	return 1, nil
}

// Pow(base, exp: float): float
func Pow(ctx *bytecode.NativeCtx) (int, error) {
	base := ctx.Peek(0)
	exp := ctx.Peek(1)
	var b, e float64
	if base.Kind == bytecode.KInteger {
		b = float64(base.I)
	} else {
		b = base.F
	}
	if exp.Kind == bytecode.KInteger {
		e = float64(exp.I)
	} else {
		e = exp.F
	}
	ctx.Push(bytecode.Float(math.Pow(b, e)))
	return 1, nil
}

// Sin(x: float): float
func Sin(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Sin(arg0Float(ctx))))
	return 1, nil
}

// Cos(x: float): float
func Cos(ctx *bytecode.NativeCtx) (int, error) {
	ctx.Push(bytecode.Float(math.Cos(arg0Float(ctx))))
	return 1, nil
}

// Builtins lists every function this module installs, for native.Bind.
func Builtins(reg *types.Registry) []native.Builtin {
	f := reg.Float()
	one := []types.Param{{Name: "x", Type: f}}
	two := []types.Param{{Name: "a", Type: f}, {Name: "b", Type: f}}
	return []native.Builtin{
		{Name: "sqrt", Params: one, Return: f, Fn: Sqrt},
		{Name: "abs", Params: one, Return: f, Fn: Abs},
		{Name: "floor", Params: one, Return: f, Fn: Floor},
		{Name: "ceil", Params: one, Return: f, Fn: Ceil},
		{Name: "round", Params: one, Return: f, Fn: Round},
		{Name: "pow", Params: two, Return: f, Fn: Pow},
		{Name: "sin", Params: one, Return: f, Fn: Sin},
		{Name: "cos", Params: one, Return: f, Fn: Cos},
	}
}
