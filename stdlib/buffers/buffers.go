// Package buffers is Buzz's mutable byte-buffer native module: an
// accumulate-then-flatten string builder wired against the Native ABI,
// grounded on the teacher's internal/builtins var-param helpers (a native
// function mutating a value the caller already holds a reference to,
// spec.md §4.6).
package buffers

import (
	"bytes"

	"github.com/buzzlang/buzz/internal/bytecode"
	"github.com/buzzlang/buzz/internal/native"
	"github.com/buzzlang/buzz/internal/types"
)

// New(): [int]
//
// A buffer is represented as a List of byte values (Integer 0..255) rather
// than a dedicated heap type: every other Value kind the VM exposes to
// native code is already one of Null/Bool/Integer/Float/*List/*Map/*String,
// so reusing List keeps buffers visible to ordinary Buzz code (length,
// indexing, foreach) instead of requiring an opaque handle type.
func New(ctx *bytecode.NativeCtx) (int, error) {
	list := &bytecode.List{}
	ctx.VM().Collector().Track(list)
	ctx.Push(bytecode.Obj(list))
	return 1, nil
}

// WriteString(buf: [int], s: str): void
func WriteString(ctx *bytecode.NativeCtx) (int, error) {
	bufVal := ctx.Peek(0)
	strVal := ctx.Peek(1)
	l, ok := bufVal.Obj.(*bytecode.List)
	if !ok {
		return 0, ctx.Throw(bytecode.Obj(ctx.VM().Interner().Intern("writeString() expects a buffer")))
	}
	s, ok := strVal.Obj.(*bytecode.String)
	if !ok {
		return 0, ctx.Throw(bytecode.Obj(ctx.VM().Interner().Intern("writeString() expects a string")))
	}
	for _, b := range []byte(s.Value) {
		l.Items = append(l.Items, bytecode.Int(int32(b)))
	}
	return 0, nil
}

// WriteByte(buf: [int], b: int): void
func WriteByte(ctx *bytecode.NativeCtx) (int, error) {
	bufVal := ctx.Peek(0)
	byteVal := ctx.Peek(1)
	l, ok := bufVal.Obj.(*bytecode.List)
	if !ok {
		return 0, ctx.Throw(bytecode.Obj(ctx.VM().Interner().Intern("writeByte() expects a buffer")))
	}
	l.Items = append(l.Items, bytecode.Int(byteVal.I&0xFF))
	return 0, nil
}

// ToString(buf: [int]): str
func ToString(ctx *bytecode.NativeCtx) (int, error) {
	bufVal := ctx.Peek(0)
	l, ok := bufVal.Obj.(*bytecode.List)
	if !ok {
		return 0, ctx.Throw(bytecode.Obj(ctx.VM().Interner().Intern("toString() expects a buffer")))
	}
	var buf bytes.Buffer
	for _, v := range l.Items {
		buf.WriteByte(byte(v.I))
	}
	ctx.Push(bytecode.Obj(ctx.VM().Interner().Intern(buf.String())))
	return 1, nil
}

// Builtins lists every function this module installs, for native.Bind.
func Builtins(reg *types.Registry) []native.Builtin {
	bufType := reg.List(reg.Integer())
	return []native.Builtin{
		{Name: "bufferNew", Return: bufType, Fn: New},
		{Name: "bufferWriteString", Params: []types.Param{
			{Name: "buf", Type: bufType}, {Name: "s", Type: reg.String()},
		}, Return: reg.Void(), Fn: WriteString},
		{Name: "bufferWriteByte", Params: []types.Param{
			{Name: "buf", Type: bufType}, {Name: "b", Type: reg.Integer()},
		}, Return: reg.Void(), Fn: WriteByte},
		{Name: "bufferToString", Params: []types.Param{
			{Name: "buf", Type: bufType},
		}, Return: reg.String(), Fn: ToString},
	}
}
