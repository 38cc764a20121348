package ast

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/buzzlang/buzz/internal/token"
)

// SlotKind classifies how a NamedVariable resolves (spec.md §4.2
// "Scoping").
type SlotKind int

const (
	SlotLocal SlotKind = iota
	SlotUpvalue
	SlotGlobal
)

// --- literals ---

type NullLiteral struct{ base }

func (n *NullLiteral) expressionNode() {}
func (n *NullLiteral) String() string  { return "null" }

type BooleanLiteral struct {
	base
	Value bool
}

func (b *BooleanLiteral) expressionNode() {}
func (b *BooleanLiteral) String() string  { return fmt.Sprintf("%t", b.Value) }

type IntegerLiteral struct {
	base
	Value int32
}

func (i *IntegerLiteral) expressionNode() {}
func (i *IntegerLiteral) String() string  { return fmt.Sprintf("%d", i.Value) }

type FloatLiteral struct {
	base
	Value float64
}

func (f *FloatLiteral) expressionNode() {}
func (f *FloatLiteral) String() string  { return fmt.Sprintf("%g", f.Value) }

// StringLiteral is a plain (non-interpolated) string.
type StringLiteral struct {
	base
	Value string
}

func (s *StringLiteral) expressionNode() {}
func (s *StringLiteral) String() string  { return fmt.Sprintf("%q", s.Value) }

// InterpString is the `String` AST production for an interpolated string
// literal: alternating literal pieces and expression sub-trees (spec.md
// §4.1 "String interpolation").
type InterpString struct {
	base
	Pieces []string     // len(Pieces) == len(Exprs)+1
	Exprs  []Expression
}

func (s *InterpString) expressionNode() {}
func (s *InterpString) String() string {
	var out bytes.Buffer
	for i, p := range s.Pieces {
		out.WriteString(p)
		if i < len(s.Exprs) {
			out.WriteString("{")
			out.WriteString(s.Exprs[i].String())
			out.WriteString("}")
		}
	}
	return out.String()
}

type ListLiteral struct {
	base
	Elements []Expression
}

func (l *ListLiteral) expressionNode() {}
func (l *ListLiteral) String() string {
	var items []string
	for _, e := range l.Elements {
		items = append(items, e.String())
	}
	return "[" + strings.Join(items, ", ") + "]"
}

type MapEntry struct {
	Key   Expression
	Value Expression
}

type MapLiteral struct {
	base
	Entries []MapEntry
}

func (m *MapLiteral) expressionNode() {}
func (m *MapLiteral) String() string {
	var items []string
	for _, e := range m.Entries {
		items = append(items, e.Key.String()+": "+e.Value.String())
	}
	return "{" + strings.Join(items, ", ") + "}"
}

// RangeLiteral is the `low..high` expression.
type RangeLiteral struct {
	base
	Low  Expression
	High Expression
}

func (r *RangeLiteral) expressionNode() {}
func (r *RangeLiteral) String() string  { return r.Low.String() + ".." + r.High.String() }

// NamedVariable references a local, upvalue, or global by name, resolved
// to a SlotKind + index by the parser (spec.md §4.2 "Scoping").
type NamedVariable struct {
	base
	Name string
	Slot SlotKind
	Index int
}

func (n *NamedVariable) expressionNode() {}
func (n *NamedVariable) String() string  { return n.Name }

// --- operators ---

type UnaryExpr struct {
	base
	Operator token.Type
	Operand  Expression
}

func (u *UnaryExpr) expressionNode() {}
func (u *UnaryExpr) String() string  { return "(" + u.Operator.String() + u.Operand.String() + ")" }

type BinaryExpr struct {
	base
	Operator token.Type
	Left     Expression
	Right    Expression
}

func (b *BinaryExpr) expressionNode() {}
func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Operator.String() + " " + b.Right.String() + ")"
}

// IsExpr implements `value is Type`.
type IsExpr struct {
	base
	Left     Expression
	TypeName string
}

func (i *IsExpr) expressionNode() {}
func (i *IsExpr) String() string  { return "(" + i.Left.String() + " is " + i.TypeName + ")" }

// UnwrapExpr implements `expr?.rest` optional chaining: on a null operand
// the whole enclosing optional-chain expression short-circuits to null.
type UnwrapExpr struct {
	base
	Operand Expression
}

func (u *UnwrapExpr) expressionNode() {}
func (u *UnwrapExpr) String() string  { return u.Operand.String() + "?" }

// ForceUnwrapExpr implements `expr!`.
type ForceUnwrapExpr struct {
	base
	Operand Expression
}

func (f *ForceUnwrapExpr) expressionNode() {}
func (f *ForceUnwrapExpr) String() string  { return f.Operand.String() + "!" }

// NullCoalesceExpr implements `left ?? right`.
type NullCoalesceExpr struct {
	base
	Left  Expression
	Right Expression
}

func (n *NullCoalesceExpr) expressionNode() {}
func (n *NullCoalesceExpr) String() string  { return n.Left.String() + " ?? " + n.Right.String() }

type SubscriptExpr struct {
	base
	Collection Expression
	Index      Expression
}

func (s *SubscriptExpr) expressionNode() {}
func (s *SubscriptExpr) String() string  { return s.Collection.String() + "[" + s.Index.String() + "]" }

type DotExpr struct {
	base
	Receiver Expression
	Name     string
	Optional bool // `?.`
}

func (d *DotExpr) expressionNode() {}
func (d *DotExpr) String() string {
	op := "."
	if d.Optional {
		op = "?."
	}
	return d.Receiver.String() + op + d.Name
}

// SuperExpr references `super` for parent-method dispatch.
type SuperExpr struct {
	base
	Member string
}

func (s *SuperExpr) expressionNode() {}
func (s *SuperExpr) String() string  { return "super." + s.Member }

// Argument is a single call/init argument, named or positional.
type Argument struct {
	Name  string // "" for positional, "$" for the first-parameter shorthand
	Value Expression
}

// ObjectInitExpr is `Name{ field: value, ... }`. Slot/Index resolve
// ObjectName to wherever its class value is bound, exactly as a
// NamedVariable would (spec.md §4.2 "Scoping"), so the code generator never
// has to assume a class can only be a global.
type ObjectInitExpr struct {
	base
	ObjectName string
	Fields     []Argument
	Slot       SlotKind
	Index      int
}

func (o *ObjectInitExpr) expressionNode() {}
func (o *ObjectInitExpr) String() string {
	var parts []string
	for _, f := range o.Fields {
		parts = append(parts, f.Name+": "+f.Value.String())
	}
	return o.ObjectName + "{" + strings.Join(parts, ", ") + "}"
}

type CallExpr struct {
	base
	Callee    Expression
	Arguments []Argument
	Catches   []Expression // catch clauses attached to this call site
}

func (c *CallExpr) expressionNode() {}
func (c *CallExpr) String() string {
	var parts []string
	for _, a := range c.Arguments {
		if a.Name != "" {
			parts = append(parts, a.Name+": "+a.Value.String())
		} else {
			parts = append(parts, a.Value.String())
		}
	}
	return c.Callee.String() + "(" + strings.Join(parts, ", ") + ")"
}
