// Package types implements Buzz's structural type descriptors and the
// registry that interns them, so that pointer equality implies type
// equality (spec.md §3, "Type descriptors").
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the variant of a TypeDef.
type Kind int

const (
	Void Kind = iota
	Bool
	Integer
	Float
	String
	List
	Map
	Range
	Object
	ObjectInstance
	Enum
	EnumInstance
	Function
	Placeholder
)

// ResolutionState tracks whether a Placeholder has been unified with a
// concrete type yet.
type ResolutionState int

const (
	Unresolved ResolutionState = iota
	Resolved
)

// FunctionKind distinguishes the different function roles a Function
// TypeDef's Name/Params describe (spec.md §3, "Function kinds").
type FunctionKind int

const (
	KindScript FunctionKind = iota
	KindScriptEntryPoint
	KindFunction
	KindMethod
	KindEntryPoint
	KindExtern
	KindAnonymous
	KindCatch
	KindTest
)

// Param describes one parameter of a Function TypeDef.
type Param struct {
	Name    string
	Type    *TypeDef
	Default bool
}

// TypeDef is a structurally-interned type descriptor. Descriptors are
// arena-allocated by the Registry and never freed, per spec.md §3's
// lifecycle note. Primitive, list and map descriptors are interned;
// instance, function and optional descriptors are built fresh on each
// call, so equality between those is tested with Eq, not pointers.
type TypeDef struct {
	Kind     Kind
	Optional bool

	// List / Map
	Item  *TypeDef
	Key   *TypeDef
	Value *TypeDef

	// Object / ObjectInstance
	ObjectName    string
	Fields        map[string]*TypeDef
	Methods       map[string]*TypeDef
	Super         *TypeDef
	StaticFields  map[string]bool
	ObjectBacking *TypeDef // for ObjectInstance: the Object type it instances

	// Enum / EnumInstance
	EnumName      string
	Underlying    *TypeDef
	Cases         []string
	EnumBacking   *TypeDef // for EnumInstance: the Enum type

	// Function
	FuncName string
	Params   []Param
	Return   *TypeDef
	Yield    *TypeDef
	FuncKind FunctionKind

	// Placeholder
	PlaceholderID    int
	PlaceholderName  string
	PlaceholderKind  Kind
	Resolution       ResolutionState
	resolved         *TypeDef
}

// Resolved returns the concrete type a resolved Placeholder stands in for,
// or the TypeDef itself if it is not a placeholder.
func (t *TypeDef) Resolved() *TypeDef {
	if t.Kind == Placeholder && t.Resolution == Resolved && t.resolved != nil {
		return t.resolved.Resolved()
	}
	return t
}

// IsPlaceholder reports whether t is an unresolved forward reference.
func (t *TypeDef) IsPlaceholder() bool {
	return t.Kind == Placeholder && t.Resolution == Unresolved
}

// NonOptional returns a copy of t with Optional cleared, used as the result
// type of `??` and force-unwrap (spec.md §4.2, "Types").
func (t *TypeDef) NonOptional() *TypeDef {
	if !t.Optional {
		return t
	}
	clone := *t
	clone.Optional = false
	return &clone
}

// AsOptional returns a copy of t with Optional set.
func (t *TypeDef) AsOptional() *TypeDef {
	if t.Optional {
		return t
	}
	clone := *t
	clone.Optional = true
	return &clone
}

// String renders a human-readable type signature, used in diagnostics.
func (t *TypeDef) String() string {
	if t == nil {
		return "<nil>"
	}
	r := t.resolved
	if t.Kind == Placeholder && t.Resolution == Resolved && r != nil {
		return r.String()
	}
	var s string
	switch t.Kind {
	case Void:
		s = "void"
	case Bool:
		s = "bool"
	case Integer:
		s = "int"
	case Float:
		s = "float"
	case String:
		s = "str"
	case List:
		s = "[" + t.Item.String() + "]"
	case Map:
		s = "{" + t.Key.String() + ", " + t.Value.String() + "}"
	case Range:
		s = "range"
	case Object:
		s = t.ObjectName
	case ObjectInstance:
		s = t.ObjectBacking.ObjectName
	case Enum:
		s = t.EnumName
	case EnumInstance:
		s = t.EnumBacking.EnumName
	case Function:
		var params []string
		for _, p := range t.Params {
			params = append(params, p.Type.String())
		}
		s = fmt.Sprintf("fun(%s) > %s", strings.Join(params, ", "), t.Return.String())
	case Placeholder:
		s = "<placeholder " + t.PlaceholderName + ">"
	}
	if t.Optional {
		s += "?"
	}
	return s
}

// Eq reports structural equality. For the descriptors a Registry interns
// (primitives, lists, maps, declared objects and enums) it agrees with
// pointer equality; instance, function and optional descriptors are built
// fresh on each call, so two equal ones can be distinct pointers and only
// Eq reports them equal. Ad hoc TypeDefs (as built by tests) compare the
// same way.
func (t *TypeDef) Eq(other *TypeDef) bool {
	a, b := t.Resolved(), other.Resolved()
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind || a.Optional != b.Optional {
		return false
	}
	switch a.Kind {
	case List:
		return a.Item.Eq(b.Item)
	case Map:
		return a.Key.Eq(b.Key) && a.Value.Eq(b.Value)
	case Object:
		return a.ObjectName == b.ObjectName
	case ObjectInstance:
		return a.ObjectBacking.Eq(b.ObjectBacking)
	case Enum:
		return a.EnumName == b.EnumName
	case EnumInstance:
		return a.EnumBacking.Eq(b.EnumBacking)
	case Function:
		if len(a.Params) != len(b.Params) || !a.Return.Eq(b.Return) {
			return false
		}
		for i := range a.Params {
			if !a.Params[i].Type.Eq(b.Params[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
