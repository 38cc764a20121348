package bytecode

import "fmt"

// ValueKind tags a Value's variant (spec.md §3 "Value").
type ValueKind byte

const (
	KNull ValueKind = iota
	KBool
	KInteger
	KFloat
	KObject
)

// Value is a tagged union: Null, Bool, Integer(i32), Float(f64), or a
// reference to a heap Object. Values are plain structs and are freely
// copyable; only the Object variant participates in garbage collection.
type Value struct {
	Kind ValueKind
	B    bool
	I    int32
	F    float64
	Obj  GCObject
}

func Null() Value                 { return Value{Kind: KNull} }
func Bool(b bool) Value            { return Value{Kind: KBool, B: b} }
func Int(i int32) Value            { return Value{Kind: KInteger, I: i} }
func Float(f float64) Value        { return Value{Kind: KFloat, F: f} }
func Obj(o GCObject) Value         { return Value{Kind: KObject, Obj: o} }

func (v Value) IsNull() bool   { return v.Kind == KNull }
func (v Value) IsObject() bool { return v.Kind == KObject }

func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KNull:
		return false
	case KBool:
		return v.B
	default:
		return true
	}
}

// Equal implements `==` across every Value kind.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KNull:
		return true
	case KBool:
		return v.B == other.B
	case KInteger:
		return v.I == other.I
	case KFloat:
		return v.F == other.F
	case KObject:
		return objectEqual(v.Obj, other.Obj)
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KNull:
		return "null"
	case KBool:
		return fmt.Sprintf("%t", v.B)
	case KInteger:
		return fmt.Sprintf("%d", v.I)
	case KFloat:
		return fmt.Sprintf("%g", v.F)
	case KObject:
		if v.Obj == nil {
			return "null"
		}
		return v.Obj.String()
	}
	return "<invalid>"
}

func objectEqual(a, b GCObject) bool {
	if a == nil || b == nil {
		return a == b
	}
	if as, ok := a.(*String); ok {
		if bs, ok := b.(*String); ok {
			return as.Value == bs.Value
		}
		return false
	}
	return a == b
}
