package bytecode

import (
	"fmt"
	"strings"

	"github.com/buzzlang/buzz/internal/types"
)

// Color is a heap object's tri-color mark state (spec.md §4.5).
type Color byte

const (
	White Color = iota
	Gray
	Black
)

// GCObject is implemented by every heap-allocated value. Children returns
// every Value this object directly references, letting the collector walk
// the object graph generically without each object type knowing about the
// collector (spec.md §4.5 "Discipline").
type GCObject interface {
	String() string
	gcColor() Color
	setGCColor(Color)
	Children() []Value
}

type gcHeader struct {
	color Color
}

func (h *gcHeader) gcColor() Color      { return h.color }
func (h *gcHeader) setGCColor(c Color)  { h.color = c }

// String is an immutable, content-interned UTF-8 string (spec.md §3).
type String struct {
	gcHeader
	Value string
}

func (s *String) String() string        { return s.Value }
func (s *String) Children() []Value     { return nil }

// List is a dynamically-sized array of homogeneously-typed Values.
type List struct {
	gcHeader
	ItemType *types.TypeDef
	Items    []Value
}

func (l *List) String() string {
	var parts []string
	for _, v := range l.Items {
		parts = append(parts, v.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *List) Children() []Value { return l.Items }

// mapEntry preserves insertion order, matching spec.md §3's "ordered
// mapping Value→Value".
type mapEntry struct {
	key   Value
	value Value
}

// Map is an insertion-ordered Value→Value mapping.
type Map struct {
	gcHeader
	KeyType, ValueType *types.TypeDef
	entries            []mapEntry
	index              map[string]int // keyed on a stable encoding, see mapKey
}

func NewMap(keyType, valueType *types.TypeDef) *Map {
	return &Map{KeyType: keyType, ValueType: valueType, index: make(map[string]int)}
}

func mapKey(v Value) string {
	switch v.Kind {
	case KObject:
		if s, ok := v.Obj.(*String); ok {
			return "s:" + s.Value
		}
		return fmt.Sprintf("o:%p", v.Obj)
	default:
		return fmt.Sprintf("%d:%v", v.Kind, v)
	}
}

// Get looks up a key, reporting whether it is present.
func (m *Map) Get(key Value) (Value, bool) {
	idx, ok := m.index[mapKey(key)]
	if !ok {
		return Null(), false
	}
	return m.entries[idx].value, true
}

// Set inserts or overwrites key → value, preserving first-insertion order.
func (m *Map) Set(key, value Value) {
	k := mapKey(key)
	if idx, ok := m.index[k]; ok {
		m.entries[idx].value = value
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, mapEntry{key: key, value: value})
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Entries exposes the ordered key/value pairs for iteration.
func (m *Map) Entries() []mapEntry { return m.entries }

func (m *Map) String() string {
	var parts []string
	for _, e := range m.entries {
		parts = append(parts, e.key.String()+": "+e.value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *Map) Children() []Value {
	vs := make([]Value, 0, len(m.entries)*2)
	for _, e := range m.entries {
		vs = append(vs, e.key, e.value)
	}
	return vs
}

// Range is the inclusive-low/exclusive-high integer range produced by
// `low..high`; iteration direction is inferred from the sign of
// high−low (spec.md §3).
type Range struct {
	gcHeader
	Low, High int32
}

func (r *Range) String() string    { return fmt.Sprintf("%d..%d", r.Low, r.High) }
func (r *Range) Children() []Value { return nil }

// Ascending reports whether this range iterates low→high (true) or
// high→low (false).
func (r *Range) Ascending() bool { return r.High >= r.Low }

// Len reports the number of elements this range yields.
func (r *Range) Len() int {
	if r.Ascending() {
		return int(r.High - r.Low)
	}
	return int(r.Low - r.High)
}

// Function is a compiled function: its chunk, arity, declared defaults,
// and upvalue count (spec.md §3).
type Function struct {
	gcHeader
	Name         string
	Chunk        *Chunk
	Arity        int
	UpvalueCount int
	Type         *types.TypeDef
	Kind         types.FunctionKind
}

func (f *Function) String() string    { return "<fun " + f.Name + ">" }
func (f *Function) Children() []Value { return f.Chunk.Constants }

// Upvalue is either "open" (Slot points into a live VM stack frame) or
// "closed" (Closed holds the value directly), per spec.md §3 and the
// closure design note in §9.
type Upvalue struct {
	gcHeader
	stack    *[]Value
	Slot     int
	Closed   bool
	ClosedValue Value
	next     *Upvalue
}

func (u *Upvalue) String() string { return "<upvalue>" }

func (u *Upvalue) Children() []Value {
	if u.Closed {
		return []Value{u.ClosedValue}
	}
	return nil
}

// Get reads the current value, whether open or closed.
func (u *Upvalue) Get() Value {
	if u.Closed {
		return u.ClosedValue
	}
	return (*u.stack)[u.Slot]
}

// Set writes the current value, whether open or closed.
func (u *Upvalue) Set(v Value) {
	if u.Closed {
		u.ClosedValue = v
		return
	}
	(*u.stack)[u.Slot] = v
}

// Close copies the referenced stack slot's value into the Upvalue itself,
// severing the link to the (departing) stack frame.
func (u *Upvalue) Close() {
	if u.Closed {
		return
	}
	u.ClosedValue = (*u.stack)[u.Slot]
	u.Closed = true
	u.stack = nil
}

// Closure pairs a Function with its captured Upvalues; len(Upvalues) is
// always exactly Function.UpvalueCount (spec.md §3 invariant).
type Closure struct {
	gcHeader
	Fn       *Function
	Upvalues []*Upvalue
}

func (c *Closure) String() string { return "<closure " + c.Fn.Name + ">" }

func (c *Closure) Children() []Value {
	vs := make([]Value, 0, len(c.Upvalues))
	for _, uv := range c.Upvalues {
		vs = append(vs, Obj(uv))
	}
	return vs
}

// Object is a class-like declaration: methods, instance field defaults,
// optional parent, and the set of static field names (spec.md §3
// "Object"). Default field values are stored as thunks over compiled
// zero-arg closures (not as AST fragments) rather than as Values, so each
// ObjectInstance gets a freshly-evaluated value (spec.md §4.2 "Default
// values").
type Object struct {
	gcHeader
	Name          string
	Methods       map[string]*Closure
	FieldTypes    map[string]*types.TypeDef
	FieldDefaults map[string]DefaultThunk
	Parent        *Object
	StaticFields  map[string]bool
	Statics       map[string]Value
}

// DefaultThunk runs a field's compiled default-value closure on the
// currently executing VM, producing a fresh Value each call.
type DefaultThunk func(vm *VM) (Value, error)

func (o *Object) String() string { return "<object " + o.Name + ">" }

func (o *Object) Children() []Value {
	var vs []Value
	for _, m := range o.Methods {
		vs = append(vs, Obj(m))
	}
	for _, v := range o.Statics {
		vs = append(vs, v)
	}
	return vs
}

// LookupMethod walks the parent chain for a method.
func (o *Object) LookupMethod(name string) (*Closure, bool) {
	for obj := o; obj != nil; obj = obj.Parent {
		if m, ok := obj.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// FieldType walks the parent chain for a declared field type.
func (o *Object) FieldType(name string) (*types.TypeDef, bool) {
	for obj := o; obj != nil; obj = obj.Parent {
		if t, ok := obj.FieldTypes[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// FieldDefault walks the parent chain for a field's default-value thunk.
func (o *Object) FieldDefault(name string) (DefaultThunk, bool) {
	for obj := o; obj != nil; obj = obj.Parent {
		if d, ok := obj.FieldDefaults[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// ObjectInstance is one instantiation of an Object, holding per-instance
// field values.
type ObjectInstance struct {
	gcHeader
	Class  *Object
	Fields map[string]Value
}

func (o *ObjectInstance) String() string { return "<" + o.Class.Name + " instance>" }

func (o *ObjectInstance) Children() []Value {
	vs := make([]Value, 0, len(o.Fields))
	for _, v := range o.Fields {
		vs = append(vs, v)
	}
	return vs
}

// Enum is an enumerated type over an underlying primitive, with ordered
// case name→value pairs.
type Enum struct {
	gcHeader
	Name       string
	Underlying *types.TypeDef
	CaseNames  []string
	CaseValues []Value
}

func (e *Enum) String() string    { return "<enum " + e.Name + ">" }
func (e *Enum) Children() []Value { return e.CaseValues }

// CaseIndex finds a case by name.
func (e *Enum) CaseIndex(name string) (int, bool) {
	for i, n := range e.CaseNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// EnumInstance is one case of an Enum, referenced by index.
type EnumInstance struct {
	gcHeader
	Enum *Enum
	Case int
}

func (e *EnumInstance) String() string    { return e.Enum.Name + "." + e.Enum.CaseNames[e.Case] }
func (e *EnumInstance) Children() []Value { return []Value{e.Enum.CaseValues[e.Case]} }

// NativeFunction is the Native heap object wrapping an externally
// implemented function reachable through the ABI (spec.md §4.6).
type NativeFunction struct {
	gcHeader
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *NativeFunction) String() string    { return "<native " + n.Name + ">" }
func (n *NativeFunction) Children() []Value { return nil }

// TypeValue reifies a *types.TypeDef as a first-class Value, the operand
// of `is`/`as` and the "TypeDef" heap variant spec.md §3 names.
type TypeValue struct {
	gcHeader
	Def *types.TypeDef
}

func (t *TypeValue) String() string    { return t.Def.String() }
func (t *TypeValue) Children() []Value { return nil }
