package bytecode

import (
	"math"
	"sort"
	"strings"

	"github.com/buzzlang/buzz/internal/types"
)

// runtimeTypeName names v's dynamic type the way `is`/diagnostics expect
// to see it: the primitive keyword for built-in kinds, the declared name
// for objects and enums.
func runtimeTypeName(v Value) string {
	switch v.Kind {
	case KNull:
		return "null"
	case KBool:
		return "bool"
	case KInteger:
		return "int"
	case KFloat:
		return "float"
	case KObject:
		switch o := v.Obj.(type) {
		case *String:
			return "str"
		case *List:
			return "list"
		case *Map:
			return "map"
		case *Range:
			return "range"
		case *ObjectInstance:
			return o.Class.Name
		case *Object:
			return o.Name
		case *EnumInstance:
			return o.Enum.Name
		case *Enum:
			return o.Name
		case *Closure, *Function, *NativeFunction:
			return "fun"
		}
	}
	return "void"
}

// isInstanceOf implements `is`: an ObjectInstance matches name if its own
// class or any ancestor is named it, so `x is Animal` holds for instances
// of Animal's subclasses too; every other kind matches only its exact
// runtime type name.
func isInstanceOf(v Value, name string) bool {
	if oi, ok := v.Obj.(*ObjectInstance); ok {
		for cls := oi.Class; cls != nil; cls = cls.Parent {
			if cls.Name == name {
				return true
			}
		}
		return false
	}
	return runtimeTypeName(v) == name
}

func isNumeric(v Value) bool { return v.Kind == KInteger || v.Kind == KFloat }

func toFloat(v Value) float64 {
	if v.Kind == KInteger {
		return float64(v.I)
	}
	return v.F
}

func asString(v Value) (string, bool) {
	s, ok := v.Obj.(*String)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// --- arithmetic: overflow-checked integers, plain IEEE-754 floats ---
// (spec.md §4.4 "Main loop").

func (vm *VM) execAdd() error {
	b := vm.pop()
	a := vm.pop()
	switch {
	case a.Kind == KInteger && b.Kind == KInteger:
		sum := int64(a.I) + int64(b.I)
		if sum > math.MaxInt32 {
			return vm.throwf("OverflowError: %d + %d exceeds the 32-bit integer range", a.I, b.I)
		}
		if sum < math.MinInt32 {
			return vm.throwf("UnderflowError: %d + %d is below the 32-bit integer range", a.I, b.I)
		}
		vm.push(Int(int32(sum)))
		return nil
	case isNumeric(a) && isNumeric(b):
		vm.push(Float(toFloat(a) + toFloat(b)))
		return nil
	case a.Kind == KObject && b.Kind == KObject:
		if as, ok := asString(a); ok {
			if bs, ok := asString(b); ok {
				vm.push(Obj(vm.interner.Intern(as + bs)))
				return nil
			}
		}
		if la, ok := a.Obj.(*List); ok {
			if lb, ok := b.Obj.(*List); ok {
				merged := make([]Value, 0, len(la.Items)+len(lb.Items))
				merged = append(merged, la.Items...)
				merged = append(merged, lb.Items...)
				nl := &List{ItemType: la.ItemType, Items: merged}
				vm.gc.Track(nl)
				vm.push(Obj(nl))
				return nil
			}
		}
		if ma, ok := a.Obj.(*Map); ok {
			if mb, ok := b.Obj.(*Map); ok {
				// Right-biased merge: b's keys win on conflict (spec.md §9,
				// Open Question b).
				nm := NewMap(ma.KeyType, ma.ValueType)
				for _, e := range ma.Entries() {
					nm.Set(e.key, e.value)
				}
				for _, e := range mb.Entries() {
					nm.Set(e.key, e.value)
				}
				vm.gc.Track(nm)
				vm.push(Obj(nm))
				return nil
			}
		}
	}
	return vm.throwf("cannot add %s and %s", runtimeTypeName(a), runtimeTypeName(b))
}

func (vm *VM) execSubtract() error {
	b := vm.pop()
	a := vm.pop()
	switch {
	case a.Kind == KInteger && b.Kind == KInteger:
		diff := int64(a.I) - int64(b.I)
		if diff > math.MaxInt32 {
			return vm.throwf("OverflowError: %d - %d exceeds the 32-bit integer range", a.I, b.I)
		}
		if diff < math.MinInt32 {
			return vm.throwf("UnderflowError: %d - %d is below the 32-bit integer range", a.I, b.I)
		}
		vm.push(Int(int32(diff)))
		return nil
	case isNumeric(a) && isNumeric(b):
		vm.push(Float(toFloat(a) - toFloat(b)))
		return nil
	}
	return vm.throwf("cannot subtract %s and %s", runtimeTypeName(a), runtimeTypeName(b))
}

func (vm *VM) execMultiply() error {
	b := vm.pop()
	a := vm.pop()
	switch {
	case a.Kind == KInteger && b.Kind == KInteger:
		prod := int64(a.I) * int64(b.I)
		if prod > math.MaxInt32 {
			return vm.throwf("OverflowError: %d * %d exceeds the 32-bit integer range", a.I, b.I)
		}
		if prod < math.MinInt32 {
			return vm.throwf("UnderflowError: %d * %d is below the 32-bit integer range", a.I, b.I)
		}
		vm.push(Int(int32(prod)))
		return nil
	case isNumeric(a) && isNumeric(b):
		vm.push(Float(toFloat(a) * toFloat(b)))
		return nil
	}
	return vm.throwf("cannot multiply %s and %s", runtimeTypeName(a), runtimeTypeName(b))
}

func (vm *VM) execDivide() error {
	b := vm.pop()
	a := vm.pop()
	switch {
	case a.Kind == KInteger && b.Kind == KInteger:
		if b.I == 0 {
			return vm.throwf("DivisionByZeroError: %d / 0", a.I)
		}
		if a.I == math.MinInt32 && b.I == -1 {
			return vm.throwf("OverflowError: %d / %d exceeds the 32-bit integer range", a.I, b.I)
		}
		vm.push(Int(a.I / b.I))
		return nil
	case isNumeric(a) && isNumeric(b):
		vm.push(Float(toFloat(a) / toFloat(b)))
		return nil
	}
	return vm.throwf("cannot divide %s and %s", runtimeTypeName(a), runtimeTypeName(b))
}

func (vm *VM) execMod() error {
	b := vm.pop()
	a := vm.pop()
	switch {
	case a.Kind == KInteger && b.Kind == KInteger:
		if b.I == 0 {
			return vm.throwf("DivisionByZeroError: %d %% 0", a.I)
		}
		vm.push(Int(a.I % b.I))
		return nil
	case isNumeric(a) && isNumeric(b):
		vm.push(Float(math.Mod(toFloat(a), toFloat(b))))
		return nil
	}
	return vm.throwf("cannot compute %s %% %s", runtimeTypeName(a), runtimeTypeName(b))
}

func (vm *VM) execNegate() error {
	v := vm.pop()
	switch v.Kind {
	case KInteger:
		if v.I == math.MinInt32 {
			return vm.throwf("OverflowError: -(%d) exceeds the 32-bit integer range", v.I)
		}
		vm.push(Int(-v.I))
		return nil
	case KFloat:
		vm.push(Float(-v.F))
		return nil
	}
	return vm.throwf("cannot negate a %s", runtimeTypeName(v))
}

// compareValues orders a and b for GREATER/LESS: numeric kinds compare by
// value (mixed int/float widens to float), strings compare lexically.
func compareValues(a, b Value) (int, bool) {
	switch {
	case isNumeric(a) && isNumeric(b):
		af, bf := toFloat(a), toFloat(b)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	case a.Kind == KObject && b.Kind == KObject:
		if as, ok := asString(a); ok {
			if bs, ok := asString(b); ok {
				return strings.Compare(as, bs), true
			}
		}
	}
	return 0, false
}

func (vm *VM) execGreater() error {
	b := vm.pop()
	a := vm.pop()
	cmp, ok := compareValues(a, b)
	if !ok {
		return vm.throwf("cannot compare %s and %s", runtimeTypeName(a), runtimeTypeName(b))
	}
	vm.push(Bool(cmp > 0))
	return nil
}

func (vm *VM) execLess() error {
	b := vm.pop()
	a := vm.pop()
	cmp, ok := compareValues(a, b)
	if !ok {
		return vm.throwf("cannot compare %s and %s", runtimeTypeName(a), runtimeTypeName(b))
	}
	vm.push(Bool(cmp < 0))
	return nil
}

// --- subscript access ---

func (vm *VM) execGetSubscript() error {
	index := vm.pop()
	collection := vm.pop()
	switch c := collection.Obj.(type) {
	case *List:
		if index.Kind != KInteger || int(index.I) < 0 || int(index.I) >= len(c.Items) {
			return vm.throwf("index %s out of range for a list of length %d", index.String(), len(c.Items))
		}
		vm.push(c.Items[index.I])
		return nil
	case *Map:
		v, ok := c.Get(index)
		if !ok {
			vm.push(Null())
			return nil
		}
		vm.push(v)
		return nil
	case *String:
		runes := []rune(c.Value)
		if index.Kind != KInteger || int(index.I) < 0 || int(index.I) >= len(runes) {
			return vm.throwf("index %s out of range for a string of length %d", index.String(), len(runes))
		}
		vm.push(Obj(vm.interner.Intern(string(runes[index.I]))))
		return nil
	}
	return vm.throwf("cannot subscript a %s", runtimeTypeName(collection))
}

func (vm *VM) execSetSubscript() error {
	value := vm.pop()
	index := vm.pop()
	collection := vm.pop()
	switch c := collection.Obj.(type) {
	case *List:
		if index.Kind != KInteger || int(index.I) < 0 || int(index.I) >= len(c.Items) {
			return vm.throwf("index %s out of range for a list of length %d", index.String(), len(c.Items))
		}
		c.Items[index.I] = value
		return nil
	case *Map:
		c.Set(index, value)
		return nil
	}
	return vm.throwf("cannot assign into a %s by index", runtimeTypeName(collection))
}

// --- property access ---

func (vm *VM) execGetProperty(name string) error {
	recv := vm.pop()
	switch o := recv.Obj.(type) {
	case *ObjectInstance:
		if v, ok := o.Fields[name]; ok {
			vm.push(v)
			return nil
		}
		if m, ok := o.Class.LookupMethod(name); ok {
			vm.push(Obj(m))
			return nil
		}
		if v, ok := o.Class.Statics[name]; ok {
			vm.push(v)
			return nil
		}
		return vm.throwf("undefined property %q on %s", name, o.Class.Name)
	case *Object:
		if v, ok := o.Statics[name]; ok {
			vm.push(v)
			return nil
		}
		if m, ok := o.LookupMethod(name); ok {
			vm.push(Obj(m))
			return nil
		}
		return vm.throwf("undefined static property %q on %s", name, o.Name)
	case *Enum:
		if idx, ok := o.CaseIndex(name); ok {
			inst := &EnumInstance{Enum: o, Case: idx}
			vm.gc.Track(inst)
			vm.push(Obj(inst))
			return nil
		}
		return vm.throwf("undefined case %q on enum %s", name, o.Name)
	case *EnumInstance:
		switch name {
		case "value":
			vm.push(o.Enum.CaseValues[o.Case])
			return nil
		case "name":
			vm.push(Obj(vm.interner.Intern(o.Enum.CaseNames[o.Case])))
			return nil
		}
		return vm.throwf("undefined property %q on an enum case", name)
	}
	return vm.throwf("cannot access property %q on a %s", name, runtimeTypeName(recv))
}

func (vm *VM) execSetProperty(name string) error {
	value := vm.pop()
	recv := vm.pop()
	switch o := recv.Obj.(type) {
	case *ObjectInstance:
		o.Fields[name] = value
		return nil
	case *Object:
		o.Statics[name] = value
		return nil
	}
	return vm.throwf("cannot set property %q on a %s", name, runtimeTypeName(recv))
}

// --- GET_ENUM_CASE / GET_ENUM_CASE_VALUE ---
//
// compileDotGet currently routes all enum-case and `.value` access through
// GET_PROPERTY instead (see execGetProperty above and DESIGN.md); these
// two opcodes are implemented for completeness but are not emitted yet.

func (vm *VM) execGetEnumCase(name string) error {
	v := vm.pop()
	e, ok := v.Obj.(*Enum)
	if !ok {
		return vm.throwf("cannot access enum case %q on a %s", name, runtimeTypeName(v))
	}
	idx, ok := e.CaseIndex(name)
	if !ok {
		return vm.throwf("undefined case %q on enum %s", name, e.Name)
	}
	inst := &EnumInstance{Enum: e, Case: idx}
	vm.gc.Track(inst)
	vm.push(Obj(inst))
	return nil
}

func (vm *VM) execGetEnumCaseValue() error {
	v := vm.pop()
	ei, ok := v.Obj.(*EnumInstance)
	if !ok {
		return vm.throwf("cannot access .value on a %s", runtimeTypeName(v))
	}
	vm.push(ei.Enum.CaseValues[ei.Case])
	return nil
}

// --- object construction ---

// cloneObjectTemplate copies t's static shape into a fresh Object with its
// own Methods/FieldDefaults/Statics maps, so running the same
// ObjectDeclaration twice (e.g. inside a loop body, or via re-import)
// never aliases state between the two runtime Objects (spec.md §3
// "Object").
func cloneObjectTemplate(t *Object) *Object {
	return &Object{
		Name:          t.Name,
		FieldTypes:    t.FieldTypes,
		StaticFields:  t.StaticFields,
		Methods:       make(map[string]*Closure, len(t.Methods)),
		FieldDefaults: make(map[string]DefaultThunk, len(t.FieldDefaults)),
		Statics:       make(map[string]Value, len(t.StaticFields)),
	}
}

func (vm *VM) execObject(idx uint32) error {
	chunk := vm.currentChunk()
	template, ok := chunk.Constants[idx].Obj.(*Object)
	if !ok {
		return vm.throwf("malformed object template")
	}
	obj := cloneObjectTemplate(template)
	vm.gc.Track(obj)
	vm.push(Obj(obj))
	return nil
}

func (vm *VM) execInherit() error {
	parentVal := vm.pop()
	obj, ok := vm.peek(0).Obj.(*Object)
	if !ok {
		return vm.throwf("INHERIT on a non-object")
	}
	parent, ok := parentVal.Obj.(*Object)
	if !ok {
		return vm.throwf("cannot inherit from a %s", runtimeTypeName(parentVal))
	}
	obj.Parent = parent
	return nil
}

func (vm *VM) execMethod(name string) error {
	closureVal := vm.pop()
	obj, ok := vm.peek(0).Obj.(*Object)
	if !ok {
		return vm.throwf("METHOD on a non-object")
	}
	cl, ok := closureVal.Obj.(*Closure)
	if !ok {
		return vm.throwf("method %q is not a closure", name)
	}
	obj.Methods[name] = cl
	return nil
}

func (vm *VM) execProperty(name string) error {
	closureVal := vm.pop()
	obj, ok := vm.peek(0).Obj.(*Object)
	if !ok {
		return vm.throwf("PROPERTY on a non-object")
	}
	cl, ok := closureVal.Obj.(*Closure)
	if !ok {
		return vm.throwf("field default %q is not a closure", name)
	}
	obj.FieldDefaults[name] = func(vm *VM) (Value, error) {
		return vm.callClosureSync(cl, nil)
	}
	return nil
}

func (vm *VM) execStaticProperty(name string) error {
	value := vm.pop()
	obj, ok := vm.peek(0).Obj.(*Object)
	if !ok {
		return vm.throwf("STATIC_PROPERTY on a non-object")
	}
	obj.Statics[name] = value
	return nil
}

// isStaticField walks o's parent chain to find which level declared name,
// reporting whether that declaration marked it static.
func isStaticField(o *Object, name string) bool {
	for cur := o; cur != nil; cur = cur.Parent {
		if v, ok := cur.StaticFields[name]; ok {
			return v
		}
	}
	return false
}

// collectInstanceFields lists every non-static field name visible on o,
// own and inherited, sorted by name, each name appearing once even when a
// subclass redeclares a parent's field.
func collectInstanceFields(o *Object) []string {
	seen := make(map[string]bool)
	var names []string
	for cur := o; cur != nil; cur = cur.Parent {
		for name := range cur.FieldTypes {
			if seen[name] {
				continue
			}
			seen[name] = true
			if isStaticField(o, name) {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names) // deterministic field initialization order
	return names
}

// zeroValue produces t's implicit default, mirroring the compiler's
// emitZeroValue but for a resolved runtime *types.TypeDef (spec.md §4.2
// "Types": every declared type has a well-defined zero value).
func (vm *VM) zeroValue(t *types.TypeDef) Value {
	if t == nil {
		return Null()
	}
	switch t.Resolved().Kind {
	case types.Bool:
		return Bool(false)
	case types.Integer:
		return Int(0)
	case types.Float:
		return Float(0)
	case types.String:
		return Obj(vm.interner.Intern(""))
	case types.List:
		l := &List{ItemType: t.Resolved().Item}
		vm.gc.Track(l)
		return Obj(l)
	case types.Map:
		m := NewMap(t.Resolved().Key, t.Resolved().Value)
		vm.gc.Track(m)
		return Obj(m)
	}
	return Null()
}

func (vm *VM) execInstance() error {
	classVal := vm.pop()
	classObj, ok := classVal.Obj.(*Object)
	if !ok {
		return vm.throwf("cannot instantiate a %s", runtimeTypeName(classVal))
	}
	inst := &ObjectInstance{Class: classObj, Fields: make(map[string]Value)}
	vm.gc.Track(inst)
	for _, name := range collectInstanceFields(classObj) {
		if thunk, ok := classObj.FieldDefault(name); ok {
			v, err := thunk(vm)
			if err != nil {
				return err
			}
			inst.Fields[name] = v
			continue
		}
		ft, _ := classObj.FieldType(name)
		inst.Fields[name] = vm.zeroValue(ft)
	}
	vm.push(Obj(inst))
	return nil
}

// --- enum construction ---

func (vm *VM) execEnum(name string) error {
	e := &Enum{Name: name}
	vm.gc.Track(e)
	vm.push(Obj(e))
	return nil
}

func (vm *VM) execEnumCase(name string) error {
	value := vm.pop()
	e, ok := vm.peek(0).Obj.(*Enum)
	if !ok {
		return vm.throwf("ENUM_CASE on a non-enum")
	}
	e.CaseNames = append(e.CaseNames, name)
	e.CaseValues = append(e.CaseValues, value)
	return nil
}

// --- foreach ---

// foreachStep advances one iteration over container from cursor, per
// spec.md §4.4 "Foreach": lists and strings yield an index/codepoint key,
// maps yield their own key, ranges and enums have no key (hasKey false) —
// their value carries the whole notion of "current position" already.
func (vm *VM) foreachStep(container, cursor Value) (value, key Value, newCursor Value, hasKey bool, exhausted bool) {
	switch c := container.Obj.(type) {
	case *List:
		i := int(cursor.I)
		if i >= len(c.Items) {
			return Null(), Null(), Null(), true, true
		}
		return c.Items[i], Int(int32(i)), Int(int32(i + 1)), true, false
	case *Map:
		i := int(cursor.I)
		entries := c.Entries()
		if i >= len(entries) {
			return Null(), Null(), Null(), true, true
		}
		e := entries[i]
		return e.value, e.key, Int(int32(i + 1)), true, false
	case *String:
		runes := []rune(c.Value)
		i := int(cursor.I)
		if i >= len(runes) {
			return Null(), Null(), Null(), true, true
		}
		ch := vm.interner.Intern(string(runes[i]))
		return Obj(ch), Int(int32(i)), Int(int32(i + 1)), true, false
	case *Range:
		pos := int(cursor.I)
		if pos >= c.Len() {
			return Null(), Null(), Null(), false, true
		}
		var v int32
		if c.Ascending() {
			v = c.Low + int32(pos)
		} else {
			v = c.Low - int32(pos)
		}
		return Int(v), Null(), Int(int32(pos + 1)), false, false
	case *Enum:
		pos := int(cursor.I)
		if pos >= len(c.CaseNames) {
			return Null(), Null(), Null(), false, true
		}
		inst := &EnumInstance{Enum: c, Case: pos}
		vm.gc.Track(inst)
		return Obj(inst), Null(), Int(int32(pos + 1)), false, false
	}
	return Null(), Null(), Null(), false, true
}
