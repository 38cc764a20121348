package types

// Registry interns TypeDefs by structural identity for primitive kinds,
// lists and maps, so that two of those built from equal content are the
// same pointer (spec.md §3 invariant: "TypeDefs are interned structurally").
//
// Object and Enum descriptors are registered once at declaration time and
// looked up by name thereafter. Instance, EnumInstance and Func build a new
// descriptor on each call.
type Registry struct {
	primitives map[Kind]*TypeDef
	lists      map[*TypeDef]*TypeDef
	maps       map[pairKey]*TypeDef
	objects    map[string]*TypeDef
	enums      map[string]*TypeDef
	nextPlaceholderID int
}

type pairKey struct{ key, value *TypeDef }

// NewRegistry creates an empty Registry with the primitive kinds
// pre-interned.
func NewRegistry() *Registry {
	r := &Registry{
		primitives: make(map[Kind]*TypeDef),
		lists:      make(map[*TypeDef]*TypeDef),
		maps:       make(map[pairKey]*TypeDef),
		objects:    make(map[string]*TypeDef),
		enums:      make(map[string]*TypeDef),
	}
	for _, k := range []Kind{Void, Bool, Integer, Float, String, Range} {
		r.primitives[k] = &TypeDef{Kind: k}
	}
	return r
}

func (r *Registry) Void() *TypeDef    { return r.primitives[Void] }
func (r *Registry) Bool() *TypeDef    { return r.primitives[Bool] }
func (r *Registry) Integer() *TypeDef { return r.primitives[Integer] }
func (r *Registry) Float() *TypeDef   { return r.primitives[Float] }
func (r *Registry) String() *TypeDef  { return r.primitives[String] }
func (r *Registry) Range() *TypeDef   { return r.primitives[Range] }

// List interns a List{item} descriptor.
func (r *Registry) List(item *TypeDef) *TypeDef {
	if existing, ok := r.lists[item]; ok {
		return existing
	}
	t := &TypeDef{Kind: List, Item: item}
	r.lists[item] = t
	return t
}

// Map interns a Map{key, value} descriptor.
func (r *Registry) Map(key, value *TypeDef) *TypeDef {
	pk := pairKey{key, value}
	if existing, ok := r.maps[pk]; ok {
		return existing
	}
	t := &TypeDef{Kind: Map, Key: key, Value: value}
	r.maps[pk] = t
	return t
}

// DeclareObject registers a new Object descriptor by name, or returns the
// existing one if a Placeholder already stands in for it (forward
// reference resolution, spec.md §4.2 "Forward references and
// placeholders").
func (r *Registry) DeclareObject(name string) *TypeDef {
	if existing, ok := r.objects[name]; ok {
		return existing
	}
	t := &TypeDef{
		Kind:         Object,
		ObjectName:   name,
		Fields:       make(map[string]*TypeDef),
		Methods:      make(map[string]*TypeDef),
		StaticFields: make(map[string]bool),
	}
	r.objects[name] = t
	return t
}

// LookupObject finds a previously declared Object type by name.
func (r *Registry) LookupObject(name string) (*TypeDef, bool) {
	t, ok := r.objects[name]
	return t, ok
}

// Instance returns a new ObjectInstance{object} wrapper for an Object
// descriptor on each call. Wrappers are not interned: two for the same
// Object are distinct pointers that Eq reports as equal.
func (r *Registry) Instance(object *TypeDef) *TypeDef {
	return &TypeDef{Kind: ObjectInstance, ObjectBacking: object}
}

// DeclareEnum registers a new Enum descriptor.
func (r *Registry) DeclareEnum(name string, underlying *TypeDef) *TypeDef {
	if existing, ok := r.enums[name]; ok {
		return existing
	}
	t := &TypeDef{Kind: Enum, EnumName: name, Underlying: underlying}
	r.enums[name] = t
	return t
}

// LookupEnum finds a previously declared Enum type by name.
func (r *Registry) LookupEnum(name string) (*TypeDef, bool) {
	t, ok := r.enums[name]
	return t, ok
}

// EnumInstance returns the EnumInstance{enum} wrapper for an Enum descriptor.
func (r *Registry) EnumInstance(enum *TypeDef) *TypeDef {
	return &TypeDef{Kind: EnumInstance, EnumBacking: enum}
}

// Func builds a Function descriptor. Function identity is not interned
// structurally (two functions with the same signature are distinct
// declarations), matching spec.md's treatment of Function as carrying a
// Name.
func (r *Registry) Func(name string, kind FunctionKind, params []Param, ret *TypeDef) *TypeDef {
	return &TypeDef{
		Kind: Function, FuncName: name, FuncKind: kind,
		Params: params, Return: ret,
	}
}

// NewPlaceholder allocates a fresh, unresolved Placeholder standing in for
// a forward-referenced name (spec.md §4.2).
func (r *Registry) NewPlaceholder(name string, kind Kind) *TypeDef {
	r.nextPlaceholderID++
	return &TypeDef{
		Kind: Placeholder, PlaceholderID: r.nextPlaceholderID,
		PlaceholderName: name, PlaceholderKind: kind, Resolution: Unresolved,
	}
}

// Resolve unifies a Placeholder with its concrete type by rewriting the
// placeholder in place, per the design note in spec.md §9 ("placeholders
// are resolved in place by swapping the resolved variant").
func (r *Registry) Resolve(placeholder *TypeDef, concrete *TypeDef) {
	placeholder.resolved = concrete
	placeholder.Resolution = Resolved
}
