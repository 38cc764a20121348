package ast

import "strings"

// TypeExpr is the surface syntax for a type annotation, resolved to a
// *types.TypeDef by the checker (possibly via a Placeholder if it names a
// forward reference).
type TypeExpr struct {
	Name      string // "int", "bool", "float", "str", "void", or an object/enum/function name
	Optional  bool
	ItemType  *TypeExpr // non-nil for "[T]"
	KeyType   *TypeExpr // non-nil for "{K, V}"
	ValueType *TypeExpr
	FuncSig   *FunctionSig // non-nil for "fun(...) > T"
}

func (t *TypeExpr) String() string {
	var s string
	switch {
	case t.ItemType != nil:
		s = "[" + t.ItemType.String() + "]"
	case t.KeyType != nil:
		s = "{" + t.KeyType.String() + ", " + t.ValueType.String() + "}"
	case t.FuncSig != nil:
		s = t.FuncSig.String()
	default:
		s = t.Name
	}
	if t.Optional {
		s += "?"
	}
	return s
}

// Param is a declared function parameter: a type, a name, and an optional
// default-value AST fragment (spec.md §4.2 "Default values": stored as a
// fragment, re-evaluated at every call).
type Param struct {
	Name    string
	Type    *TypeExpr
	Default Expression // nil if required
}

// FunctionSig is the surface syntax of a function type, `fun name?(params) > ret`.
type FunctionSig struct {
	Name   string
	Params []Param
	Return *TypeExpr
}

func (f *FunctionSig) String() string {
	var parts []string
	for _, p := range f.Params {
		parts = append(parts, p.Type.String())
	}
	ret := "void"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return "fun(" + strings.Join(parts, ", ") + ") > " + ret
}

// VarDeclaration declares a local or global variable with a type and
// optional initializer.
type VarDeclaration struct {
	base
	Name    string
	VarType *TypeExpr
	Const   bool
	Value   Expression // nil if zero-initialized
	Slot    SlotKind
	Index   int
}

func (v *VarDeclaration) statementNode()   {}
func (v *VarDeclaration) declarationNode() {}
func (v *VarDeclaration) String() string {
	s := v.VarType.String() + " " + v.Name
	if v.Value != nil {
		s += " = " + v.Value.String()
	}
	return s + ";"
}

// Function is the shared body for a top-level `fun`, a method, or an
// anonymous lambda.
type Function struct {
	base
	Name       string
	Params     []Param
	ReturnType *TypeExpr
	Body       *Block
	IsTest     bool   // `test "..." { }` — name begins with "$test"
	IsMethod   bool   // declared inside an `object` body; slot 0 is the implicit receiver
	Hidden     bool
	UpvalueCount int
	Upvalues   []UpvalueCapture
}

// UpvalueCapture describes one entry of the CLOSURE instruction's capture
// list: whether it closes over the enclosing frame's local slot Index
// directly, or forwards an upvalue the enclosing frame already captured
// (spec.md §4.3 "Closures").
type UpvalueCapture struct {
	IsLocal bool
	Index   int
}

func (f *Function) statementNode()   {}
func (f *Function) declarationNode() {}
func (f *Function) expressionNode()  {} // anonymous functions are also expressions
func (f *Function) String() string {
	var parts []string
	for _, p := range f.Params {
		parts = append(parts, p.Type.String()+" "+p.Name)
	}
	return "fun " + f.Name + "(" + strings.Join(parts, ", ") + ") " + f.Body.String()
}

// FunDeclaration binds a Function to a name in the enclosing scope.
type FunDeclaration struct {
	base
	Fn    *Function
	Slot  SlotKind
	Index int
}

func (f *FunDeclaration) statementNode()   {}
func (f *FunDeclaration) declarationNode() {}
func (f *FunDeclaration) String() string   { return f.Fn.String() }

// Field is one member of an object declaration.
type Field struct {
	Name     string
	Type     *TypeExpr
	Default  Expression // nil if required at init (spec.md §4.2 "Object inheritance")
	Static   bool
	Method   *Function
}

// ObjectDeclaration declares a class-like type with a single optional
// parent (spec.md §3 "Object").
type ObjectDeclaration struct {
	base
	Name        string
	Parent      string // "" if none
	Fields      []Field
	Slot        SlotKind
	Index       int
	ParentSlot  SlotKind
	ParentIndex int
	HasParent   bool
}

func (o *ObjectDeclaration) statementNode()   {}
func (o *ObjectDeclaration) declarationNode() {}
func (o *ObjectDeclaration) String() string {
	s := "object " + o.Name
	if o.Parent != "" {
		s += " < " + o.Parent
	}
	return s + " { ... }"
}

// EnumCase is one member of an enum declaration, with an optional explicit
// value expression.
type EnumCase struct {
	Name  string
	Value Expression // nil: auto-assigned ordinal
}

// EnumDeclaration declares an enum type over an underlying primitive type.
type EnumDeclaration struct {
	base
	Name       string
	Underlying *TypeExpr // nil defaults to int
	Cases      []EnumCase
	Slot       SlotKind
	Index      int
}

func (e *EnumDeclaration) statementNode()   {}
func (e *EnumDeclaration) declarationNode() {}
func (e *EnumDeclaration) String() string   { return "enum " + e.Name + " { ... }" }

// Import binds the exported symbols of another compilation unit under a
// namespace (spec.md §4.2 "Imports").
type Import struct {
	base
	Path      string
	Namespace string // "" if unaliased
}

func (i *Import) statementNode()   {}
func (i *Import) declarationNode() {}
func (i *Import) String() string   { return "import \"" + i.Path + "\" as " + i.Namespace + ";" }

// Export marks a top-level declaration's name as part of the module's
// public surface.
type Export struct {
	base
	Names []string
}

func (e *Export) statementNode()   {}
func (e *Export) declarationNode() {}
func (e *Export) String() string   { return "export " + strings.Join(e.Names, ", ") + ";" }

// TestDeclaration is `test "name" { ... }`. The parser keeps it as its own
// node; in test mode the compiler turns its body into a Function named
// after the test and calls it in place (compileTestDecl).
type TestDeclaration struct {
	base
	Name string
	Body *Block
}

func (t *TestDeclaration) statementNode()   {}
func (t *TestDeclaration) declarationNode() {}
func (t *TestDeclaration) String() string   { return "test \"" + t.Name + "\" " + t.Body.String() }
