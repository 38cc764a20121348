// Package parser implements Buzz's recursive-descent statement parser and
// Pratt expression parser, producing a fully typed AST (spec.md §4.2).
package parser

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/lexer"
	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

// maxLocals and maxUpvalues mirror the teacher's fixed-size 255-slot frame
// arrays, inherited from the Lua 5.x closure model spec.md §4.2 names
// explicitly ("Scoping").
const (
	maxLocals   = 255
	maxUpvalues = 255
)

// local is one entry of a Frame's local-variable array.
type local struct {
	name       string
	typ        *types.TypeDef
	depth      int
	isCaptured bool
}

// upvalueRef records how a Frame captures a variable from an enclosing
// frame: either directly from that frame's locals (isLocal) or by forwarding
// an upvalue further out.
type upvalueRef struct {
	name    string
	index   int
	isLocal bool
}

// Frame tracks one function's lexical scope while parsing its body,
// following the teacher's single-frame-per-function convention.
type Frame struct {
	enclosing *Frame
	locals    []local
	upvalues  []upvalueRef
	scopeDepth int
	funcKind  types.FunctionKind
	objectTyp *types.TypeDef // non-nil inside a method body, for `super`/field lookup
	loopDepth int           // per-function, so 'break'/'continue' can't see through a function boundary
}

func newFrame(enclosing *Frame, kind types.FunctionKind) *Frame {
	return &Frame{enclosing: enclosing, funcKind: kind}
}

func (f *Frame) beginScope() { f.scopeDepth++ }

// endScope pops locals declared in the scope being closed, returning the
// names that need a CLOSE_UPVALUE emitted because they were captured.
func (f *Frame) endScope() []local {
	f.scopeDepth--
	var closed []local
	for len(f.locals) > 0 && f.locals[len(f.locals)-1].depth > f.scopeDepth {
		last := f.locals[len(f.locals)-1]
		if last.isCaptured {
			closed = append(closed, last)
		}
		f.locals = f.locals[:len(f.locals)-1]
	}
	return closed
}

func (f *Frame) addLocal(name string, typ *types.TypeDef) int {
	f.locals = append(f.locals, local{name: name, typ: typ, depth: f.scopeDepth})
	return len(f.locals) - 1
}

func (f *Frame) resolveLocal(name string) (int, *types.TypeDef, bool) {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			return i, f.locals[i].typ, true
		}
	}
	return 0, nil, false
}

// resolveUpvalue walks enclosing frames looking for name, inserting an
// upvalue record in every intermediate frame it passes through — the
// Lua 5.x closure model spec.md §4.2 specifies.
func (f *Frame) resolveUpvalue(name string) (int, *types.TypeDef, bool) {
	if f.enclosing == nil {
		return 0, nil, false
	}
	if idx, typ, ok := f.enclosing.resolveLocal(name); ok {
		f.enclosing.locals[idx].isCaptured = true
		return f.addUpvalue(name, idx, true), typ, true
	}
	if idx, typ, ok := f.enclosing.resolveUpvalue(name); ok {
		return f.addUpvalue(name, idx, false), typ, true
	}
	return 0, nil, false
}

func (f *Frame) addUpvalue(name string, index int, isLocal bool) int {
	for i, uv := range f.upvalues {
		if uv.name == name && uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	f.upvalues = append(f.upvalues, upvalueRef{name: name, index: index, isLocal: isLocal})
	return len(f.upvalues) - 1
}

// Global tracks a module-level binding, indexed into the module-wide
// globals array.
type Global struct {
	Name string
	Type *types.TypeDef
}

// Parser is a recursive-descent statement parser with a Pratt expression
// sub-parser, producing a typed *ast.Program.
type Parser struct {
	toks []token.Token
	pos  int

	registry *types.Registry
	diags    *errors.Diagnostics

	frame   *Frame
	globals []Global

	objects map[string]*ast.ObjectDeclaration
	enums   map[string]*ast.EnumDeclaration

	// pendingPlaceholders tracks every forward-referenced type name that
	// produced a Placeholder, so an unresolved one can be reported at end
	// of compilation (spec.md §4.2 "Forward references and placeholders").
	pendingPlaceholders map[string]*types.TypeDef

	testCount int

	importer Importer
}

// Importer resolves and compiles `import "path"` statements. It is
// satisfied by *module.Cache; defined here to avoid a parser → module
// import cycle (module, in turn, depends on the parser to compile
// imported units).
type Importer interface {
	Import(path, fromFile string) (*ast.Program, *types.Registry, error)
}

// New creates a Parser over already-lexed tokens.
func New(toks []token.Token, registry *types.Registry, diags *errors.Diagnostics, importer Importer) *Parser {
	return &Parser{
		toks:                toks,
		registry:            registry,
		diags:               diags,
		objects:             make(map[string]*ast.ObjectDeclaration),
		enums:               make(map[string]*ast.EnumDeclaration),
		pendingPlaceholders: make(map[string]*types.TypeDef),
		importer:            importer,
	}
}

// Parse lexes nothing further (tokens are provided up front) and parses
// the full program. Callers should check Diagnostics.HasErrors() before
// proceeding to code generation (spec.md §4.2 "Errors").
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	p.frame = newFrame(nil, types.KindScript)
	for !p.atEnd() {
		stmt := p.parseDeclarationOrStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	p.resolvePlaceholders()
	return prog
}

func ParseSource(src, file string, registry *types.Registry, diags *errors.Diagnostics, importer Importer) *ast.Program {
	toks, lexErrs := lexer.Tokenize(src, lexer.WithFile(file))
	for _, e := range lexErrs {
		diags.Add(errors.LexError, e.Pos, "%s", e.Message)
	}
	p := New(toks, registry, diags, importer)
	return p.Parse()
}

// resolvePlaceholders reports every TypeDef placeholder still unresolved at
// the end of compilation as "Unknown type" (spec.md §4.2).
func (p *Parser) resolvePlaceholders() {
	for name, obj := range p.pendingPlaceholders {
		if obj.IsPlaceholder() {
			p.diags.Add(errors.ResolutionError, token.Position{}, "Unknown type: %s", name)
		}
	}
}
