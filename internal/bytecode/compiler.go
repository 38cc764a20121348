package bytecode

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/types"
)

// Compiler lowers a typed *ast.Program into bytecode Chunks (spec.md §4.3).
// It makes no type-checking decisions of its own: every NamedVariable it
// sees already carries the local/upvalue/global slot the parser resolved,
// so Compiler's only bookkeeping is chunks, jump targets, and loop nesting.
type Compiler struct {
	interner *Interner
	chunk    *Chunk
	loops    []*loopCtx
	testMode bool

	// localTop is the compiler's own count of active stack slots in the
	// current function, relative to the frame base. It only needs to track
	// slots introduced by nested-block locals (VarDeclaration, ForEach's
	// hidden slots) so compileBlock knows how many POPs/CLOSE_UPVALUEs to
	// emit on the way out of a scope; NamedVariable's GET/SET slot indices
	// are already resolved by the parser and never consult this field.
	localTop int
}

// loopCtx tracks the break/continue patch points of one enclosing loop.
// continueTarget is the backward jump offset `continue` resolves to
// directly (while/foreach); continueTarget < 0 means the target isn't
// known yet (a classic `for`'s post-clause, a do-until's condition), so
// continues are collected in continueJumps and patched once it is.
//
// baseTop is localTop at the point the loop body starts compiling (after
// any loop-internal bookkeeping slots — a `for`'s init variable, a
// `foreach`'s hidden container/cursor slots — are already accounted for).
// A break/continue reached from inside a nested block skips that block's
// own endScope, so compileBreak/compileContinue must pop back down to
// baseTop themselves before jumping.
type loopCtx struct {
	breakJumps     []int
	continueJumps  []int
	continueTarget int
	baseTop        int
}

// NewCompiler creates a Compiler sharing the VM's string interner, so
// compile-time constants and runtime-interned strings land in the same
// table (spec.md §3 invariant on string interning).
func NewCompiler(interner *Interner) *Compiler {
	return &Compiler{interner: interner}
}

// Compile lowers prog into its script entry-point Function. In test mode
// every top-level `test "..."` declaration additionally runs, in source
// order, as the compiler reaches it (spec.md §4.3, "Return"; spec.md §6
// "test").
func (c *Compiler) Compile(prog *ast.Program, name string, testMode bool) *Function {
	c.testMode = testMode
	c.chunk = NewChunk(name, c.interner)
	for _, s := range prog.Statements {
		c.compileStmt(s)
	}
	c.emit(OpVoid, 0, 0)
	c.emit(OpReturn, 0, 0)
	if err := c.chunk.Validate(); err != nil {
		panic(err)
	}
	return &Function{Name: name, Chunk: c.chunk, Arity: 0, Kind: types.KindScript}
}

// compileFunctionValue compiles fn's body into its own Chunk and returns the
// resulting heap Function value. It does not emit a CLOSURE instruction;
// the caller (a FunDeclaration, method, or anonymous-function expression)
// does that against the enclosing chunk so the capture list lands there.
func (c *Compiler) compileFunctionValue(fn *ast.Function, kind types.FunctionKind) *Function {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	prevChunk, prevLoops, prevTop := c.chunk, c.loops, c.localTop
	c.chunk = NewChunk(name, c.interner)
	c.loops = nil
	c.localTop = len(fn.Params)
	if fn.IsMethod {
		c.localTop++ // slot 0 is the implicit receiver
	}

	c.compileParamDefaults(fn)
	for _, s := range fn.Body.Statements {
		c.compileStmt(s)
	}
	line := lineOf(fn)
	c.emit(OpVoid, 0, line)
	c.emit(OpReturn, 0, line)

	arity := len(fn.Params)
	if fn.IsMethod {
		arity++ // slot 0 is the implicit receiver
	}
	result := &Function{
		Name: fn.Name, Chunk: c.chunk, Arity: arity,
		UpvalueCount: fn.UpvalueCount, Type: fn.Type(), Kind: kind,
	}
	c.chunk, c.loops, c.localTop = prevChunk, prevLoops, prevTop
	return result
}

// compileParamDefaults emits the prologue that substitutes each omitted
// defaulted argument with a fresh evaluation of its AST fragment (spec.md
// §4.2 "Default values": re-evaluated per call, so two calls sharing a
// mutable default never alias). The call site always pushes exactly Arity
// values, using NULL for every omitted argument, so "omitted" and "an
// explicit null" are indistinguishable here — a documented simplification.
func (c *Compiler) compileParamDefaults(fn *ast.Function) {
	offset := 0
	if fn.IsMethod {
		offset = 1
	}
	for i, prm := range fn.Params {
		if prm.Default == nil {
			continue
		}
		slot := uint32(i + offset)
		line := lineOf(fn)
		c.emit(OpGetLocal, slot, line)
		c.emit(OpNull, 0, line)
		c.emit(OpEqual, 0, line)
		skip := c.emitJump(OpJumpIfFalse, line)
		c.compileExpr(prm.Default)
		c.emit(OpSetLocal, slot, line)
		c.emit(OpPop, 0, line)
		c.patchJump(skip)
	}
}

// --- low-level emission helpers ---

func lineOf(n ast.Node) int { return n.Pos().Line }

func (c *Compiler) emit(op OpCode, arg uint32, line int) int {
	return c.chunk.Emit(op, arg, line)
}

func (c *Compiler) emitWord(word uint32, line int) int {
	return c.chunk.EmitWord(word, line)
}

// emitJump appends a forward jump with a placeholder target, to be fixed up
// by patchJump once the target address is known (spec.md §4.3 "Jump
// patching").
func (c *Compiler) emitJump(op OpCode, line int) int {
	return c.chunk.Emit(op, 0, line)
}

func (c *Compiler) patchJump(at int) {
	c.chunk.Patch(at, uint32(len(c.chunk.Code)))
}

func (c *Compiler) here() int { return len(c.chunk.Code) }

func (c *Compiler) emitLoop(target int, line int) {
	c.chunk.Emit(OpLoop, uint32(target), line)
}

// constString interns and adds s to the current chunk's constant pool.
func (c *Compiler) constString(s string) int {
	return c.chunk.AddConstant(Obj(c.interner.Intern(s)))
}

func packCapture(isLocal bool, index int) uint32 {
	w := uint32(index) & 0x7FFFFFFF
	if isLocal {
		w |= 0x80000000
	}
	return w
}
