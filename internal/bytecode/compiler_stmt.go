package bytecode

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/types"
)

// compileStmt emits the bytecode for one statement. Unlike compileExpr, a
// statement leaves the operand stack exactly as it found it.
func (c *Compiler) compileStmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDeclaration:
		c.compileVarDecl(n)
	case *ast.ExpressionStatement:
		c.compileExpr(n.Expr)
		c.emit(OpPop, 0, lineOf(n))
	case *ast.AssignStatement:
		c.compileAssign(n)
	case *ast.Block:
		c.compileBlock(n)
	case *ast.If:
		c.compileIf(n)
	case *ast.For:
		c.compileFor(n)
	case *ast.ForEach:
		c.compileForEach(n)
	case *ast.While:
		c.compileWhile(n)
	case *ast.DoUntil:
		c.compileDoUntil(n)
	case *ast.Return:
		c.compileReturn(n)
	case *ast.Break:
		c.compileBreak(n)
	case *ast.Continue:
		c.compileContinue(n)
	case *ast.Throw:
		c.compileExpr(n.Value)
		c.emit(OpThrow, 0, lineOf(n))
	case *ast.FunDeclaration:
		c.compileFunDecl(n)
	case *ast.ObjectDeclaration:
		c.compileObjectDecl(n)
	case *ast.EnumDeclaration:
		c.compileEnumDecl(n)
	case *ast.TestDeclaration:
		c.compileTestDecl(n)
	case *ast.Import:
		// Module loading happens ahead of compilation (internal/module),
		// so an Import statement has nothing left to emit.
	case *ast.Export:
		// Export only affects which names a module surfaces to importers;
		// it carries no runtime behavior of its own.
	}
}

// compileBlock compiles a nested lexical scope: locals declared directly
// inside it are closed (if captured) and popped on the way out (spec.md
// §4.5 "Roots"; spec.md glossary, "CLOSE_UPVALUE").
func (c *Compiler) compileBlock(b *ast.Block) {
	mark := c.localTop
	for _, s := range b.Statements {
		c.compileStmt(s)
	}
	c.endScope(mark, lineOf(b))
}

func (c *Compiler) endScope(mark int, line int) {
	if c.localTop <= mark {
		return
	}
	c.emit(OpCloseUpvalue, uint32(mark), line)
	for i := c.localTop; i > mark; i-- {
		c.emit(OpPop, 0, line)
	}
	c.localTop = mark
}

func (c *Compiler) compileVarDecl(n *ast.VarDeclaration) {
	line := lineOf(n)
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.emitZeroValue(n.VarType, line)
	}
	switch n.Slot {
	case ast.SlotGlobal:
		c.emit(OpDefineGlobal, uint32(n.Index), line)
	case ast.SlotLocal:
		// The initializer is already sitting in exactly this local's slot
		// (the stack grows left to right in declaration order), so no
		// SET_LOCAL is needed — just account for the new slot.
		c.localTop = n.Index + 1
	}
}

// emitZeroValue pushes a declaration's implicit zero value when no
// initializer is given (spec.md §4.2, "Types": every declared type has a
// well-defined zero value).
func (c *Compiler) emitZeroValue(te *ast.TypeExpr, line int) {
	if te == nil {
		c.emit(OpNull, 0, line)
		return
	}
	switch te.Name {
	case "bool":
		c.emit(OpConstant, uint32(c.chunk.AddConstant(Bool(false))), line)
	case "int":
		c.emit(OpConstant, uint32(c.chunk.AddConstant(Int(0))), line)
	case "float":
		c.emit(OpConstant, uint32(c.chunk.AddConstant(Float(0))), line)
	case "str":
		c.emit(OpConstant, uint32(c.constString("")), line)
	default:
		if te.ItemType != nil {
			c.emit(OpList, 0, line)
			return
		}
		if te.KeyType != nil {
			c.emit(OpMap, 0, line)
			return
		}
		c.emit(OpNull, 0, line)
	}
}

// compileAssign lowers `target = value;`. Only "=" reaches here today: the
// lexer has no +=/-=/*=//=/%= tokens yet, so AssignStatement.Operator's
// compound-operator values named in its doc comment are unreachable from
// surface syntax.
func (c *Compiler) compileAssign(n *ast.AssignStatement) {
	line := lineOf(n)
	switch t := n.Target.(type) {
	case *ast.NamedVariable:
		c.compileExpr(n.Value)
		switch t.Slot {
		case ast.SlotLocal:
			c.emit(OpSetLocal, uint32(t.Index), line)
		case ast.SlotUpvalue:
			c.emit(OpSetUpvalue, uint32(t.Index), line)
		case ast.SlotGlobal:
			c.emit(OpSetGlobal, uint32(t.Index), line)
		}
	case *ast.DotExpr:
		c.compileExpr(t.Receiver)
		c.compileExpr(n.Value)
		idx := c.constString(t.Name)
		c.emit(OpSetProperty, uint32(idx), line)
	case *ast.SubscriptExpr:
		c.compileExpr(t.Collection)
		c.compileExpr(t.Index)
		c.compileExpr(n.Value)
		c.emit(OpSetSubscript, 0, line)
	}
}

func (c *Compiler) compileIf(n *ast.If) {
	line := lineOf(n)
	c.compileExpr(n.Condition)
	thenJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, 0, line) // true path: discard the condition
	c.compileBlock(n.Then)
	elseJump := c.emitJump(OpJump, line)
	c.patchJump(thenJump)
	c.emit(OpPop, 0, line) // false path: discard the condition
	if n.Else != nil {
		c.compileStmt(n.Else)
	}
	c.patchJump(elseJump)
}

func (c *Compiler) compileFor(n *ast.For) {
	line := lineOf(n)
	mark := c.localTop
	if n.Init != nil {
		c.compileStmt(n.Init)
	}
	condStart := c.here()
	exitJump := -1
	if n.Condition != nil {
		c.compileExpr(n.Condition)
		exitJump = c.emitJump(OpJumpIfFalse, line)
		c.emit(OpPop, 0, line)
	}
	loop := &loopCtx{continueTarget: -1, baseTop: c.localTop}
	c.loops = append(c.loops, loop)
	c.compileBlock(n.Body)
	postStart := c.here()
	for _, j := range loop.continueJumps {
		c.patchJump(j)
	}
	if n.Post != nil {
		c.compileStmt(n.Post)
	}
	_ = postStart
	c.emitLoop(condStart, line)
	if exitJump >= 0 {
		c.patchJump(exitJump)
		c.emit(OpPop, 0, line)
	}
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.endScope(mark, line)
}

func (c *Compiler) compileWhile(n *ast.While) {
	line := lineOf(n)
	condStart := c.here()
	c.compileExpr(n.Condition)
	exitJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, 0, line)
	loop := &loopCtx{continueTarget: condStart, baseTop: c.localTop}
	c.loops = append(c.loops, loop)
	c.compileBlock(n.Body)
	c.emitLoop(condStart, line)
	c.patchJump(exitJump)
	c.emit(OpPop, 0, line)
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) compileDoUntil(n *ast.DoUntil) {
	line := lineOf(n)
	bodyStart := c.here()
	loop := &loopCtx{continueTarget: -1, baseTop: c.localTop}
	c.loops = append(c.loops, loop)
	c.compileBlock(n.Body)
	for _, j := range loop.continueJumps {
		c.patchJump(j)
	}
	c.compileExpr(n.Condition)
	// `until` loops while the condition is false: re-enter the body when
	// it is still false, exit once it becomes true.
	falseJump := c.emitJump(OpJumpIfFalse, line)
	c.emit(OpPop, 0, line) // condition true: discard it, exit
	doneJump := c.emitJump(OpJump, line)
	c.patchJump(falseJump)
	c.emit(OpPop, 0, line) // condition false: discard it, loop again
	c.emitLoop(bodyStart, line)
	c.patchJump(doneJump)
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
}

// compileForEach lowers iteration over the hidden container/cursor locals
// the parser reserved (spec.md §4.4 "Foreach"): each pass through FOREACH
// either advances the cursor and binds the next element, or jumps past the
// loop once the container is exhausted.
func (c *Compiler) compileForEach(n *ast.ForEach) {
	line := lineOf(n)
	mark := c.localTop
	// The container and cursor are fresh locals: each push lands directly
	// in its slot, same as a VarDeclaration's initializer, so no SET_LOCAL
	// is needed yet — that's only for overwriting a slot that already holds
	// a value, which is what every later iteration does.
	c.compileExpr(n.Iterable)
	c.localTop = n.ContainerSlot + 1
	c.emit(OpConstant, uint32(c.chunk.AddConstant(Int(0))), line)
	c.localTop = n.CursorSlot + 1
	// The loop variables get their slots the same way, holding null until
	// the first FOREACH binds them, so every SET_LOCAL below writes to a slot
	// that sits under FOREACH's pushed temporaries.
	if n.KeySlot >= 0 {
		c.emit(OpNull, 0, line)
		c.localTop = n.KeySlot + 1
	}
	c.emit(OpNull, 0, line)
	c.localTop = n.ValueSlot + 1

	loopStart := c.here()
	c.emit(OpGetLocal, uint32(n.ContainerSlot), line)
	c.emit(OpGetLocal, uint32(n.CursorSlot), line)
	exitJump := c.emitJump(OpForeach, line)
	// FOREACH, when it does not exit, leaves the advanced cursor and then
	// the bound value(s) (key first, then value, when both are requested)
	// on top of the stack; SET_LOCAL pops each back into its permanent slot.
	// Whether a key is actually pushed is a runtime decision keyed off the
	// container's kind (foreachStep's hasKey, vm_ops.go), not off whether
	// this loop asked for one: a single-variable `foreach` over a list,
	// map, or string still gets a key pushed underneath its value. When
	// the loop didn't reserve a KeySlot for it, that key has to be popped
	// and discarded here, or it silently slides into the value slot instead
	// of the real element (and leaks one stack slot per iteration).
	c.emit(OpSetLocal, uint32(n.CursorSlot), line)
	if n.KeySlot >= 0 {
		c.emit(OpSetLocal, uint32(n.KeySlot), line)
	} else if foreachHasKey(n.Iterable.Type()) {
		c.emit(OpPop, 0, line)
	}
	c.emit(OpSetLocal, uint32(n.ValueSlot), line)
	if top := n.ValueSlot + 1; top > c.localTop {
		c.localTop = top
	}

	loop := &loopCtx{continueTarget: loopStart, baseTop: c.localTop}
	c.loops = append(c.loops, loop)
	for _, s := range n.Body.Statements {
		c.compileStmt(s)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.emitLoop(loopStart, line)
	c.patchJump(exitJump)
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.endScope(mark, line)
}

// foreachHasKey mirrors foreachStep's hasKey decision (vm_ops.go) but at
// compile time, from the iterable's static type: lists, maps, and strings
// always produce a key, ranges and enums never do.
func foreachHasKey(t *types.TypeDef) bool {
	if t == nil {
		return false
	}
	switch t.Resolved().Kind {
	case types.List, types.Map, types.String:
		return true
	}
	return false
}

func (c *Compiler) compileReturn(n *ast.Return) {
	line := lineOf(n)
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.emit(OpVoid, 0, line)
	}
	c.emit(OpReturn, 0, line)
}

// unwindToLoop emits the POP/CLOSE_UPVALUE a break or continue owes for any
// nested-block locals introduced since the loop body started: the jump
// bypasses those blocks' own endScope, so the discard has to happen here
// instead (spec.md §4.5 "Roots").
func (c *Compiler) unwindToLoop(top *loopCtx, line int) {
	if c.localTop <= top.baseTop {
		return
	}
	c.emit(OpCloseUpvalue, uint32(top.baseTop), line)
	for i := c.localTop; i > top.baseTop; i-- {
		c.emit(OpPop, 0, line)
	}
}

func (c *Compiler) compileBreak(n *ast.Break) {
	if len(c.loops) == 0 {
		return
	}
	top := c.loops[len(c.loops)-1]
	line := lineOf(n)
	c.unwindToLoop(top, line)
	top.breakJumps = append(top.breakJumps, c.emitJump(OpJump, line))
}

func (c *Compiler) compileContinue(n *ast.Continue) {
	if len(c.loops) == 0 {
		return
	}
	top := c.loops[len(c.loops)-1]
	line := lineOf(n)
	c.unwindToLoop(top, line)
	if top.continueTarget >= 0 {
		c.emitLoop(top.continueTarget, line)
	} else {
		top.continueJumps = append(top.continueJumps, c.emitJump(OpJump, line))
	}
}

// bindDeclared emits the final DEFINE_GLOBAL or local-slot bookkeeping for
// a just-pushed declaration value, mirroring compileVarDecl's Slot/Index
// convention for every other name-introducing declaration (fun/object/enum).
func (c *Compiler) bindDeclared(slot ast.SlotKind, index int, line int) {
	switch slot {
	case ast.SlotGlobal:
		c.emit(OpDefineGlobal, uint32(index), line)
	case ast.SlotLocal:
		c.localTop = index + 1
	}
}

// compileFunDecl compiles a named function and binds it: globally at script
// scope, or as a local in a nested scope (spec.md §4.2 "Functions").
func (c *Compiler) compileFunDecl(n *ast.FunDeclaration) {
	line := lineOf(n.Fn)
	kind := types.KindFunction
	if n.Fn.Name == "main" {
		kind = types.KindEntryPoint
	}
	c.compileClosureExpr(n.Fn, kind)
	c.bindDeclared(n.Slot, n.Index, line)
}

// buildObjectTemplate snapshots an object type's static shape (name, field
// types, which fields are static) into a heap Object the OBJECT instruction
// copies at runtime, so running the same declaration twice never aliases
// the same Methods/FieldDefaults/Statics maps (spec.md §3 "Object").
func (c *Compiler) buildObjectTemplate(t *types.TypeDef) *Object {
	obj := &Object{
		Name:         t.ObjectName,
		FieldTypes:   make(map[string]*types.TypeDef, len(t.Fields)),
		StaticFields: make(map[string]bool, len(t.StaticFields)),
	}
	for k, v := range t.Fields {
		obj.FieldTypes[k] = v
	}
	for k, v := range t.StaticFields {
		obj.StaticFields[k] = v
	}
	return obj
}

// compileObjectDecl lowers `object Name < Parent { ... }`. OBJECT pushes a
// fresh runtime Object copied from the compile-time template; INHERIT,
// METHOD, and the two PROPERTY forms peek that Object (leaving it on the
// stack) while they attach the parent link, methods, and field defaults,
// so the whole declaration body runs as one straight-line sequence ending
// in a single DEFINE_GLOBAL/local bind (spec.md §3 "Object").
func (c *Compiler) compileObjectDecl(n *ast.ObjectDeclaration) {
	line := lineOf(n)
	objType := n.Type()
	template := c.buildObjectTemplate(objType)
	idx := c.chunk.AddConstant(Obj(template))
	c.emit(OpObject, uint32(idx), line)

	if n.HasParent {
		switch n.ParentSlot {
		case ast.SlotLocal:
			c.emit(OpGetLocal, uint32(n.ParentIndex), line)
		case ast.SlotUpvalue:
			c.emit(OpGetUpvalue, uint32(n.ParentIndex), line)
		default:
			c.emit(OpGetGlobal, uint32(n.ParentIndex), line)
		}
		c.emit(OpInherit, 0, line)
	}

	for _, f := range n.Fields {
		nameIdx := uint32(c.constString(f.Name))
		switch {
		case f.Method != nil:
			c.compileClosureExpr(f.Method, types.KindMethod)
			c.emit(OpMethod, nameIdx, line)
		case f.Static && f.Default != nil:
			c.compileExpr(f.Default)
			c.emit(OpStaticProperty, nameIdx, line)
		case f.Default != nil:
			// Field-default expressions compile as zero-arg closures with no
			// receiver slot, so they cannot reference `self`.
			c.compileDefaultThunk(f.Default)
			c.emit(OpProperty, nameIdx, line)
		}
	}

	c.bindDeclared(n.Slot, n.Index, line)
}

// compileDefaultThunk compiles a field-default expression into its own
// zero-arg chunk, pushed as a Closure value.
func (c *Compiler) compileDefaultThunk(e ast.Expression) {
	line := lineOf(e)
	prevChunk, prevLoops, prevTop := c.chunk, c.loops, c.localTop
	c.chunk = NewChunk("<default>", c.interner)
	c.loops = nil
	c.localTop = 0
	c.compileExpr(e)
	c.emit(OpReturn, 0, line)
	fnVal := &Function{Name: "<default>", Chunk: c.chunk, Arity: 0, Kind: types.KindAnonymous}
	c.chunk, c.loops, c.localTop = prevChunk, prevLoops, prevTop
	constIdx := c.chunk.AddConstant(Obj(fnVal))
	c.emit(OpClosure, uint32(constIdx), line)
}

// compileEnumDecl lowers `enum Name { A, B = 2, ... }`: ENUM pushes a fresh
// Enum value built from the already-resolved case ordinals/values, one
// ENUM_CASE per case appends a name/value pair, and the result binds like
// any other declaration.
func (c *Compiler) compileEnumDecl(n *ast.EnumDeclaration) {
	line := lineOf(n)
	enumType := n.Type()
	nameIdx := c.constString(enumType.EnumName)
	c.emit(OpEnum, uint32(nameIdx), line)
	for _, cs := range n.Cases {
		caseNameIdx := uint32(c.constString(cs.Name))
		if cs.Value != nil {
			c.compileExpr(cs.Value)
		} else {
			c.emit(OpNull, 0, line)
		}
		c.emit(OpEnumCase, caseNameIdx, line)
	}
	c.bindDeclared(n.Slot, n.Index, line)
}

// compileTestDecl compiles a `test "..."` body as a zero-arg function and,
// in test mode, invokes it inline at the point the declaration is reached
// (spec.md §6 "test"). Outside test mode the declaration compiles to
// nothing: tests never run as part of ordinary script execution.
func (c *Compiler) compileTestDecl(n *ast.TestDeclaration) {
	if !c.testMode {
		return
	}
	line := lineOf(n)
	fn := &ast.Function{Name: n.Name, Body: n.Body}
	fn.Token = n.Token
	value := c.compileFunctionValue(fn, types.KindTest)
	constIdx := c.chunk.AddConstant(Obj(value))
	c.emit(OpClosure, uint32(constIdx), line)
	c.emit(OpCall, 0, line)
	c.emitWord(0, line)
	c.emit(OpPop, 0, line)
}
