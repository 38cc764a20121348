package bytecode

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

// compileExpr emits the bytecode that leaves exactly one Value on the stack:
// the result of evaluating e.
func (c *Compiler) compileExpr(e ast.Expression) {
	line := lineOf(e)
	switch n := e.(type) {
	case *ast.NullLiteral:
		c.emit(OpNull, 0, line)
	case *ast.BooleanLiteral:
		c.compileBool(n.Value, line)
	case *ast.IntegerLiteral:
		c.emit(OpConstant, uint32(c.chunk.AddConstant(Int(n.Value))), line)
	case *ast.FloatLiteral:
		c.emit(OpConstant, uint32(c.chunk.AddConstant(Float(n.Value))), line)
	case *ast.StringLiteral:
		c.emit(OpConstant, uint32(c.constString(n.Value)), line)
	case *ast.InterpString:
		c.compileInterpString(n)
	case *ast.ListLiteral:
		c.compileListLiteral(n)
	case *ast.MapLiteral:
		c.compileMapLiteral(n)
	case *ast.RangeLiteral:
		c.compileExpr(n.Low)
		c.compileExpr(n.High)
		c.emit(OpRange, 0, line)
	case *ast.NamedVariable:
		c.compileNamedVariableLoad(n)
	case *ast.UnaryExpr:
		c.compileExpr(n.Operand)
		c.compileUnaryOp(n.Operator, line)
	case *ast.BinaryExpr:
		c.compileBinary(n)
	case *ast.IsExpr:
		c.compileExpr(n.Left)
		idx := c.constString(n.TypeName)
		c.emit(OpIs, uint32(idx), line)
	case *ast.UnwrapExpr:
		c.compileExpr(n.Operand)
	case *ast.ForceUnwrapExpr:
		c.compileExpr(n.Operand)
		c.emit(OpUnwrap, 0, line)
	case *ast.NullCoalesceExpr:
		c.compileExpr(n.Left)
		c.emit(OpCopy, 0, line)
		c.emit(OpNull, 0, line)
		c.emit(OpEqual, 0, line)
		skip := c.emitJump(OpJumpIfFalse, line)
		c.emit(OpPop, 0, line) // drop the null left operand
		c.compileExpr(n.Right)
		c.patchJump(skip)
	case *ast.SubscriptExpr:
		c.compileExpr(n.Collection)
		c.compileExpr(n.Index)
		c.emit(OpGetSubscript, 0, line)
	case *ast.DotExpr:
		c.compileDotGet(n)
	case *ast.SuperExpr:
		// Unreached from surface syntax today (no `super` keyword is lexed
		// yet); SUPER_INVOKE plumbing exists in the VM for when it is.
		c.emit(OpGetLocal, 0, line)
	case *ast.ObjectInitExpr:
		c.compileObjectInit(n)
	case *ast.CallExpr:
		c.compileCall(n)
	case *ast.Function:
		c.compileClosureExpr(n, types.KindAnonymous)
	default:
		c.emit(OpNull, 0, line)
	}
}

func (c *Compiler) compileBool(v bool, line int) {
	c.emit(OpConstant, uint32(c.chunk.AddConstant(Bool(v))), line)
}

func (c *Compiler) compileUnaryOp(op token.Type, line int) {
	switch op {
	case token.MINUS:
		c.emit(OpNegate, 0, line)
	case token.BANG:
		c.emit(OpNot, 0, line)
	}
}

// compileBinary implements short-circuiting `and`/`or` with jumps and
// everything else as a compile-both-sides-then-operate sequence.
func (c *Compiler) compileBinary(n *ast.BinaryExpr) {
	line := lineOf(n)
	switch n.Operator {
	case token.AND:
		c.compileExpr(n.Left)
		c.emit(OpCopy, 0, line)
		shortCircuit := c.emitJump(OpJumpIfFalse, line)
		c.emit(OpPop, 0, line)
		c.compileExpr(n.Right)
		c.patchJump(shortCircuit)
		return
	case token.OR:
		c.compileExpr(n.Left)
		c.emit(OpCopy, 0, line)
		isFalse := c.emitJump(OpJumpIfFalse, line)
		skipRight := c.emitJump(OpJump, line)
		c.patchJump(isFalse)
		c.emit(OpPop, 0, line)
		c.compileExpr(n.Right)
		c.patchJump(skipRight)
		return
	}

	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	switch n.Operator {
	case token.PLUS:
		c.emit(OpAdd, 0, line)
	case token.MINUS:
		c.emit(OpSubtract, 0, line)
	case token.STAR:
		c.emit(OpMultiply, 0, line)
	case token.SLASH:
		c.emit(OpDivide, 0, line)
	case token.PERCENT:
		c.emit(OpMod, 0, line)
	case token.EQUAL:
		c.emit(OpEqual, 0, line)
	case token.NOT_EQUAL:
		c.emit(OpEqual, 0, line)
		c.emit(OpNot, 0, line)
	case token.LESS:
		c.emit(OpLess, 0, line)
	case token.LESS_EQUAL:
		c.emit(OpGreater, 0, line)
		c.emit(OpNot, 0, line)
	case token.GREATER:
		c.emit(OpGreater, 0, line)
	case token.GREATER_EQUAL:
		c.emit(OpLess, 0, line)
		c.emit(OpNot, 0, line)
	}
}

// compileInterpString lowers `"a{x}b"` to a left fold of STRING_CONCAT over
// each literal piece and each sub-expression's TO_STRING (spec.md §4.1
// "String interpolation").
func (c *Compiler) compileInterpString(n *ast.InterpString) {
	line := lineOf(n)
	c.emit(OpConstant, uint32(c.constString(n.Pieces[0])), line)
	for i, expr := range n.Exprs {
		c.compileExpr(expr)
		c.emit(OpToString, 0, line)
		c.emit(OpStringConcat, 0, line)
		if i+1 < len(n.Pieces) && n.Pieces[i+1] != "" {
			c.emit(OpConstant, uint32(c.constString(n.Pieces[i+1])), line)
			c.emit(OpStringConcat, 0, line)
		}
	}
}

func (c *Compiler) compileListLiteral(n *ast.ListLiteral) {
	line := lineOf(n)
	c.emit(OpList, 0, line)
	for _, el := range n.Elements {
		c.compileExpr(el)
		c.emit(OpAppendList, 0, line)
	}
}

func (c *Compiler) compileMapLiteral(n *ast.MapLiteral) {
	line := lineOf(n)
	c.emit(OpMap, 0, line)
	for _, entry := range n.Entries {
		c.compileExpr(entry.Key)
		c.compileExpr(entry.Value)
		c.emit(OpSetMap, 0, line)
	}
}

func (c *Compiler) compileNamedVariableLoad(n *ast.NamedVariable) {
	line := lineOf(n)
	switch n.Slot {
	case ast.SlotLocal:
		c.emit(OpGetLocal, uint32(n.Index), line)
	case ast.SlotUpvalue:
		c.emit(OpGetUpvalue, uint32(n.Index), line)
	case ast.SlotGlobal:
		c.emit(OpGetGlobal, uint32(n.Index), line)
	}
}

// compileDotGet handles both ordinary field/method access and the
// `?.` optional-chaining short-circuit (spec.md §4.3 "Optional-chaining
// short-circuit"): a null receiver skips straight to pushing null instead of
// faulting on GET_PROPERTY.
func (c *Compiler) compileDotGet(n *ast.DotExpr) {
	line := lineOf(n)
	c.compileExpr(n.Receiver)
	if !n.Optional {
		idx := c.constString(n.Name)
		c.emit(OpGetProperty, uint32(idx), line)
		return
	}
	c.emit(OpCopy, 0, line)
	c.emit(OpNull, 0, line)
	c.emit(OpEqual, 0, line)
	isNull := c.emitJump(OpJumpIfFalse, line)
	end := c.emitJump(OpJump, line)
	c.patchJump(isNull)
	c.emit(OpPop, 0, line) // drop the null receiver
	idx := c.constString(n.Name)
	c.emit(OpGetProperty, uint32(idx), line)
	c.patchJump(end)
}

// compileObjectInit compiles `Name{ field: value, ... }`: build an instance
// with every field defaulted, then overwrite the fields the initializer
// names explicitly, in source order.
func (c *Compiler) compileObjectInit(n *ast.ObjectInitExpr) {
	line := lineOf(n)
	c.emitLoadClassRef(n.Slot, n.Index, line)
	c.emit(OpInstance, 0, line)
	for _, f := range n.Fields {
		// SET_PROPERTY pops the object and the value, so the instance
		// reference being built up is duplicated first to survive the set.
		c.emit(OpCopy, 0, line)
		c.compileExpr(f.Value)
		idx := c.constString(f.Name)
		c.emit(OpSetProperty, uint32(idx), line)
	}
}

// emitLoadClassRef pushes the class-level *Object value an ObjectInitExpr
// names, resolved to the same local/upvalue/global slot a NamedVariable
// referencing that name would get (spec.md §4.2 "Scoping").
func (c *Compiler) emitLoadClassRef(slot ast.SlotKind, index int, line int) {
	switch slot {
	case ast.SlotLocal:
		c.emit(OpGetLocal, uint32(index), line)
	case ast.SlotUpvalue:
		c.emit(OpGetUpvalue, uint32(index), line)
	default:
		c.emit(OpGetGlobal, uint32(index), line)
	}
}

func (c *Compiler) compileClosureExpr(fn *ast.Function, kind types.FunctionKind) {
	line := lineOf(fn)
	value := c.compileFunctionValue(fn, kind)
	constIdx := c.chunk.AddConstant(Obj(value))
	c.emit(OpClosure, uint32(constIdx), line)
	for _, uv := range fn.Upvalues {
		c.emitWord(packCapture(uv.IsLocal, uv.Index), line)
	}
}

// compileCall binds each Argument.Value against the callee's declared
// parameter list exactly as the parser's checkArguments validated (spec.md
// §4.2 "Types": named args, the `$` shorthand, and defaulted omissions),
// then emits CALL with catch closures trailing the fixed argument list.
func (c *Compiler) compileCall(n *ast.CallExpr) {
	line := lineOf(n)

	if d, ok := n.Callee.(*ast.DotExpr); ok && !d.Optional {
		if fn := calleeFunctionType(d); fn != nil {
			c.compileExpr(d.Receiver)
			c.compileBoundArgs(n, fn)
			idx := c.constString(d.Name)
			c.emit(OpInvoke, uint32(idx), line)
			c.emitWord(uint32(len(fn.Params)), line)
			c.compileCatchTail(n, line)
			return
		}
	}

	fn := calleeFunctionType(n.Callee)
	c.compileExpr(n.Callee)
	argc := 0
	if fn != nil {
		c.compileBoundArgs(n, fn)
		argc = len(fn.Params)
	} else {
		for _, a := range n.Arguments {
			c.compileExpr(a.Value)
		}
		argc = len(n.Arguments)
	}
	c.emit(OpCall, uint32(argc), line)
	c.emitWord(uint32(len(n.Catches)), line)
	c.compileCatchTail(n, line)
}

func calleeFunctionType(e ast.Expression) *types.TypeDef {
	t := e.Type()
	if t == nil {
		return nil
	}
	r := t.Resolved()
	if r.Kind != types.Function {
		return nil
	}
	return r
}

// compileBoundArgs evaluates every declared parameter's value in slot
// order: the caller-supplied expression if bound, otherwise NULL (the
// callee's own prologue fills defaulted parameters in, compileParamDefaults).
func (c *Compiler) compileBoundArgs(n *ast.CallExpr, fn *types.TypeDef) {
	line := lineOf(n)
	slots := make([]ast.Expression, len(fn.Params))
	positional := 0
	for _, arg := range n.Arguments {
		switch {
		case arg.Name == "":
			if positional < len(slots) {
				slots[positional] = arg.Value
			}
			positional++
		case arg.Name == "$":
			if len(slots) > 0 {
				slots[0] = arg.Value
			}
		default:
			for i, prm := range fn.Params {
				if prm.Name == arg.Name {
					slots[i] = arg.Value
					break
				}
			}
		}
	}
	for _, val := range slots {
		if val != nil {
			c.compileExpr(val)
		} else {
			c.emit(OpNull, 0, line)
		}
	}
}

// compileCatchTail would emit one Closure per catch clause attached to this
// call site, trailing the fixed argument list (spec.md glossary, "Catch
// clause"). CallExpr.Catches is always empty today: catch-clause syntax is
// not yet wired into finishCall (see DESIGN.md), so there is nothing to
// compile here yet; the VM's CALL/INVOKE handlers still implement the
// catchCount half of the convention for when it is.
func (c *Compiler) compileCatchTail(n *ast.CallExpr, line int) {
	_ = n
	_ = line
}

func (c *Compiler) compileCatchClosure(catch *ast.Catch) {
	line := lineOf(catch)
	prevChunk, prevLoops, prevTop := c.chunk, c.loops, c.localTop
	c.chunk = NewChunk("<catch>", c.interner)
	c.loops = nil
	c.localTop = 1 // slot 0 is the caught error value
	for _, s := range catch.Body.Statements {
		c.compileStmt(s)
	}
	c.emit(OpVoid, 0, line)
	c.emit(OpReturn, 0, line)
	fnVal := &Function{Name: "<catch>", Chunk: c.chunk, Arity: 1, Kind: types.KindCatch}
	c.chunk, c.loops, c.localTop = prevChunk, prevLoops, prevTop
	idx := c.chunk.AddConstant(Obj(fnVal))
	c.emit(OpClosure, uint32(idx), line)
}
