package parser

import (
	"strconv"
	"strings"

	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

// precedence levels, low to high, per spec.md §4.2.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precRange
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

func precedenceOf(t token.Type) precedence {
	switch t {
	case token.ASSIGN:
		return precAssignment
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQUAL, token.NOT_EQUAL:
		return precEquality
	case token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL, token.IS:
		return precComparison
	case token.DOT_DOT:
		return precRange
	case token.PLUS, token.MINUS:
		return precTerm
	case token.STAR, token.SLASH, token.PERCENT:
		return precFactor
	case token.LPAREN, token.LBRACKET, token.DOT, token.QUESTION_QUESTION, token.BANG:
		return precCall
	default:
		return precNone
	}
}

// parseExpression parses an expression with precedence climbing, stopping
// when the next operator binds less tightly than min.
func (p *Parser) parseExpression(min precedence) ast.Expression {
	left := p.parseUnary()

	for {
		op := p.cur().Type
		prec := precedenceOf(op)
		if prec < min || prec == precNone {
			break
		}
		switch op {
		case token.LPAREN:
			left = p.finishCall(left)
		case token.LBRACKET:
			left = p.finishSubscript(left)
		case token.DOT:
			left = p.finishDot(left, false)
		case token.QUESTION_QUESTION:
			p.advance()
			right := p.parseExpression(precOr)
			left = p.makeNullCoalesce(left, right)
		case token.BANG:
			p.advance()
			left = p.makeForceUnwrap(left)
		case token.DOT_DOT:
			p.advance()
			right := p.parseExpression(precRange + 1)
			left = p.makeRange(left, right)
		case token.IS:
			p.advance()
			name := p.expect(token.IDENT, "after 'is'")
			left = p.makeIs(left, name.Literal, name.Pos)
		default:
			p.advance()
			right := p.parseExpression(prec + 1)
			left = p.makeBinary(left, op, right)
		}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.check(token.MINUS) || p.check(token.BANG) {
		op := p.advance()
		operand := p.parseUnaryPrec(precUnary)
		return p.makeUnary(op, operand)
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parseUnaryPrec(prec precedence) ast.Expression {
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix handles call/subscript/dot/`?.`/`!` chains directly after a
// primary, before falling back into the general precedence loop.
func (p *Parser) parsePostfix(expr ast.Expression) ast.Expression {
	for {
		switch p.cur().Type {
		case token.LPAREN:
			expr = p.finishCall(expr)
		case token.LBRACKET:
			expr = p.finishSubscript(expr)
		case token.DOT:
			expr = p.finishDot(expr, false)
		case token.QUESTION:
			if p.peek().Type == token.DOT {
				p.advance() // '?'
				expr = p.finishDot(expr, true)
				continue
			}
			return expr
		case token.BANG:
			p.advance()
			expr = p.makeForceUnwrap(expr)
		default:
			return expr
		}
	}
}

// finishDot parses `.name` (or, having already consumed the leading '?',
// `?.name`). An optional dot lowers to a DotExpr whose Optional flag tells
// the code generator to emit the Unwrap test-null-and-skip jump spec.md
// §4.3 describes under "Optional-chaining short-circuit".
func (p *Parser) finishDot(receiver ast.Expression, optional bool) ast.Expression {
	dotTok := p.advance() // '.'
	name := p.expect(token.IDENT, "after '.'")
	d := &ast.DotExpr{Receiver: receiver, Name: name.Literal, Optional: optional}
	d.Token = dotTok
	p.inferDot(d)
	if optional && d.Type() != nil {
		d.SetType(d.Type().AsOptional())
	}
	return d
}

func (p *Parser) finishSubscript(coll ast.Expression) ast.Expression {
	tok := p.advance() // '['
	idx := p.parseExpression(precAssignment + 1)
	p.expect(token.RBRACKET, "to close subscript")
	s := &ast.SubscriptExpr{Collection: coll, Index: idx}
	s.Token = tok
	p.inferSubscript(s)
	return s
}

func (p *Parser) finishCall(callee ast.Expression) ast.Expression {
	tok := p.advance() // '('
	call := &ast.CallExpr{Callee: callee}
	call.Token = tok
	for !p.check(token.RPAREN) && !p.atEnd() {
		call.Arguments = append(call.Arguments, p.parseArgument())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "to close call arguments")
	p.inferCall(call)
	return call
}

func (p *Parser) parseArgument() ast.Argument {
	// `name: value` or `$: value` named argument, else positional.
	if (p.check(token.IDENT) || p.check(token.DOLLAR)) && p.peek().Type == token.COLON {
		name := p.advance().Literal
		p.advance() // ':'
		return ast.Argument{Name: name, Value: p.parseExpression(precAssignment + 1)}
	}
	return ast.Argument{Value: p.parseExpression(precAssignment + 1)}
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case token.NULL:
		p.advance()
		n := &ast.NullLiteral{}
		n.Token = tok
		n.SetType(p.registry.Void().AsOptional())
		return n
	case token.TRUE, token.FALSE:
		p.advance()
		b := &ast.BooleanLiteral{Value: tok.Type == token.TRUE}
		b.Token = tok
		b.SetType(p.registry.Bool())
		return b
	case token.INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Literal, 10, 32)
		if err != nil {
			p.diags.Add(errors.LexError, tok.Pos, "integer literal overflow: %s", tok.Literal)
		}
		i := &ast.IntegerLiteral{Value: int32(v)}
		i.Token = tok
		i.SetType(p.registry.Integer())
		return i
	case token.FLOAT:
		p.advance()
		v, _ := strconv.ParseFloat(tok.Literal, 64)
		f := &ast.FloatLiteral{Value: v}
		f.Token = tok
		f.SetType(p.registry.Float())
		return f
	case token.STRING:
		p.advance()
		s := &ast.StringLiteral{Value: tok.Literal}
		s.Token = tok
		s.SetType(p.registry.String())
		return s
	case token.STRING_INTERP:
		return p.parseInterpString(tok)
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.LBRACE:
		return p.parseMapLiteral()
	case token.LPAREN:
		p.advance()
		e := p.parseExpression(precAssignment)
		p.expect(token.RPAREN, "to close parenthesized expression")
		return e
	case token.FUN:
		return p.parseAnonymousFunction()
	case token.IDENT:
		return p.parseIdentOrInit()
	default:
		p.advance()
		p.diags.Add(errors.ParseError, tok.Pos, "unexpected token %q in expression", tok.Literal)
		n := &ast.NullLiteral{}
		n.Token = tok
		n.SetType(p.registry.Void().AsOptional())
		return n
	}
}

func (p *Parser) parseInterpString(tok token.Token) ast.Expression {
	p.advance()
	pieces := strings.Split(tok.Literal, "\x00")
	s := &ast.InterpString{Pieces: pieces}
	s.Token = tok
	for _, sub := range tok.Interp {
		sp := New(sub, p.registry, p.diags, p.importer)
		sp.frame = p.frame
		sp.globals = p.globals
		sp.pendingPlaceholders = p.pendingPlaceholders
		sp.objects = p.objects
		sp.enums = p.enums
		expr := sp.parseExpression(precAssignment)
		s.Exprs = append(s.Exprs, expr)
	}
	s.SetType(p.registry.String())
	return s
}

func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.advance() // '['
	l := &ast.ListLiteral{}
	l.Token = tok
	for !p.check(token.RBRACKET) && !p.atEnd() {
		l.Elements = append(l.Elements, p.parseExpression(precAssignment+1))
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "to close list literal")
	item := p.registry.Void()
	if len(l.Elements) > 0 {
		item = l.Elements[0].Type()
	}
	l.SetType(p.registry.List(item))
	return l
}

func (p *Parser) parseMapLiteral() ast.Expression {
	tok := p.advance() // '{'
	m := &ast.MapLiteral{}
	m.Token = tok
	for !p.check(token.RBRACE) && !p.atEnd() {
		key := p.parseExpression(precAssignment + 1)
		p.expect(token.COLON, "between map key and value")
		val := p.parseExpression(precAssignment + 1)
		m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: val})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close map literal")
	keyT, valT := p.registry.Void(), p.registry.Void()
	if len(m.Entries) > 0 {
		keyT, valT = m.Entries[0].Key.Type(), m.Entries[0].Value.Type()
	}
	m.SetType(p.registry.Map(keyT, valT))
	return m
}

func (p *Parser) parseIdentOrInit() ast.Expression {
	tok := p.advance()
	name := tok.Literal

	if p.check(token.LBRACE) {
		if _, ok := p.registry.LookupObject(name); ok {
			return p.finishObjectInit(tok, name)
		}
	}

	nv := &ast.NamedVariable{Name: name}
	nv.Token = tok
	p.resolveVariable(nv)
	return nv
}

// resolveVariable assigns a NamedVariable its slot kind/index by walking the
// current frame then enclosing frames (spec.md §4.2 "Scoping"): local,
// then upvalue (inserting intermediate upvalue records), then global.
func (p *Parser) resolveVariable(nv *ast.NamedVariable) {
	slot, idx, typ, ok := p.resolveName(nv.Name)
	if !ok {
		p.diags.Add(errors.ResolutionError, nv.Pos(), "undefined name %q", nv.Name)
		nv.SetType(p.registry.Void())
		return
	}
	nv.Slot, nv.Index = slot, idx
	nv.SetType(typ)
}

// resolveName looks up name exactly as a NamedVariable would: current
// frame's locals, then enclosing frames as upvalues, then the module-wide
// globals array. Shared by resolveVariable and finishObjectInit so a class
// name shadowed by a local resolves the same way a plain variable would.
func (p *Parser) resolveName(name string) (ast.SlotKind, int, *types.TypeDef, bool) {
	if idx, typ, ok := p.frame.resolveLocal(name); ok {
		return ast.SlotLocal, idx, typ, true
	}
	if idx, typ, ok := p.frame.resolveUpvalue(name); ok {
		return ast.SlotUpvalue, idx, typ, true
	}
	for i, g := range p.globals {
		if g.Name == name {
			return ast.SlotGlobal, i, g.Type, true
		}
	}
	return 0, 0, nil, false
}

func (p *Parser) finishObjectInit(tok token.Token, name string) ast.Expression {
	p.advance() // '{'
	init := &ast.ObjectInitExpr{ObjectName: name}
	init.Token = tok
	for !p.check(token.RBRACE) && !p.atEnd() {
		init.Fields = append(init.Fields, p.parseArgument())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close object initializer")
	obj, _ := p.registry.LookupObject(name)
	init.SetType(p.registry.Instance(obj))
	if slot, idx, _, ok := p.resolveName(name); ok {
		init.Slot, init.Index = slot, idx
	}
	p.checkObjectInit(name, init)
	return init
}

// checkObjectInit reports "not initialized" for any field lacking a
// default value that the initializer omits (spec.md §4.2 "Object
// inheritance").
func (p *Parser) checkObjectInit(name string, init *ast.ObjectInitExpr) {
	decl, ok := p.objects[name]
	if !ok {
		return
	}
	provided := make(map[string]bool, len(init.Fields))
	for _, f := range init.Fields {
		provided[f.Name] = true
	}
	for decl != nil {
		for _, f := range decl.Fields {
			if f.Method != nil || f.Static {
				continue
			}
			if f.Default == nil && !provided[f.Name] {
				p.diags.Add(errors.CompileError, init.Pos(), "field %q of %q is not initialized", f.Name, name)
			}
		}
		if decl.Parent == "" {
			break
		}
		decl = p.objects[decl.Parent]
	}
}

func (p *Parser) parseAnonymousFunction() ast.Expression {
	fn := p.parseFunctionBody("", types.KindAnonymous)
	return fn
}

// --- node constructors with local type inference (spec.md §4.2 "Types") ---

func (p *Parser) makeUnary(op token.Token, operand ast.Expression) ast.Expression {
	u := &ast.UnaryExpr{Operator: op.Type, Operand: operand}
	u.Token = op
	switch op.Type {
	case token.BANG:
		if operand.Type().Kind != types.Bool {
			p.diags.Add(errors.TypeError, op.Pos, "'!' requires bool, got %s", operand.Type())
		}
		u.SetType(p.registry.Bool())
	case token.MINUS:
		u.SetType(operand.Type())
	}
	return u
}

func (p *Parser) makeBinary(left ast.Expression, op token.Type, right ast.Expression) ast.Expression {
	b := &ast.BinaryExpr{Operator: op, Left: left, Right: right}
	b.Token = token.Token{Type: op, Pos: left.Pos()}
	switch op {
	case token.EQUAL, token.NOT_EQUAL, token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL:
		b.SetType(p.registry.Bool())
	case token.AND, token.OR:
		if left.Type().Kind != types.Bool || right.Type().Kind != types.Bool {
			p.diags.Add(errors.TypeError, b.Pos(), "'%s' requires bool operands", op)
		}
		b.SetType(p.registry.Bool())
	case token.PLUS:
		b.SetType(p.inferAddType(left, right))
	default:
		b.SetType(left.Type())
	}
	return b
}

// inferAddType implements ADD's polymorphism over Integer/Float/String/
// List/Map (spec.md §4.4 "Main loop").
func (p *Parser) inferAddType(left, right ast.Expression) *types.TypeDef {
	lt := left.Type()
	if lt == nil {
		return p.registry.Void()
	}
	switch lt.Kind {
	case types.List, types.Map, types.String, types.Integer, types.Float:
		return lt
	default:
		return lt
	}
}

func (p *Parser) makeIs(left ast.Expression, typeName string, pos token.Position) ast.Expression {
	e := &ast.IsExpr{Left: left, TypeName: typeName}
	e.Token = token.Token{Type: token.IS, Pos: pos}
	e.SetType(p.registry.Bool())
	return e
}

func (p *Parser) makeRange(low, high ast.Expression) ast.Expression {
	r := &ast.RangeLiteral{Low: low, High: high}
	r.Token = token.Token{Type: token.DOT_DOT, Pos: low.Pos()}
	r.SetType(p.registry.Range())
	return r
}

func (p *Parser) makeNullCoalesce(left, right ast.Expression) ast.Expression {
	n := &ast.NullCoalesceExpr{Left: left, Right: right}
	if left.Type() != nil {
		n.SetType(left.Type().NonOptional())
	}
	return n
}

func (p *Parser) makeForceUnwrap(operand ast.Expression) ast.Expression {
	f := &ast.ForceUnwrapExpr{Operand: operand}
	if operand.Type() != nil {
		if !operand.Type().Optional {
			p.diags.Add(errors.TypeError, operand.Pos(), "'!' requires an optional operand")
		}
		f.SetType(operand.Type().NonOptional())
	}
	return f
}

func (p *Parser) inferDot(d *ast.DotExpr) {
	recv := d.Receiver.Type()
	if recv == nil {
		return
	}
	base := recv.Resolved()
	if base.Kind == types.ObjectInstance {
		obj := base.ObjectBacking
		for o := obj; o != nil; o = o.Super {
			if t, ok := o.Fields[d.Name]; ok {
				d.SetType(t)
				return
			}
			if t, ok := o.Methods[d.Name]; ok {
				d.SetType(t)
				return
			}
		}
	}
	switch base.Kind {
	case types.List:
		switch d.Name {
		case "len":
			d.SetType(p.registry.Func("len", types.KindExtern, nil, p.registry.Integer()))
		case "append":
			params := []types.Param{{Name: "item", Type: base.Item}}
			d.SetType(p.registry.Func("append", types.KindExtern, params, p.registry.Void()))
		}
	case types.Map:
		if d.Name == "len" {
			d.SetType(p.registry.Func("len", types.KindExtern, nil, p.registry.Integer()))
		}
	case types.String:
		if d.Name == "len" {
			d.SetType(p.registry.Func("len", types.KindExtern, nil, p.registry.Integer()))
		}
	case types.EnumInstance:
		// `EnumName.Case` — the declaration's own global holds the Enum
		// value itself (declarations.go parseEnumDeclaration binds it with
		// EnumInstance type), so a dotted case name here names one of its
		// cases rather than an instance field.
		for _, cs := range base.EnumBacking.Cases {
			if cs == d.Name {
				d.SetType(p.registry.EnumInstance(base.EnumBacking))
				return
			}
		}
	}
}

func (p *Parser) inferSubscript(s *ast.SubscriptExpr) {
	t := s.Collection.Type()
	if t == nil {
		return
	}
	switch t.Resolved().Kind {
	case types.List:
		s.SetType(t.Resolved().Item)
	case types.Map:
		s.SetType(t.Resolved().Value)
	default:
		s.SetType(p.registry.Void())
	}
}

func (p *Parser) inferCall(c *ast.CallExpr) {
	t := c.Callee.Type()
	if t == nil {
		c.SetType(p.registry.Void())
		return
	}
	resolved := t.Resolved()
	if resolved.Kind == types.Function {
		c.SetType(resolved.Return)
		p.checkArguments(c, resolved)
		return
	}
	c.SetType(p.registry.Void())
}

// checkArguments validates arity and binds positional/named arguments
// against the declared parameter list, honoring the `$` first-parameter
// shorthand (spec.md §4.2 "Types", "Call checks arity...").
func (p *Parser) checkArguments(c *ast.CallExpr, fn *types.TypeDef) {
	bound := make([]bool, len(fn.Params))
	positional := 0
	for _, arg := range c.Arguments {
		switch {
		case arg.Name == "":
			if positional < len(fn.Params) {
				bound[positional] = true
			}
			positional++
		case arg.Name == "$":
			if len(fn.Params) > 0 {
				bound[0] = true
			}
		default:
			found := false
			for i, prm := range fn.Params {
				if prm.Name == arg.Name {
					bound[i] = true
					found = true
					break
				}
			}
			if !found {
				p.diags.Add(errors.TypeError, c.Pos(), "no parameter named %q", arg.Name)
			}
		}
	}
	for i, prm := range fn.Params {
		if !bound[i] && !prm.Default {
			p.diags.Add(errors.TypeError, c.Pos(), "missing required argument %q", prm.Name)
		}
	}
}
