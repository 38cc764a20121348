package parser

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

// parseDeclarationOrStatement dispatches on the leading token, covering
// every production of spec.md §6's `declaration` and `statement` rules.
func (p *Parser) parseDeclarationOrStatement() ast.Statement {
	defer func() {
		if r := recover(); r != nil {
			p.synchronize()
		}
	}()

	switch p.cur().Type {
	case token.IMPORT:
		return p.parseImport()
	case token.EXPORT:
		return p.parseExport()
	case token.FUN:
		if p.peek().Type == token.LPAREN && p.looksLikeVarDecl() {
			return p.parseVarDeclaration()
		}
		return p.parseFunDeclaration()
	case token.OBJECT:
		return p.parseObjectDeclaration()
	case token.ENUM:
		return p.parseEnumDeclaration()
	case token.TEST:
		return p.parseTestDeclaration()
	case token.CONST, token.BOOL_KW, token.INT_KW, token.FLOAT_KW, token.STR_KW, token.VOID_KW, token.LBRACKET, token.LBRACE:
		if p.looksLikeVarDecl() {
			return p.parseVarDeclaration()
		}
	case token.IDENT:
		if p.looksLikeVarDecl() {
			return p.parseVarDeclaration()
		}
	}
	return p.parseStatement()
}

// looksLikeVarDecl distinguishes `Type name ...;` declarations from bare
// expression statements that happen to start with an identifier (a call or
// assignment): a declaration is followed by another identifier before any
// of `( . [ = ;`.
func (p *Parser) looksLikeVarDecl() bool {
	save := p.pos
	defer func() { p.pos = save }()

	if p.check(token.CONST) {
		p.advance()
	}
	p.parseTypeNoDiag()
	return p.check(token.IDENT)
}

// parseTypeNoDiag speculatively consumes a type expression for lookahead
// without recording diagnostics for any malformed attempt.
func (p *Parser) parseTypeNoDiag() {
	saved := p.diags
	p.diags = errors.NewDiagnostics("", "")
	defer func() { p.diags = saved }()
	p.parseType()
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.FOREACH:
		return p.parseForEach()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoUntil()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		tok := p.advance()
		p.expect(token.SEMICOLON, "after 'break'")
		if p.frame.loopDepth == 0 {
			p.diags.Add(errors.ParseError, tok.Pos, "'break' outside of a loop")
		}
		b := &ast.Break{}
		b.Token = tok
		return b
	case token.CONTINUE:
		tok := p.advance()
		p.expect(token.SEMICOLON, "after 'continue'")
		if p.frame.loopDepth == 0 {
			p.diags.Add(errors.ParseError, tok.Pos, "'continue' outside of a loop")
		}
		c := &ast.Continue{}
		c.Token = tok
		return c
	case token.THROW:
		return p.parseThrow()
	case token.SEMICOLON:
		p.advance()
		return nil
	default:
		return p.parseExpressionOrAssignStatement()
	}
}

func (p *Parser) parseBlock() *ast.Block {
	tok := p.expect(token.LBRACE, "to open block")
	p.frame.beginScope()
	b := &ast.Block{}
	b.Token = tok
	for !p.check(token.RBRACE) && !p.atEnd() {
		s := p.parseDeclarationOrStatement()
		if s != nil {
			b.Statements = append(b.Statements, s)
		}
	}
	p.expect(token.RBRACE, "to close block")
	p.frame.endScope()
	return b
}

func (p *Parser) parseIf() ast.Statement {
	tok := p.advance()
	p.expect(token.LPAREN, "after 'if'")
	cond := p.parseExpression(precAssignment)
	p.expect(token.RPAREN, "after if condition")
	p.checkBool(cond, "if")
	then := p.parseBlock()
	stmt := &ast.If{Condition: cond, Then: then}
	stmt.Token = tok
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) checkBool(cond ast.Expression, context string) {
	if cond.Type() != nil && cond.Type().Kind != types.Bool {
		p.diags.Add(errors.TypeError, cond.Pos(), "%s condition must be bool, got %s", context, cond.Type())
	}
}

func (p *Parser) parseFor() ast.Statement {
	tok := p.advance()
	p.expect(token.LPAREN, "after 'for'")
	p.frame.beginScope()
	stmt := &ast.For{}
	stmt.Token = tok
	if !p.check(token.SEMICOLON) {
		stmt.Init = p.parseDeclarationOrStatement()
	} else {
		p.advance()
	}
	if !p.check(token.SEMICOLON) {
		stmt.Condition = p.parseExpression(precAssignment)
		p.checkBool(stmt.Condition, "for")
	}
	p.expect(token.SEMICOLON, "after for condition")
	if !p.check(token.RPAREN) {
		stmt.Post = p.parseExpressionOrAssignStatementNoSemi()
	}
	p.expect(token.RPAREN, "after for clauses")
	p.frame.loopDepth++
	stmt.Body = p.parseBlock()
	p.frame.loopDepth--
	p.frame.endScope()
	return stmt
}

func (p *Parser) parseForEach() ast.Statement {
	tok := p.advance()
	p.expect(token.LPAREN, "after 'foreach'")
	p.frame.beginScope()
	stmt := &ast.ForEach{}
	stmt.Token = tok

	// Hidden locals for the iterated container and iteration cursor, reserved
	// before the user-visible bindings so the code generator can address them
	// as plain GET_LOCAL/SET_LOCAL slots (spec.md §4.4 "Foreach").
	stmt.ContainerSlot = p.frame.addLocal("$for_container", nil)
	stmt.CursorSlot = p.frame.addLocal("$for_cursor", p.registry.Integer())

	firstType := p.parseType()
	firstName := p.expect(token.IDENT, "in foreach binding").Literal
	if p.match(token.COMMA) {
		stmt.KeyType, stmt.KeyName = firstType.String(), firstName
		valType := p.parseType()
		stmt.ValueName = p.expect(token.IDENT, "in foreach binding").Literal
		stmt.ValueType = valType.String()
		stmt.KeySlot = p.frame.addLocal(stmt.KeyName, p.resolveType(firstType))
		stmt.ValueSlot = p.frame.addLocal(stmt.ValueName, p.resolveType(valType))
	} else {
		stmt.ValueType, stmt.ValueName = firstType.String(), firstName
		stmt.KeySlot = -1
		stmt.ValueSlot = p.frame.addLocal(stmt.ValueName, p.resolveType(firstType))
	}
	p.expect(token.IN, "in foreach clause")
	stmt.Iterable = p.parseExpression(precAssignment)
	p.expect(token.RPAREN, "after foreach clause")
	p.frame.loopDepth++
	stmt.Body = p.parseBlock()
	p.frame.loopDepth--
	p.frame.endScope()
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.advance()
	p.expect(token.LPAREN, "after 'while'")
	cond := p.parseExpression(precAssignment)
	p.expect(token.RPAREN, "after while condition")
	p.checkBool(cond, "while")
	p.frame.loopDepth++
	body := p.parseBlock()
	p.frame.loopDepth--
	stmt := &ast.While{Condition: cond, Body: body}
	stmt.Token = tok
	return stmt
}

func (p *Parser) parseDoUntil() ast.Statement {
	tok := p.advance()
	p.frame.loopDepth++
	body := p.parseBlock()
	p.frame.loopDepth--
	p.expect(token.UNTIL, "after 'do' block")
	p.expect(token.LPAREN, "after 'until'")
	cond := p.parseExpression(precAssignment)
	p.expect(token.RPAREN, "after until condition")
	p.expect(token.SEMICOLON, "after do-until statement")
	p.checkBool(cond, "do-until")
	stmt := &ast.DoUntil{Body: body, Condition: cond}
	stmt.Token = tok
	return stmt
}

func (p *Parser) parseReturn() ast.Statement {
	tok := p.advance()
	stmt := &ast.Return{}
	stmt.Token = tok
	if !p.check(token.SEMICOLON) {
		stmt.Value = p.parseExpression(precAssignment)
	}
	p.expect(token.SEMICOLON, "after return statement")
	return stmt
}

func (p *Parser) parseThrow() ast.Statement {
	tok := p.advance()
	stmt := &ast.Throw{Value: p.parseExpression(precAssignment)}
	stmt.Token = tok
	p.expect(token.SEMICOLON, "after throw statement")
	return stmt
}

func (p *Parser) parseExpressionOrAssignStatement() ast.Statement {
	stmt := p.parseExpressionOrAssignStatementNoSemi()
	p.expect(token.SEMICOLON, "after statement")
	return stmt
}

func (p *Parser) parseExpressionOrAssignStatementNoSemi() ast.Statement {
	expr := p.parseExpression(precAssignment + 1)
	if p.check(token.ASSIGN) {
		tok := p.advance()
		value := p.parseExpression(precAssignment)
		p.checkAssignable(expr, value)
		stmt := &ast.AssignStatement{Target: expr, Operator: "=", Value: value}
		stmt.Token = tok
		return stmt
	}
	es := &ast.ExpressionStatement{Expr: expr}
	es.Token = token.Token{Pos: expr.Pos()}
	return es
}

// checkAssignable type-checks an assignment target. For subscript targets
// this validates against the collection's item/key/value type (spec.md
// §4.2 "Types": "Assignment to list/map index checks item/key/value
// types"); for everything else, against the target's own declared type.
func (p *Parser) checkAssignable(target ast.Expression, value ast.Expression) {
	if target.Type() == nil || value.Type() == nil {
		return
	}
	if !assignable(target.Type(), value.Type()) && target.Type().Kind != types.Placeholder {
		p.diags.Add(errors.TypeError, target.Pos(), "cannot assign %s to %s", value.Type(), target.Type())
	}
}

// assignable reports whether a value of type `value` may be stored into a
// target of type `typ`: either the types agree exactly, or `typ` is the
// optional form of `value`'s type (a non-optional value always satisfies
// an optional target, spec.md §4.2 "Types", the `?` suffix).
func assignable(typ, value *types.TypeDef) bool {
	if typ.Eq(value) {
		return true
	}
	if typ.Optional && !value.Optional {
		return typ.Eq(value.AsOptional())
	}
	return false
}
