package parser

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

// parseType parses a type annotation per the grammar in spec.md §6:
//
//	type := 'bool' | 'int' | 'float' | 'str' | 'void'
//	      | '[' type ']' | '{' type ',' type '}' | type '?'
//	      | 'fun' IDENT? '(' params? ')' ('>' type)?
//	      | IDENT   // object or enum name, possibly a forward reference
func (p *Parser) parseType() *ast.TypeExpr {
	var te *ast.TypeExpr

	switch {
	case p.match(token.LBRACKET):
		item := p.parseType()
		p.expect(token.RBRACKET, "to close list type")
		te = &ast.TypeExpr{ItemType: item}
	case p.match(token.LBRACE):
		key := p.parseType()
		p.expect(token.COMMA, "between map key and value types")
		val := p.parseType()
		p.expect(token.RBRACE, "to close map type")
		te = &ast.TypeExpr{KeyType: key, ValueType: val}
	case p.match(token.FUN):
		sig := &ast.FunctionSig{}
		if p.check(token.IDENT) {
			sig.Name = p.advance().Literal
		}
		p.expect(token.LPAREN, "to open function type parameters")
		for !p.check(token.RPAREN) && !p.atEnd() {
			pt := p.parseType()
			sig.Params = append(sig.Params, ast.Param{Type: pt})
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN, "to close function type parameters")
		if p.match(token.GREATER) {
			sig.Return = p.parseType()
		}
		te = &ast.TypeExpr{FuncSig: sig}
	case p.match(token.VOID_KW):
		te = &ast.TypeExpr{Name: "void"}
	case p.match(token.BOOL_KW):
		te = &ast.TypeExpr{Name: "bool"}
	case p.match(token.INT_KW):
		te = &ast.TypeExpr{Name: "int"}
	case p.match(token.FLOAT_KW):
		te = &ast.TypeExpr{Name: "float"}
	case p.match(token.STR_KW):
		te = &ast.TypeExpr{Name: "str"}
	case p.check(token.IDENT):
		te = &ast.TypeExpr{Name: p.advance().Literal}
	default:
		tok := p.advance()
		p.diags.Add(errors.ParseError, tok.Pos, "expected a type, got %q", tok.Literal)
		te = &ast.TypeExpr{Name: "void"}
	}

	if p.match(token.QUESTION) {
		te.Optional = true
	}
	return te
}

// resolveType maps a surface TypeExpr to an interned *types.TypeDef,
// creating (and tracking) a Placeholder for any object/enum name not yet
// declared (spec.md §4.2 "Forward references and placeholders").
func (p *Parser) resolveType(te *ast.TypeExpr) *types.TypeDef {
	var t *types.TypeDef
	switch {
	case te.ItemType != nil:
		t = p.registry.List(p.resolveType(te.ItemType))
	case te.KeyType != nil:
		t = p.registry.Map(p.resolveType(te.KeyType), p.resolveType(te.ValueType))
	case te.FuncSig != nil:
		var params []types.Param
		for _, pm := range te.FuncSig.Params {
			params = append(params, types.Param{Type: p.resolveType(pm.Type)})
		}
		ret := p.registry.Void()
		if te.FuncSig.Return != nil {
			ret = p.resolveType(te.FuncSig.Return)
		}
		t = p.registry.Func(te.FuncSig.Name, types.KindFunction, params, ret)
	default:
		t = p.resolveNamedType(te.Name)
	}
	if te.Optional {
		t = t.AsOptional()
	}
	return t
}

func (p *Parser) resolveNamedType(name string) *types.TypeDef {
	switch name {
	case "bool":
		return p.registry.Bool()
	case "int":
		return p.registry.Integer()
	case "float":
		return p.registry.Float()
	case "str":
		return p.registry.String()
	case "void":
		return p.registry.Void()
	}
	if obj, ok := p.registry.LookupObject(name); ok {
		return p.registry.Instance(obj)
	}
	if enum, ok := p.registry.LookupEnum(name); ok {
		return p.registry.EnumInstance(enum)
	}
	// Forward reference: stand in with a Placeholder until a later
	// declaration resolves it.
	if existing, ok := p.pendingPlaceholders[name]; ok {
		return existing
	}
	ph := p.registry.NewPlaceholder(name, types.Object)
	p.pendingPlaceholders[name] = ph
	return ph
}

// definePlaceholder unifies any pending Placeholder for name with the
// concrete type now being declared (object or enum declaration).
func (p *Parser) definePlaceholder(name string, concrete *types.TypeDef) {
	if ph, ok := p.pendingPlaceholders[name]; ok && ph.IsPlaceholder() {
		p.registry.Resolve(ph, concrete)
		delete(p.pendingPlaceholders, name)
	}
}
