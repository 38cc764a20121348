package parser

import (
	"github.com/buzzlang/buzz/internal/ast"
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

func (p *Parser) parseVarDeclaration() ast.Statement {
	tok := p.cur()
	isConst := p.match(token.CONST)
	te := p.parseType()
	nameTok := p.expect(token.IDENT, "in variable declaration")

	decl := &ast.VarDeclaration{Name: nameTok.Literal, VarType: te, Const: isConst}
	decl.Token = tok

	if p.match(token.ASSIGN) {
		decl.Value = p.parseExpression(precAssignment)
	}
	p.expect(token.SEMICOLON, "after variable declaration")

	typ := p.resolveType(te)
	if decl.Value != nil && decl.Value.Type() != nil && !assignable(typ, decl.Value.Type()) && typ.Kind != types.Placeholder {
		p.diags.Add(errors.TypeError, decl.Pos(), "cannot initialize %s with %s", typ, decl.Value.Type())
	}

	decl.Slot, decl.Index = p.bindName(decl.Name, typ)
	return decl
}

// bindName binds name to typ in whichever scope is current: a new entry in
// the module-wide globals array at top level, or a new local slot inside a
// function/block (spec.md §4.2 "Scoping"). Used by every declaration form
// that introduces a name — var, fun, object, enum.
func (p *Parser) bindName(name string, typ *types.TypeDef) (ast.SlotKind, int) {
	if p.frame.enclosing == nil && p.frame.scopeDepth == 0 {
		idx := len(p.globals)
		p.globals = append(p.globals, Global{Name: name, Type: typ})
		return ast.SlotGlobal, idx
	}
	return ast.SlotLocal, p.frame.addLocal(name, typ)
}

// DeclareGlobal pre-binds name at a fixed global slot ahead of Parse,
// letting a host seed native-function bindings (stdlib packages, see
// DESIGN.md) so ordinary source can call them by name exactly like a
// Buzz-declared global. Must be called before Parse; the returned index
// matches the slot bytecode.VM.SetGlobal expects.
func (p *Parser) DeclareGlobal(name string, typ *types.TypeDef) int {
	idx := len(p.globals)
	p.globals = append(p.globals, Global{Name: name, Type: typ})
	return idx
}

// parseParams parses a comma-separated parameter list, storing each
// default value as an AST fragment rather than evaluating it — spec.md
// §4.2 requires fresh per-call evaluation so two calls sharing a mutable
// default (list/map) never alias.
func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	for !p.check(token.RPAREN) && !p.atEnd() {
		te := p.parseType()
		name := p.expect(token.IDENT, "in parameter list").Literal
		param := ast.Param{Name: name, Type: te}
		if p.match(token.ASSIGN) {
			param.Default = p.parseExpression(precAssignment + 1)
		}
		params = append(params, param)
		if !p.match(token.COMMA) {
			break
		}
	}
	return params
}

// parseFunctionBody parses `(params) ('>' type)? block`, opening a fresh
// Frame for the body so locals/upvalues resolve against it (spec.md §4.2
// "Scoping").
func (p *Parser) parseFunctionBody(name string, kind types.FunctionKind) *ast.Function {
	tok := p.cur()
	p.expect(token.LPAREN, "after function name")
	params := p.parseParams()
	p.expect(token.RPAREN, "after function parameters")

	var retType *ast.TypeExpr
	if p.match(token.GREATER) {
		retType = p.parseType()
	} else {
		retType = &ast.TypeExpr{Name: "void"}
	}

	enclosing := p.frame
	p.frame = newFrame(enclosing, kind)
	isMethod := kind == types.KindMethod && enclosing != nil && enclosing.objectTyp != nil
	if isMethod {
		// The receiver occupies local slot 0 of the method's own frame, so
		// `self` resolves as a plain local rather than an upvalue into a
		// frame that never actually runs (spec.md §4.2 "Scoping").
		p.frame.objectTyp = enclosing.objectTyp
		p.frame.addLocal("self", p.registry.Instance(enclosing.objectTyp))
	}
	for _, prm := range params {
		p.frame.addLocal(prm.Name, p.resolveType(prm.Type))
	}

	body := p.parseBlock()

	fn := &ast.Function{Name: name, Params: params, ReturnType: retType, Body: body, IsMethod: isMethod}
	fn.Token = tok
	fn.UpvalueCount = len(p.frame.upvalues)
	fn.Hidden = false
	for _, uv := range p.frame.upvalues {
		fn.Upvalues = append(fn.Upvalues, ast.UpvalueCapture{IsLocal: uv.isLocal, Index: uv.index})
	}

	var paramTypes []types.Param
	for _, prm := range params {
		paramTypes = append(paramTypes, types.Param{Name: prm.Name, Type: p.resolveType(prm.Type), Default: prm.Default != nil})
	}
	fn.SetType(p.registry.Func(name, kind, paramTypes, p.resolveType(retType)))

	p.frame = enclosing
	return fn
}

func (p *Parser) parseFunDeclaration() ast.Statement {
	tok := p.advance() // 'fun'
	name := p.expect(token.IDENT, "after 'fun'").Literal
	kind := types.KindFunction
	if name == "main" {
		kind = types.KindEntryPoint
	}
	// Bind the name before the body so the body can call the function
	// recursively; the signature is read ahead, diagnostics muted, to type it.
	save, saved := p.pos, p.diags
	p.diags = errors.NewDiagnostics("", "")
	p.expect(token.LPAREN, "after function name")
	var sig []types.Param
	for _, prm := range p.parseParams() {
		sig = append(sig, types.Param{Name: prm.Name, Type: p.resolveType(prm.Type), Default: prm.Default != nil})
	}
	p.expect(token.RPAREN, "after function parameters")
	ret := p.registry.Void()
	if p.match(token.GREATER) {
		ret = p.resolveType(p.parseType())
	}
	p.pos, p.diags = save, saved

	decl := &ast.FunDeclaration{}
	decl.Slot, decl.Index = p.bindName(name, p.registry.Func(name, kind, sig, ret))
	decl.Fn = p.parseFunctionBody(name, kind)
	decl.Token = tok
	return decl
}

func (p *Parser) parseObjectDeclaration() ast.Statement {
	tok := p.advance() // 'object'
	name := p.expect(token.IDENT, "after 'object'").Literal

	objType := p.registry.DeclareObject(name)
	decl := &ast.ObjectDeclaration{Name: name}
	decl.Token = tok

	if p.match(token.LESS) {
		parentName := p.expect(token.IDENT, "after '<'").Literal
		decl.Parent = parentName
		if parentType, ok := p.registry.LookupObject(parentName); ok {
			objType.Super = parentType
			for k, v := range parentType.Fields {
				objType.Fields[k] = v
			}
			for k, v := range parentType.Methods {
				objType.Methods[k] = v
			}
			if slot, idx, _, ok := p.resolveName(parentName); ok {
				decl.HasParent = true
				decl.ParentSlot, decl.ParentIndex = slot, idx
			}
		} else {
			p.diags.Add(errors.ResolutionError, tok.Pos, "unknown parent object %q", parentName)
		}
	}

	p.objects[name] = decl
	decl.Slot, decl.Index = p.bindName(name, objType)
	decl.SetType(objType)
	p.expect(token.LBRACE, "to open object body")

	enclosing := p.frame
	p.frame = newFrame(enclosing, types.KindMethod)
	p.frame.objectTyp = objType
	p.frame.addLocal("self", p.registry.Instance(objType))

	for !p.check(token.RBRACE) && !p.atEnd() {
		decl.Fields = append(decl.Fields, p.parseObjectField(name, objType))
	}
	p.frame = enclosing

	p.expect(token.RBRACE, "to close object body")
	p.definePlaceholder(name, objType)
	return decl
}

func (p *Parser) parseObjectField(ownerName string, objType *types.TypeDef) ast.Field {
	isStatic := p.match(token.CONST)

	if p.check(token.FUN) {
		p.advance()
		methodName := p.expect(token.IDENT, "after 'fun'").Literal
		fn := p.parseFunctionBody(methodName, types.KindMethod)
		objType.Methods[methodName] = fn.Type()
		return ast.Field{Name: methodName, Method: fn, Static: isStatic}
	}

	te := p.parseType()
	name := p.expect(token.IDENT, "in field declaration").Literal
	field := ast.Field{Name: name, Type: te, Static: isStatic}

	if p.match(token.ASSIGN) {
		field.Default = p.parseExpression(precAssignment)
	}
	if !p.check(token.RBRACE) {
		p.expect(token.SEMICOLON, "after field declaration")
	}

	fieldType := p.resolveType(te)
	if isStatic {
		objType.StaticFields[name] = true
	}
	objType.Fields[name] = fieldType
	return field
}

func (p *Parser) parseEnumDeclaration() ast.Statement {
	tok := p.advance() // 'enum'
	var underlying *ast.TypeExpr
	if p.match(token.LPAREN) {
		underlying = p.parseType()
		p.expect(token.RPAREN, "to close enum underlying type")
	}
	name := p.expect(token.IDENT, "after 'enum'").Literal

	underlyingType := p.registry.Integer()
	if underlying != nil {
		underlyingType = p.resolveType(underlying)
	}
	enumType := p.registry.DeclareEnum(name, underlyingType)

	decl := &ast.EnumDeclaration{Name: name, Underlying: underlying}
	decl.Token = tok

	p.expect(token.LBRACE, "to open enum body")
	for !p.check(token.RBRACE) && !p.atEnd() {
		caseName := p.expect(token.IDENT, "in enum body").Literal
		c := ast.EnumCase{Name: caseName}
		if p.match(token.ASSIGN) {
			c.Value = p.parseExpression(precAssignment + 1)
		}
		decl.Cases = append(decl.Cases, c)
		enumType.Cases = append(enumType.Cases, caseName)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "to close enum body")

	decl.Slot, decl.Index = p.bindName(name, p.registry.EnumInstance(enumType))
	decl.SetType(enumType)
	p.definePlaceholder(name, enumType)
	p.enums[name] = decl
	return decl
}

func (p *Parser) parseTestDeclaration() ast.Statement {
	tok := p.advance() // 'test'
	nameTok := p.expect(token.STRING, "after 'test'")
	p.testCount++

	enclosing := p.frame
	p.frame = newFrame(enclosing, types.KindTest)
	body := p.parseBlock()
	p.frame = enclosing

	decl := &ast.TestDeclaration{Name: nameTok.Literal, Body: body}
	decl.Token = tok
	return decl
}

func (p *Parser) parseImport() ast.Statement {
	tok := p.advance() // 'import'
	pathTok := p.expect(token.STRING, "after 'import'")
	decl := &ast.Import{Path: pathTok.Literal}
	decl.Token = tok
	if p.match(token.AS) {
		decl.Namespace = p.expect(token.IDENT, "after 'as'").Literal
	}
	p.expect(token.SEMICOLON, "after import statement")

	if p.importer != nil {
		if _, _, err := p.importer.Import(decl.Path, tok.Pos.File); err != nil {
			p.diags.Add(errors.CompileError, tok.Pos, "import %q failed: %v", decl.Path, err)
		}
	}
	return decl
}

func (p *Parser) parseExport() ast.Statement {
	tok := p.advance() // 'export'
	decl := &ast.Export{}
	decl.Token = tok
	for {
		decl.Names = append(decl.Names, p.expect(token.IDENT, "in export statement").Literal)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.SEMICOLON, "after export statement")
	return decl
}
