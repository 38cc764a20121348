// Package ast defines the typed Abstract Syntax Tree produced by the
// parser/type-checker (spec.md §4.2).
package ast

import (
	"bytes"

	"github.com/buzzlang/buzz/internal/token"
	"github.com/buzzlang/buzz/internal/types"
)

// Node is the base interface every AST node implements.
type Node interface {
	TokenLiteral() string
	String() string
	Pos() token.Position
}

// Expression is a Node that produces a value. Every Expression must carry
// a non-nil TypeDef once the type checker has run (spec.md §3 invariant).
type Expression interface {
	Node
	expressionNode()
	Type() *types.TypeDef
	SetType(*types.TypeDef)
}

// Statement is a Node that performs an action without producing a value.
type Statement interface {
	Node
	statementNode()
}

// Declaration is a Statement that introduces a name into scope.
type Declaration interface {
	Statement
	declarationNode()
}

// base embeds common bookkeeping shared by every node: the defining token
// and the resolved TypeDef (nil for statements).
type base struct {
	Token token.Token
	Typ   *types.TypeDef
}

func (b *base) TokenLiteral() string   { return b.Token.Literal }
func (b *base) Pos() token.Position    { return b.Token.Pos }
func (b *base) Type() *types.TypeDef   { return b.Typ }
func (b *base) SetType(t *types.TypeDef) { b.Typ = t }

// Program is the root node: the sequence of top-level declarations and
// statements making up one compilation unit.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return token.Position{}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// Block groups a sequence of statements sharing a lexical scope.
type Block struct {
	base
	Statements []Statement
}

func (b *Block) statementNode() {}
func (b *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{\n")
	for _, s := range b.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	out.WriteString("}")
	return out.String()
}
