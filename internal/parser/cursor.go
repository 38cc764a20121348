package parser

import (
	"github.com/buzzlang/buzz/internal/errors"
	"github.com/buzzlang/buzz/internal/token"
)

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Type: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.toks) {
		return token.Token{Type: token.EOF}
	}
	return p.toks[p.pos+1]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) check(t token.Type) bool { return p.cur().Type == t }

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes the current token if it matches t, otherwise reports a
// ParseError and returns the current token without advancing, letting the
// caller recover.
func (p *Parser) expect(t token.Type, context string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	cur := p.cur()
	p.diags.Add(errors.ParseError, cur.Pos, "expected %s %s, got %s %q", t, context, cur.Type, cur.Literal)
	return cur
}

func (p *Parser) atEnd() bool { return p.check(token.EOF) }

// synchronize discards tokens until a likely statement boundary, so a
// single parse error doesn't cascade into spurious follow-on errors.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		if p.cur().Type == token.SEMICOLON {
			p.advance()
			return
		}
		switch p.cur().Type {
		case token.FUN, token.OBJECT, token.ENUM, token.IF, token.FOR,
			token.FOREACH, token.WHILE, token.RETURN, token.IMPORT:
			return
		}
		p.advance()
	}
}
