package bytecode

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

func TestDisassembleToString(t *testing.T) {
	in := NewInterner()
	c := NewChunk("main", in)

	msg := c.AddConstant(Obj(in.Intern("hi")))
	c.Emit(OpConstant, uint32(msg), 1)
	c.Emit(OpGetLocal, 0, 2)
	jmp := c.Emit(OpJumpIfFalse, 0, 3)
	c.Emit(OpCall, 1, 4)
	c.EmitWord(0, 4)
	c.Patch(jmp, uint32(len(c.Code)))
	c.Emit(OpVoid, 0, 5)
	c.Emit(OpReturn, 0, 5)

	out := DisassembleToString(c)
	snaps.MatchSnapshot(t, out)
}

func TestDisassembleInstructionInvalidOffset(t *testing.T) {
	in := NewInterner()
	c := NewChunk("main", in)
	c.Emit(OpReturn, 0, 1)

	d := NewDisassembler(c, nopWriter{})
	next := d.DisassembleInstruction(5)
	if next != 6 {
		t.Errorf("DisassembleInstruction(5) next = %d, want 6", next)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
