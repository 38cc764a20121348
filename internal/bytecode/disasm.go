package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassembler provides human-readable bytecode disassembly for debugging
// and for tests, grounded on the teacher's disasm.go. Buzz's
// simpler single-word-plus-optional-trailing-word encoding (instruction.go)
// collapses the teacher's separate A/B-operand categories into fewer
// printing helpers.
type Disassembler struct {
	writer io.Writer
	chunk  *Chunk
}

// NewDisassembler creates a new disassembler for the given chunk.
func NewDisassembler(chunk *Chunk, writer io.Writer) *Disassembler {
	return &Disassembler{writer: writer, chunk: chunk}
}

// Disassemble prints a complete disassembly of the chunk.
func (d *Disassembler) Disassemble() {
	fmt.Fprintf(d.writer, "== %s ==\n", d.chunk.Name)
	fmt.Fprintf(d.writer, "Instructions: %d, Constants: %d\n\n", len(d.chunk.Code), len(d.chunk.Constants))

	if len(d.chunk.Constants) > 0 {
		fmt.Fprintf(d.writer, "Constants Pool:\n")
		for i, constant := range d.chunk.Constants {
			fmt.Fprintf(d.writer, "  [%04d] %s\n", i, constant.String())
		}
		fmt.Fprintf(d.writer, "\n")
	}

	fmt.Fprintf(d.writer, "Bytecode:\n")
	offset := 0
	for offset < len(d.chunk.Code) {
		offset = d.DisassembleInstruction(offset)
	}
	fmt.Fprintf(d.writer, "\n")
}

// DisassembleInstruction prints the instruction at offset and returns the
// offset of the next one (accounting for any trailing word).
func (d *Disassembler) DisassembleInstruction(offset int) int {
	if offset < 0 || offset >= len(d.chunk.Code) {
		fmt.Fprintf(d.writer, "Invalid offset: %d\n", offset)
		return offset + 1
	}

	inst := d.chunk.Code[offset]
	op := inst.Op()
	arg := inst.Arg()
	d.printHeader(offset)

	switch op {
	case OpConstant:
		c := d.chunk.Constants[arg]
		fmt.Fprintf(d.writer, "%-18s %4d '%s'\n", op, arg, c.String())
		return offset + 1

	case OpGetProperty, OpSetProperty, OpIs, OpMethod, OpProperty, OpStaticProperty,
		OpEnum, OpEnumCase, OpGetEnumCase, OpGetEnumCaseValue:
		c := d.chunk.Constants[arg]
		fmt.Fprintf(d.writer, "%-18s %4d '%s'\n", op, arg, c.String())
		return offset + 1

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpGetGlobal, OpSetGlobal, OpDefineGlobal:
		fmt.Fprintf(d.writer, "%-18s %4d\n", op, arg)
		return offset + 1

	case OpJump, OpJumpIfFalse:
		fmt.Fprintf(d.writer, "%-18s %4d -> %04d\n", op, arg, arg)
		return offset + 1

	case OpLoop:
		fmt.Fprintf(d.writer, "%-18s %4d -> %04d\n", op, arg, arg)
		return offset + 1

	case OpForeach:
		fmt.Fprintf(d.writer, "%-18s %4d -> %04d (exit)\n", op, arg, arg)
		return offset + 1

	case OpCall:
		argc := arg
		ncatch := uint32(0)
		if offset+1 < len(d.chunk.Code) {
			ncatch = uint32(d.chunk.Code[offset+1])
		}
		fmt.Fprintf(d.writer, "%-18s argc=%d ncatch=%d\n", op, argc, ncatch)
		return offset + 2

	case OpInvoke, OpSuperInvoke:
		c := d.chunk.Constants[arg]
		argc := uint32(0)
		if offset+1 < len(d.chunk.Code) {
			argc = uint32(d.chunk.Code[offset+1])
		}
		fmt.Fprintf(d.writer, "%-18s '%s' argc=%d\n", op, c.String(), argc)
		return offset + 2

	case OpClosure:
		c := d.chunk.Constants[arg]
		fmt.Fprintf(d.writer, "%-18s %4d '%s'\n", op, arg, c.String())
		if fn, ok := c.Obj.(*Function); ok {
			return offset + 1 + fn.UpvalueCount
		}
		return offset + 1

	case OpObject, OpInherit, OpInstance:
		c := d.chunk.Constants[arg]
		fmt.Fprintf(d.writer, "%-18s %4d '%s'\n", op, arg, c.String())
		return offset + 1

	default:
		fmt.Fprintf(d.writer, "%s\n", op)
		return offset + 1
	}
}

func (d *Disassembler) printHeader(offset int) {
	line := 0
	if offset < len(d.chunk.Lines) {
		line = d.chunk.Lines[offset]
	}
	if offset > 0 && offset-1 < len(d.chunk.Lines) && line == d.chunk.Lines[offset-1] {
		fmt.Fprintf(d.writer, "%04d    | ", offset)
	} else {
		fmt.Fprintf(d.writer, "%04d %4d ", offset, line)
	}
}

// DisassembleToString returns the disassembly as a string, used by
// snapshot tests.
func DisassembleToString(chunk *Chunk) string {
	var sb strings.Builder
	NewDisassembler(chunk, &sb).Disassemble()
	return sb.String()
}
