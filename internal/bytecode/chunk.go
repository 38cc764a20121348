package bytecode

import "fmt"

// Chunk is the bytecode, constant pool, and line table of one compiled
// function (spec.md §3 "Chunk"). Constant slot 0 is always the empty
// string, an invariant the compiler establishes in NewChunk and the VM
// relies on for cheap "no name" sentinels.
type Chunk struct {
	Name      string
	Code      []Instruction
	Constants []Value
	Lines     []int // parallel to Code
}

// NewChunk allocates a Chunk with its mandatory empty-string constant
// already interned at index 0.
func NewChunk(name string, interner *Interner) *Chunk {
	c := &Chunk{Name: name}
	emptyString := interner.Intern("")
	c.Constants = append(c.Constants, Obj(emptyString))
	return c
}

// Emit appends one instruction, recording its source line for diagnostics.
func (c *Chunk) Emit(op OpCode, arg uint32, line int) int {
	c.Code = append(c.Code, NewInstruction(op, arg))
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// EmitWord appends a raw follow-on word (used for CALL's packed
// (arg_count, catch_count) and CLOSURE's (is_local, slot) capture pairs).
func (c *Chunk) EmitWord(word uint32, line int) int {
	c.Code = append(c.Code, Instruction(word))
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// Patch overwrites an already-emitted instruction's argument, used for
// back-patching forward jumps once their target is known (spec.md §4.3
// "Jump patching").
func (c *Chunk) Patch(at int, arg uint32) {
	op := c.Code[at].Op()
	c.Code[at] = NewInstruction(op, arg)
}

// AddConstant interns v into the constant pool, returning its index.
// Identical String constants are deduplicated by content.
func (c *Chunk) AddConstant(v Value) int {
	if s, ok := v.Obj.(*String); ok {
		for i, existing := range c.Constants {
			if es, ok := existing.Obj.(*String); ok && es.Value == s.Value {
				return i
			}
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Validate checks that every jump target lies within the chunk (spec.md
// §8 invariant: "For every JUMP/JUMP_IF_FALSE, the target offset lies
// within the enclosing chunk").
func (c *Chunk) Validate() error {
	for i, instr := range c.Code {
		switch instr.Op() {
		case OpJump, OpJumpIfFalse, OpLoop, OpForeach:
			target := int(instr.Arg())
			if target < 0 || target > len(c.Code) {
				return fmt.Errorf("bytecode: jump at %d targets out-of-range offset %d", i, target)
			}
		}
	}
	return nil
}
