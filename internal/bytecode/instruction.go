// Package bytecode implements Buzz's instruction encoding, code generator,
// stack virtual machine, and garbage collector (spec.md §4.3, §4.4, §4.5).
package bytecode

// OpCode is the 8-bit operation selector of an Instruction.
type OpCode byte

// Instruction is one 32-bit bytecode word: an 8-bit opcode in the high
// byte and a 24-bit inline argument in the low three bytes (spec.md §4.3
// "Instruction encoding"). Some opcodes (CALL, CLOSURE) are followed by an
// additional 32-bit word holding a second argument or a capture list.
type Instruction uint32

// NewInstruction packs an opcode and a 24-bit argument into one word.
func NewInstruction(op OpCode, arg uint32) Instruction {
	return Instruction(uint32(op)<<24 | (arg & 0x00FFFFFF))
}

// Op unpacks the opcode.
func (i Instruction) Op() OpCode { return OpCode(i >> 24) }

// Arg unpacks the 24-bit inline argument.
func (i Instruction) Arg() uint32 { return uint32(i) & 0x00FFFFFF }

const (
	// --- constants ---
	OpConstant OpCode = iota

	// --- stack shuffling ---
	OpPop
	OpCopy
	OpSwap

	// --- globals ---
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal

	// --- locals ---
	OpGetLocal
	OpSetLocal

	// --- upvalues ---
	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	// --- properties ---
	OpGetProperty
	OpSetProperty

	// --- subscript ---
	OpGetSubscript
	OpSetSubscript

	// --- containers ---
	OpList
	OpAppendList
	OpMap
	OpSetMap

	// --- arithmetic / logic ---
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpMod
	OpNegate
	OpNot

	// --- comparison ---
	OpEqual
	OpGreater
	OpLess
	OpIs

	// --- control flow ---
	OpJump
	OpJumpIfFalse
	OpLoop

	// --- null handling ---
	OpNull
	OpUnwrap
	OpNullOr

	// --- calls ---
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpReturn
	OpVoid

	// --- objects ---
	OpObject
	OpInherit
	OpMethod
	OpProperty
	OpStaticProperty
	OpInstance

	// --- enums ---
	OpEnum
	OpEnumCase
	OpGetEnumCase
	OpGetEnumCaseValue

	// --- strings ---
	OpToString
	OpStringConcat

	// --- iteration ---
	OpForeach

	// --- modules ---
	OpImport
	OpExport

	// --- exceptions ---
	OpThrow

	// --- range ---
	OpRange
)

var opNames = [...]string{
	OpConstant: "CONSTANT", OpPop: "POP", OpCopy: "COPY", OpSwap: "SWAP",
	OpGetGlobal: "GET_GLOBAL", OpSetGlobal: "SET_GLOBAL", OpDefineGlobal: "DEFINE_GLOBAL",
	OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL",
	OpGetUpvalue: "GET_UPVALUE", OpSetUpvalue: "SET_UPVALUE", OpCloseUpvalue: "CLOSE_UPVALUE",
	OpGetProperty: "GET_PROPERTY", OpSetProperty: "SET_PROPERTY",
	OpGetSubscript: "GET_SUBSCRIPT", OpSetSubscript: "SET_SUBSCRIPT",
	OpList: "LIST", OpAppendList: "APPEND_LIST", OpMap: "MAP", OpSetMap: "SET_MAP",
	OpAdd: "ADD", OpSubtract: "SUBTRACT", OpMultiply: "MULTIPLY", OpDivide: "DIVIDE",
	OpMod: "MOD", OpNegate: "NEGATE", OpNot: "NOT",
	OpEqual: "EQUAL", OpGreater: "GREATER", OpLess: "LESS", OpIs: "IS",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpLoop: "LOOP",
	OpNull: "NULL", OpUnwrap: "UNWRAP", OpNullOr: "NULL_OR",
	OpCall: "CALL", OpInvoke: "INVOKE", OpSuperInvoke: "SUPER_INVOKE",
	OpClosure: "CLOSURE", OpReturn: "RETURN", OpVoid: "VOID",
	OpObject: "OBJECT", OpInherit: "INHERIT", OpMethod: "METHOD",
	OpProperty: "PROPERTY", OpStaticProperty: "STATIC_PROPERTY", OpInstance: "INSTANCE",
	OpEnum: "ENUM", OpEnumCase: "ENUM_CASE", OpGetEnumCase: "GET_ENUM_CASE",
	OpGetEnumCaseValue: "GET_ENUM_CASE_VALUE",
	OpToString: "TO_STRING", OpStringConcat: "STRING_CONCAT",
	OpForeach: "FOREACH",
	OpImport:  "IMPORT", OpExport: "EXPORT",
	OpThrow: "THROW",
	OpRange: "RANGE",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}
