package bytecode

import "fmt"

// An Opcode is a single bytecode instruction. Operand shape is fixed per
// opcode (see operandKinds below): none, a one-byte
// index/slot/argc, a two-byte big-endian jump offset, or (for CLOSURE) a
// one-byte constant index followed by a variable number of upvalue pairs.
type Opcode uint8

const ( //nolint:revive
	CONSTANT Opcode = iota
	NIL
	TRUE
	FALSE
	POP

	GET_LOCAL
	SET_LOCAL
	GET_GLOBAL
	DEFINE_GLOBAL
	SET_GLOBAL
	GET_UPVALUE
	SET_UPVALUE
	GET_PROPERTY
	SET_PROPERTY
	GET_SUPER
	GET_ELEMENT
	SET_ELEMENT

	EQUAL
	GREATER
	LESS
	ADD
	SUBTRACT
	MULTIPLY
	DIVIDE
	NOT
	NEGATE

	JUMP
	JUMP_IF_FALSE
	LOOP

	CALL
	INHERIT
	INVOKE
	SUPER_INVOKE
	CLOSURE
	CLOSE_UPVALUE
	RETURN

	CLASS
	METHOD
	PRIVATE_METHOD

	PATH

	maxOpcode
)

var opcodeNames = [...]string{
	CONSTANT:       "CONSTANT",
	NIL:            "NIL",
	TRUE:           "TRUE",
	FALSE:          "FALSE",
	POP:            "POP",
	GET_LOCAL:      "GET_LOCAL",
	SET_LOCAL:      "SET_LOCAL",
	GET_GLOBAL:     "GET_GLOBAL",
	DEFINE_GLOBAL:  "DEFINE_GLOBAL",
	SET_GLOBAL:     "SET_GLOBAL",
	GET_UPVALUE:    "GET_UPVALUE",
	SET_UPVALUE:    "SET_UPVALUE",
	GET_PROPERTY:   "GET_PROPERTY",
	SET_PROPERTY:   "SET_PROPERTY",
	GET_SUPER:      "GET_SUPER",
	GET_ELEMENT:    "GET_ELEMENT",
	SET_ELEMENT:    "SET_ELEMENT",
	EQUAL:          "EQUAL",
	GREATER:        "GREATER",
	LESS:           "LESS",
	ADD:            "ADD",
	SUBTRACT:       "SUBTRACT",
	MULTIPLY:       "MULTIPLY",
	DIVIDE:         "DIVIDE",
	NOT:            "NOT",
	NEGATE:         "NEGATE",
	JUMP:           "JUMP",
	JUMP_IF_FALSE:  "JUMP_IF_FALSE",
	LOOP:           "LOOP",
	CALL:           "CALL",
	INHERIT:        "INHERIT",
	INVOKE:         "INVOKE",
	SUPER_INVOKE:   "SUPER_INVOKE",
	CLOSURE:        "CLOSURE",
	CLOSE_UPVALUE:  "CLOSE_UPVALUE",
	RETURN:         "RETURN",
	CLASS:          "CLASS",
	METHOD:         "METHOD",
	PRIVATE_METHOD: "PRIVATE_METHOD",
	PATH:           "PATH",
}

func (op Opcode) String() string {
	if op >= maxOpcode {
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
	return opcodeNames[op]
}

// operandKind classifies how a disassembler or the VM's fetch loop should
// read the bytes following an opcode.
type operandKind uint8

const (
	operandNone operandKind = iota
	operandByte             // single-byte constant index, local/upvalue slot, or argc
	operandJump             // two-byte big-endian offset
	operandInvokeArgs       // one-byte constant (name) + one-byte argc
	operandClosureArgs      // one-byte constant (function), then upvalue_count (is_local, index) pairs
)

var operandKinds = [...]operandKind{
	CONSTANT:       operandByte,
	NIL:            operandNone,
	TRUE:           operandNone,
	FALSE:          operandNone,
	POP:            operandNone,
	GET_LOCAL:      operandByte,
	SET_LOCAL:      operandByte,
	GET_GLOBAL:     operandByte,
	DEFINE_GLOBAL:  operandByte,
	SET_GLOBAL:     operandByte,
	GET_UPVALUE:    operandByte,
	SET_UPVALUE:    operandByte,
	GET_PROPERTY:   operandByte,
	SET_PROPERTY:   operandByte,
	GET_SUPER:      operandByte,
	GET_ELEMENT:    operandNone,
	SET_ELEMENT:    operandNone,
	EQUAL:          operandNone,
	GREATER:        operandNone,
	LESS:           operandNone,
	ADD:            operandNone,
	SUBTRACT:       operandNone,
	MULTIPLY:       operandNone,
	DIVIDE:         operandNone,
	NOT:            operandNone,
	NEGATE:         operandNone,
	JUMP:           operandJump,
	JUMP_IF_FALSE:  operandJump,
	LOOP:           operandJump,
	CALL:           operandByte,
	INHERIT:        operandNone,
	INVOKE:         operandInvokeArgs,
	SUPER_INVOKE:   operandInvokeArgs,
	CLOSURE:        operandClosureArgs,
	CLOSE_UPVALUE:  operandNone,
	RETURN:         operandNone,
	CLASS:          operandByte,
	METHOD:         operandByte,
	PRIVATE_METHOD: operandByte,
	PATH:           operandByte,
}
