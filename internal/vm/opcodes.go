// Package vm implements the Falcon bytecode compiler and virtual machine.
package vm

// Opcode is a single VM instruction
type Opcode byte

const (
	// Constants and literals
	OP_CONST Opcode = iota // Push constant from pool (2-byte index, LSB first)
	OP_NULL                // Push null
	OP_TRUE                // Push true
	OP_FALSE               // Push false

	// Stack manipulation
	OP_POP      // Discard top of stack
	OP_POP_EXPR // Discard top; print it first when non-null (REPL mode)
	OP_DUP      // Duplicate top of stack

	// Collections
	OP_DEF_LIST // Build list from N stacked elements (2-byte count)
	OP_DEF_MAP  // Build map from N stacked key/value pairs (2-byte count)

	// Short-circuit logic (2-byte jump offset, operand left on stack on
	// the short-circuiting side)
	OP_AND
	OP_OR

	// Comparison
	OP_EQUAL
	OP_GREATER
	OP_LESS

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MULT
	OP_DIV
	OP_MOD
	OP_POW
	OP_NEG // Unary minus
	OP_NOT // Logical not

	// Variables
	OP_DEF_GLOBAL // Define global (1-byte name constant)
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_LOCAL // 1-byte slot
	OP_SET_LOCAL
	OP_GET_UPVALUE // 1-byte upvalue index
	OP_SET_UPVALUE

	// Subscripting
	OP_GET_INDEX
	OP_SET_INDEX

	// Control flow (2-byte unsigned offsets)
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	// Functions and closures
	OP_CALL          // 1-byte argument count
	OP_CLOSURE       // 1-byte function constant + 2 bytes per upvalue
	OP_CLOSE_UPVALUE // Close the top stack slot and pop it
	OP_RETURN

	// Classes
	OP_DEF_CLASS  // 1-byte name constant
	OP_INHERIT    // Copy superclass methods into subclass
	OP_DEF_METHOD // 1-byte name constant
	OP_GET_PROP   // 1-byte name constant
	OP_SET_PROP
	OP_INV_PROP  // 1-byte name constant + 1-byte argument count
	OP_SUPER     // 1-byte name constant
	OP_INV_SUPER // 1-byte name constant + 1-byte argument count

	// OP_TEMP marks a pending break jump; the compiler rewrites every
	// occurrence to OP_JUMP when the enclosing loop closes. Reaching one
	// at runtime is a compiler bug.
	OP_TEMP
)

// OpcodeNames maps opcodes to their mnemonic (disassembly and errors)
var OpcodeNames = map[Opcode]string{
	OP_CONST:    "CONST",
	OP_NULL:     "NULL",
	OP_TRUE:     "TRUE",
	OP_FALSE:    "FALSE",
	OP_POP:      "POP",
	OP_POP_EXPR: "POP_EXPR",
	OP_DUP:      "DUP",

	OP_DEF_LIST: "DEF_LIST",
	OP_DEF_MAP:  "DEF_MAP",

	OP_AND: "AND",
	OP_OR:  "OR",

	OP_EQUAL:   "EQUAL",
	OP_GREATER: "GREATER",
	OP_LESS:    "LESS",

	OP_ADD:  "ADD",
	OP_SUB:  "SUB",
	OP_MULT: "MULT",
	OP_DIV:  "DIV",
	OP_MOD:  "MOD",
	OP_POW:  "POW",
	OP_NEG:  "NEG",
	OP_NOT:  "NOT",

	OP_DEF_GLOBAL:  "DEF_GLOBAL",
	OP_GET_GLOBAL:  "GET_GLOBAL",
	OP_SET_GLOBAL:  "SET_GLOBAL",
	OP_GET_LOCAL:   "GET_LOCAL",
	OP_SET_LOCAL:   "SET_LOCAL",
	OP_GET_UPVALUE: "GET_UPVALUE",
	OP_SET_UPVALUE: "SET_UPVALUE",

	OP_GET_INDEX: "GET_INDEX",
	OP_SET_INDEX: "SET_INDEX",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_LOOP:          "LOOP",

	OP_CALL:          "CALL",
	OP_CLOSURE:       "CLOSURE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",
	OP_RETURN:        "RETURN",

	OP_DEF_CLASS:  "DEF_CLASS",
	OP_INHERIT:    "INHERIT",
	OP_DEF_METHOD: "DEF_METHOD",
	OP_GET_PROP:   "GET_PROP",
	OP_SET_PROP:   "SET_PROP",
	OP_INV_PROP:   "INV_PROP",
	OP_SUPER:      "SUPER",
	OP_INV_SUPER:  "INV_SUPER",

	OP_TEMP: "TEMP",
}
