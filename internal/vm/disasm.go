package vm

import (
	"fmt"
	"strings"

	"github.com/filipefalcaos/falcon/internal/runtime"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *runtime.Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < chunk.Count() {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, chunk *runtime.Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	line := chunk.Line(offset)
	if offset > 0 && line == chunk.Line(offset-1) {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", line))
	}

	op := Opcode(chunk.Code[offset])
	name, ok := OpcodeNames[op]
	if !ok {
		sb.WriteString(fmt.Sprintf("UNKNOWN %d\n", op))
		return offset + 1
	}

	switch op {
	case OP_CONST:
		return constantInstruction(sb, name, chunk, offset)

	case OP_DEF_LIST, OP_DEF_MAP:
		count := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
		sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, count))
		return offset + 3

	case OP_AND, OP_OR, OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, name, 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, name, -1, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(sb, name, chunk, offset)

	case OP_DEF_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_DEF_CLASS, OP_DEF_METHOD, OP_GET_PROP, OP_SET_PROP, OP_SUPER:
		return nameInstruction(sb, name, chunk, offset)

	case OP_INV_PROP, OP_INV_SUPER:
		return invokeInstruction(sb, name, chunk, offset)

	case OP_CLOSURE:
		return closureInstruction(sb, name, chunk, offset)

	default:
		sb.WriteString(name + "\n")
		return offset + 1
	}
}

func constantInstruction(sb *strings.Builder, name string, chunk *runtime.Chunk, offset int) int {
	idx := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, chunk.Constants.At(idx).String()))
	return offset + 3
}

func nameInstruction(sb *strings.Builder, name string, chunk *runtime.Chunk, offset int) int {
	idx := int(chunk.Code[offset+1])
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, chunk.Constants.At(idx).String()))
	return offset + 2
}

func byteInstruction(sb *strings.Builder, name string, chunk *runtime.Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, chunk.Code[offset+1]))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *runtime.Chunk, offset int) int {
	jump := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, offset, offset+3+sign*jump))
	return offset + 3
}

func invokeInstruction(sb *strings.Builder, name string, chunk *runtime.Chunk, offset int) int {
	idx := int(chunk.Code[offset+1])
	argCount := chunk.Code[offset+2]
	sb.WriteString(fmt.Sprintf("%-16s (%d args) %4d '%s'\n",
		name, argCount, idx, chunk.Constants.At(idx).String()))
	return offset + 3
}

func closureInstruction(sb *strings.Builder, name string, chunk *runtime.Chunk, offset int) int {
	idx := int(chunk.Code[offset+1])
	fn := chunk.Constants.At(idx).Obj.(*runtime.ObjFunction)
	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", name, idx, fn.String()))

	offset += 2
	for i := 0; i < fn.UpvalueCount; i++ {
		kind := "upvalue"
		if chunk.Code[offset] == 1 {
			kind = "local"
		}
		sb.WriteString(fmt.Sprintf("%04d      |                     %s %d\n",
			offset, kind, chunk.Code[offset+1]))
		offset += 2
	}
	return offset
}
