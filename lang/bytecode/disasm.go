package bytecode

import (
	"fmt"
	"io"
)

// hasUpvalueCount is implemented by the machine package's Function value;
// the disassembler needs it only to know how many (is_local, index) pairs
// follow a CLOSURE instruction's constant operand.
type hasUpvalueCount interface {
	UpvalueCount() int
}

// Disassemble writes a human-readable dump of every instruction in c to w,
// under a header naming the chunk (typically the enclosing function's name,
// or "<script>" for the top-level chunk).
func Disassemble(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes one instruction at offset and returns the
// offset of the next one.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := Opcode(c.Code[offset])
	switch op {
	case CONSTANT, GET_GLOBAL, DEFINE_GLOBAL, SET_GLOBAL, GET_PROPERTY,
		SET_PROPERTY, GET_SUPER, CLASS, METHOD, PRIVATE_METHOD, PATH:
		return constantInstruction(w, op, c, offset)
	case GET_LOCAL, SET_LOCAL, GET_UPVALUE, SET_UPVALUE, CALL:
		return byteInstruction(w, op, c, offset)
	case JUMP, JUMP_IF_FALSE:
		return jumpInstruction(w, op, 1, c, offset)
	case LOOP:
		return jumpInstruction(w, op, -1, c, offset)
	case INVOKE, SUPER_INVOKE:
		return invokeInstruction(w, op, c, offset)
	case CLOSURE:
		return closureInstruction(w, c, offset)
	default:
		return simpleInstruction(w, op, offset)
	}
}

func simpleInstruction(w io.Writer, op Opcode, offset int) int {
	fmt.Fprintln(w, op)
	return offset + 1
}

func byteInstruction(w io.Writer, op Opcode, c *Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op Opcode, sign int, c *Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func constantInstruction(w io.Writer, op Opcode, c *Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, c.Constants[idx])
	return offset + 2
}

func invokeInstruction(w io.Writer, op Opcode, c *Chunk, offset int) int {
	idx := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argCount, idx, c.Constants[idx])
	return offset + 3
}

func closureInstruction(w io.Writer, c *Chunk, offset int) int {
	offset++
	idx := c.Code[offset]
	offset++
	fn := c.Constants[idx]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", CLOSURE, idx, fn)

	n := 0
	if huc, ok := fn.(hasUpvalueCount); ok {
		n = huc.UpvalueCount()
	}
	for j := 0; j < n; j++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		offset += 2
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
