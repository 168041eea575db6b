package compiler

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable bytecode listing of fn, and
// recursively of every nested function reachable through its constant pool,
// to w: one line per instruction with its offset, source line, opcode name,
// operands and resolved constant.
func Disassemble(w io.Writer, fn *Funcode) {
	disassemble(w, fn, fn.Name)
}

func disassemble(w io.Writer, fn *Funcode, label string) {
	if label == "" {
		label = "<script>"
	}
	fmt.Fprintf(w, "== %s ==\n", label)

	nested := 0
	for offset := 0; offset < len(fn.Code); {
		offset = disassembleInstruction(w, fn, offset)
	}
	for _, c := range fn.Constants {
		if nestedFn, ok := c.(*Funcode); ok {
			nested++
			name := nestedFn.Name
			if name == "" {
				name = fmt.Sprintf("%s/anon%d", label, nested)
			}
			fmt.Fprintln(w)
			disassemble(w, nestedFn, name)
		}
	}
}

func disassembleInstruction(w io.Writer, fn *Funcode, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && fn.Lines[offset] == fn.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", fn.Lines[offset])
	}

	op := Opcode(fn.Code[offset])
	switch op {
	case CONSTANT, GET_GLOBAL, SET_GLOBAL, DEFINE_GLOBAL, INIT_PROPERTY,
		GET_STATIC, GET_PROPERTY, PUSH_PROPERTY, SET_PROPERTY, ENUM, STRUCT,
		METHOD, STATIC_METHOD, STRUCT_FIELD:
		return constantInstruction(w, op, fn, offset)

	case GET_UPVALUE, SET_UPVALUE, GET_LOCAL, SET_LOCAL, ARRAY, CALL, DESTRUCT_ARRAY:
		return byteInstruction(w, op, fn, offset)

	case JUMP, JUMP_IF_FALSE, INEQUALITY_JUMP:
		return jumpInstruction(w, op, 1, fn, offset)
	case LOOP:
		return jumpInstruction(w, op, -1, fn, offset)

	case ENUM_VALUE:
		nameIdx := fn.Code[offset+1]
		ordinal := fn.Code[offset+2]
		name := fn.Constants[nameIdx]
		fmt.Fprintf(w, "%-16s %4d '%v' = %d\n", op, nameIdx, name, ordinal)
		return offset + 3

	case INVOKE:
		nameIdx := fn.Code[offset+1]
		argc := fn.Code[offset+2]
		name := fn.Constants[nameIdx]
		fmt.Fprintf(w, "%-16s %4d '%v' (%d args)\n", op, nameIdx, name, argc)
		return offset + 3

	case CLOSURE:
		constIdx := fn.Code[offset+1]
		offset += 2
		fnConst, _ := fn.Constants[constIdx].(*Funcode)
		fmt.Fprintf(w, "%-16s %4d %v\n", op, constIdx, fnConst)
		if fnConst != nil {
			for i := 0; i < fnConst.UpvalueCount; i++ {
				isLocal := fn.Code[offset]
				index := fn.Code[offset+1]
				offset += 2
				kind := "upvalue"
				if isLocal == 1 {
					kind = "local"
				}
				fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
			}
		}
		return offset

	default:
		fmt.Fprintf(w, "%-16s\n", op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, op Opcode, fn *Funcode, offset int) int {
	idx := fn.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%v'\n", op, idx, fn.Constants[idx])
	return offset + 2
}

func byteInstruction(w io.Writer, op Opcode, fn *Funcode, offset int) int {
	n := fn.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, n)
	return offset + 2
}

func jumpInstruction(w io.Writer, op Opcode, sign int, fn *Funcode, offset int) int {
	jump := int(fn.Code[offset+1])<<8 | int(fn.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}
