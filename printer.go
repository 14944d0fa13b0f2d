// printer.go: human-readable disassembly of instruction sequences.
//
// FormatInstructions prints one instruction per line with nested bodies
// indented underneath their owner:
//
//	0000  PushConstant(1)
//	0001  ReadVariable(x)
//	0002  BinaryOp(<)
//	0003  If
//	        then:
//	        0000  Call(print, <1 instrs>)
//	        ...
//
// The output is stable and is what `giffi compile` prints.
package giffiscript

import (
	"fmt"
	"strings"
)

// FormatInstructions renders a full listing of instrs.
func FormatInstructions(instrs []Instruction) string {
	var b strings.Builder
	writeInstrs(&b, instrs, 0)
	return b.String()
}

func writeInstrs(b *strings.Builder, instrs []Instruction, depth int) {
	pad := strings.Repeat("        ", depth)
	for i, in := range instrs {
		fmt.Fprintf(b, "%s%04d  ", pad, i)
		switch in.Op {
		case OpReadIndex:
			b.WriteString("ReadIndex\n")
			writeSection(b, "index", in.Body, depth)
		case OpReadVariableIndex:
			fmt.Fprintf(b, "ReadVariableIndex(%s)\n", in.Name)
			writeSection(b, "index", in.Body, depth)
		case OpDefineFunction:
			fmt.Fprintf(b, "DefineFunction(%s(%s))\n", in.Name, strings.Join(in.Params, ", "))
			writeSection(b, "body", in.Body, depth)
		case OpCall:
			fmt.Fprintf(b, "Call(%s)\n", in.Name)
			writeSection(b, "args", in.Body, depth)
		case OpIf:
			b.WriteString("If\n")
			writeSection(b, "then", in.Body, depth)
			writeSection(b, "else", in.Alt, depth)
		case OpWhile:
			b.WriteString("While\n")
			writeSection(b, "cond", in.Body, depth)
			writeSection(b, "body", in.Alt, depth)
		default:
			b.WriteString(in.String())
			b.WriteByte('\n')
		}
	}
}

func writeSection(b *strings.Builder, label string, instrs []Instruction, depth int) {
	if len(instrs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s        %s:\n", strings.Repeat("        ", depth), label)
	writeInstrs(b, instrs, depth+1)
}
