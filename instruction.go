// instruction.go: the flattened program representation.
//
// An instruction sequence is what the parser hands to the interpreter. It is
// linear like bytecode, but control flow and calls own their sub-sequences
// (Body/Alt) instead of jumping, so blocks stay tree-shaped.
//
// Operand usage per opcode:
//
//	OpPushConstant         Value
//	OpReadVariable         Name
//	OpBindVariable         Name
//	OpAssignVariable       Name
//	OpBuildArray           Count
//	OpReadIndex            Body = index instructions (array already on the stack)
//	OpReadVariableIndex    Name, Body = index instructions
//	OpAssignVariableIndex  Name (pops value, then index)
//	OpBinary               Name = operator symbol
//	OpUnary                Name = operator symbol
//	OpDefineFunction       Name, Params, Body
//	OpCall                 Name, Body = argument instructions
//	OpCallNative           Native
//	OpIf                   Body = then, Alt = else
//	OpWhile                Body = condition, Alt = loop body
//	OpReturn, OpBreak, OpContinue, OpPop
//	OpImport               Name
package giffiscript

import "fmt"

// Op is the instruction opcode.
type Op uint8

const (
	OpPushConstant Op = iota
	OpReadVariable
	OpBindVariable
	OpAssignVariable
	OpBuildArray
	OpReadIndex
	OpReadVariableIndex
	OpAssignVariableIndex
	OpBinary
	OpUnary
	OpDefineFunction
	OpCall
	OpCallNative
	OpIf
	OpWhile
	OpReturn
	OpBreak
	OpContinue
	OpImport
	OpPop
)

var opNames = [...]string{
	OpPushConstant:        "PushConstant",
	OpReadVariable:        "ReadVariable",
	OpBindVariable:        "BindVariable",
	OpAssignVariable:      "AssignVariable",
	OpBuildArray:          "BuildArray",
	OpReadIndex:           "ReadIndex",
	OpReadVariableIndex:   "ReadVariableIndex",
	OpAssignVariableIndex: "AssignVariableIndex",
	OpBinary:              "BinaryOp",
	OpUnary:               "UnaryOp",
	OpDefineFunction:      "DefineFunction",
	OpCall:                "Call",
	OpCallNative:          "CallNative",
	OpIf:                  "If",
	OpWhile:               "While",
	OpReturn:              "Return",
	OpBreak:               "Break",
	OpContinue:            "Continue",
	OpImport:              "Import",
	OpPop:                 "Pop",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Instruction is one primitive operation. Line/Col point at the source token
// the instruction was compiled from (0 when synthesized).
type Instruction struct {
	Op     Op
	Value  Value
	Name   string
	Count  int
	Params []string
	Body   []Instruction
	Alt    []Instruction
	Native NativeFunc
	Line   int
	Col    int
}

// String renders a one-line summary (sub-sequences are shown by length).
func (in Instruction) String() string {
	switch in.Op {
	case OpPushConstant:
		return fmt.Sprintf("PushConstant(%s)", FormatValue(in.Value))
	case OpReadVariable, OpBindVariable, OpAssignVariable, OpAssignVariableIndex, OpImport:
		return fmt.Sprintf("%s(%s)", in.Op, in.Name)
	case OpBinary, OpUnary:
		return fmt.Sprintf("%s(%s)", in.Op, in.Name)
	case OpBuildArray:
		return fmt.Sprintf("BuildArray(%d)", in.Count)
	case OpReadIndex:
		return fmt.Sprintf("ReadIndex(<%d instrs>)", len(in.Body))
	case OpReadVariableIndex:
		return fmt.Sprintf("ReadVariableIndex(%s, <%d instrs>)", in.Name, len(in.Body))
	case OpDefineFunction:
		return fmt.Sprintf("DefineFunction(%s, <%d instrs>)", in.Name, len(in.Body))
	case OpCall:
		return fmt.Sprintf("Call(%s, <%d instrs>)", in.Name, len(in.Body))
	case OpCallNative:
		return "CallNative"
	case OpIf:
		return fmt.Sprintf("If(<%d instrs>, <%d instrs>)", len(in.Body), len(in.Alt))
	case OpWhile:
		return fmt.Sprintf("While(<%d instrs>, <%d instrs>)", len(in.Body), len(in.Alt))
	case OpReturn, OpBreak, OpContinue, OpPop:
		return in.Op.String()
	}
	return in.Op.String()
}

// Constructors used by the compiler and parser.

func pushConst(v Value, t Token) Instruction {
	return Instruction{Op: OpPushConstant, Value: v, Line: t.Line, Col: t.Col}
}

func named(op Op, name string, t Token) Instruction {
	return Instruction{Op: op, Name: name, Line: t.Line, Col: t.Col}
}

func withBody(op Op, name string, body []Instruction, t Token) Instruction {
	return Instruction{Op: op, Name: name, Body: body, Line: t.Line, Col: t.Col}
}
