package exec

import (
	"fmt"
)

// Op selects an instruction variant.
type Op int

const (
	OP_NOP     = Op(0)  // NOP
	OP_MOV     = Op(1)  // MOV <src> <dst>
	OP_MOVI    = Op(2)  // MOV <imm> <dst>
	OP_ADD     = Op(3)  // ADD <src>
	OP_ADDI    = Op(4)  // ADD <imm>
	OP_SUB     = Op(5)  // SUB <src>
	OP_SUBI    = Op(6)  // SUB <imm>
	OP_NEG     = Op(7)  // NEG
	OP_AND     = Op(8)  // AND <src>
	OP_ANDI    = Op(9)  // AND <imm>
	OP_OR      = Op(10) // OR <src>
	OP_ORI     = Op(11) // OR <imm>
	OP_XOR     = Op(12) // XOR <src>
	OP_XORI    = Op(13) // XOR <imm>
	OP_SHL     = Op(14) // SHL <src>
	OP_SHLI    = Op(15) // SHL <imm>
	OP_SHR     = Op(16) // SHR <src>
	OP_SHRI    = Op(17) // SHR <imm>
	OP_JMP     = Op(18) // JMP <label>
	OP_JEZ     = Op(19) // JEZ <label>
	OP_JNZ     = Op(20) // JNZ <label>
	OP_JGZ     = Op(21) // JGZ <label>
	OP_JLZ     = Op(22) // JLZ <label>
	OP_JRO     = Op(23) // JRO <src>
	OP_JROI    = Op(24) // JRO <imm>
	OP_SAV     = Op(25) // SAV
	OP_SWP     = Op(26) // SWP
	OP_HCF     = Op(27) // HCF
	OP_MISSING = Op(28) // <invalid>
)

var opName = [...]string{
	"NOP", "MOV", "MOV", "ADD", "ADD", "SUB", "SUB", "NEG",
	"AND", "AND", "OR", "OR", "XOR", "XOR", "SHL", "SHL", "SHR", "SHR",
	"JMP", "JEZ", "JNZ", "JGZ", "JLZ", "JRO", "JRO",
	"SAV", "SWP", "HCF", "<invalid>",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opName) {
		return "<invalid>"
	}
	return opName[op]
}

// Instruction is one compiled, immutable instruction. Only the machine
// state changes during execution.
type Instruction struct {
	Op        Op
	Src       Target // Source operand for target forms.
	Dst       Target // Destination of MOV.
	Immediate int16  // Operand for immediate forms.
	Label     string // Jump destination label.
}

func (in Instruction) String() string {
	switch in.Op {
	case OP_NOP, OP_NEG, OP_SAV, OP_SWP, OP_HCF, OP_MISSING:
		return in.Op.String()
	case OP_MOV:
		return fmt.Sprintf("%v %v %v", in.Op, in.Src, in.Dst)
	case OP_MOVI:
		return fmt.Sprintf("%v %v %v", in.Op, in.Immediate, in.Dst)
	case OP_JMP, OP_JEZ, OP_JNZ, OP_JGZ, OP_JLZ:
		return fmt.Sprintf("%v %v", in.Op, in.Label)
	case OP_ADDI, OP_SUBI, OP_ANDI, OP_ORI, OP_XORI, OP_SHLI, OP_SHRI, OP_JROI:
		return fmt.Sprintf("%v %v", in.Op, in.Immediate)
	default:
		return fmt.Sprintf("%v %v", in.Op, in.Src)
	}
}
