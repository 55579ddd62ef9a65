// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package exec

import (
	"log"

	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/pipe"
)

// PipeHost locates the pipes wired to a node's local ports. Implemented
// by the node adapter over the casing, and by test fixtures.
type PipeHost interface {
	ReceivingPipe(port casing.Port) *pipe.Pipe
	SendingPipe(port casing.Port) *pipe.Pipe
}

// outcome classifies the result of executing a single instruction.
type outcome int

const (
	advanced = outcome(0) // program counter moved to the next instruction
	jumped   = outcome(1) // program counter was set explicitly
	stalled  = outcome(2) // instruction is waiting on a port handshake
)

// Machine is the single-step interpreter of one node.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	State *MachineState // Register and program state.

	// Pending is set while the write half of a MOV is in flight on a
	// port. It is cleared when the handshake resolves, on cancel, and on
	// recompile.
	Pending bool

	host    PipeHost
	targets [TARGET_COUNT]TargetInterface
}

// NewMachine creates a machine wired to the specified pipe host.
func NewMachine(host PipeHost) (m *Machine) {
	m = &Machine{
		State: NewMachineState(),
		host:  host,
	}

	m.targets[TARGET_ACC] = &targetAcc{machine: m}
	m.targets[TARGET_BAK] = &targetBak{}
	m.targets[TARGET_NIL] = &targetNil{}
	for _, port := range anyPriority {
		m.targets[portTarget(port)] = &targetPort{machine: m, port: port}
	}
	m.targets[TARGET_ANY] = &targetAny{machine: m}
	m.targets[TARGET_LAST] = &targetLast{machine: m}

	return
}

// Interface returns the target interface for the specified target.
func (m *Machine) Interface(target Target) TargetInterface {
	return m.targets[target]
}

// Step executes at most one instruction. A machine without a program, or
// one that halted, does nothing. A stalled instruction is re-attempted
// from where it stalled on the next step, without advancing the program
// counter.
func (m *Machine) Step() {
	state := m.State
	if state.Halted || len(state.Instructions) == 0 {
		return
	}

	state.validate()
	in := state.Instructions[state.Pc]

	if m.Verbose {
		log.Printf("exec: %2d: %v", state.Pc, in)
	}

	if m.execute(in) != stalled {
		state.validate()
	}
}

// CancelRequests withdraws any in-flight port requests owned by this
// machine, so a partner node's stalled operation cannot hang forever.
// Called when the node is disabled or removed from its slot.
func (m *Machine) CancelRequests() {
	for _, port := range anyPriority {
		m.host.ReceivingPipe(port).CancelRead()
		m.host.SendingPipe(port).CancelWrite()
	}
	m.Pending = false
}

// onWriteCompleted is called, via the casing hook, when a value this
// machine wrote has been consumed by a neighbor. A write issued through
// ANY commits to the consuming port: the sibling writes are withdrawn
// and LAST is updated.
func (m *Machine) onWriteCompleted(port casing.Port) {
	state := m.State
	if !m.Pending || len(state.Instructions) == 0 {
		return
	}

	state.validate()
	in := state.Instructions[state.Pc]
	if (in.Op != OP_MOV && in.Op != OP_MOVI) || in.Dst != TARGET_ANY {
		return
	}

	state.Last = portTarget(port)
	for _, other := range anyPriority {
		if other != port {
			m.host.SendingPipe(other).CancelWrite()
		}
	}
}

// readTarget drives the read half of the two-phase protocol. Instant
// targets complete within the call; port targets register intent on the
// first attempt and report a stall until the handshake matures.
func (m *Machine) readTarget(target Target) (value int16, ok bool) {
	iface := m.Interface(target)

	if !iface.IsReading() {
		iface.BeginRead()
	}
	if !iface.CanTransfer() {
		return
	}

	value = iface.Read()
	ok = true

	return
}

// writeTarget drives the write half of a MOV. Returns advanced once the
// destination has accepted the value and the transfer resolved.
func (m *Machine) writeTarget(target Target, value int16) outcome {
	if m.Interface(target).BeginWrite(value) {
		m.State.Pc++
		return advanced
	}

	m.Pending = true
	return stalled
}

// finishWrite polls an in-flight MOV write for completion.
func (m *Machine) finishWrite(target Target) outcome {
	if m.Interface(target).IsWriting() {
		return stalled
	}

	m.Pending = false
	m.State.Pc++
	return advanced
}

func (m *Machine) execute(in Instruction) outcome {
	state := m.State

	switch in.Op {
	case OP_NOP:
		state.Pc++

	case OP_MOV:
		if m.Pending {
			return m.finishWrite(in.Dst)
		}
		value, ok := m.readTarget(in.Src)
		if !ok {
			return stalled
		}
		return m.writeTarget(in.Dst, value)

	case OP_MOVI:
		if m.Pending {
			return m.finishWrite(in.Dst)
		}
		return m.writeTarget(in.Dst, in.Immediate)

	case OP_ADD, OP_SUB, OP_AND, OP_OR, OP_XOR, OP_SHL, OP_SHR:
		value, ok := m.readTarget(in.Src)
		if !ok {
			return stalled
		}
		m.alu(in.Op, value)
		state.Pc++

	case OP_ADDI, OP_SUBI, OP_ANDI, OP_ORI, OP_XORI, OP_SHLI, OP_SHRI:
		m.alu(in.Op, in.Immediate)
		state.Pc++

	case OP_NEG:
		state.Acc = -state.Acc
		state.Pc++

	case OP_JMP:
		state.Pc = state.Labels[in.Label]
		return jumped

	case OP_JEZ:
		return m.jumpIf(state.Acc == 0, in.Label)
	case OP_JNZ:
		return m.jumpIf(state.Acc != 0, in.Label)
	case OP_JGZ:
		return m.jumpIf(state.Acc > 0, in.Label)
	case OP_JLZ:
		return m.jumpIf(state.Acc < 0, in.Label)

	case OP_JRO:
		value, ok := m.readTarget(in.Src)
		if !ok {
			return stalled
		}
		state.Pc += int(value)
		return jumped

	case OP_JROI:
		state.Pc += int(in.Immediate)
		return jumped

	case OP_SAV:
		state.Bak = state.Acc
		state.Pc++

	case OP_SWP:
		state.Acc, state.Bak = state.Bak, state.Acc
		state.Pc++

	case OP_HCF:
		state.Halted = true
		return jumped

	case OP_MISSING:
		panic(ErrInstructionMissing)

	default:
		panic(ErrInstructionMissing)
	}

	return advanced
}

func (m *Machine) jumpIf(condition bool, label string) outcome {
	state := m.State
	if condition {
		state.Pc = state.Labels[label]
		return jumped
	}

	state.Pc++
	return advanced
}

// alu applies an arithmetic or bitwise operation to the accumulator.
func (m *Machine) alu(op Op, value int16) {
	state := m.State

	switch op {
	case OP_ADD, OP_ADDI:
		state.Acc += value
	case OP_SUB, OP_SUBI:
		state.Acc -= value
	case OP_AND, OP_ANDI:
		state.Acc &= value
	case OP_OR, OP_ORI:
		state.Acc |= value
	case OP_XOR, OP_XORI:
		state.Acc ^= value
	case OP_SHL, OP_SHLI:
		state.Acc = shiftLeft(state.Acc, value)
	case OP_SHR, OP_SHRI:
		state.Acc = shiftRight(state.Acc, value)
	}
}

// shiftLeft shifts logically; a negative amount shifts the other way, and
// shifts of 16 or more bits clear the value.
func shiftLeft(value int16, amount int16) int16 {
	switch {
	case amount <= -16 || amount >= 16:
		return 0
	case amount < 0:
		return int16(uint16(value) >> uint(-amount))
	default:
		return int16(uint16(value) << uint(amount))
	}
}

func shiftRight(value int16, amount int16) int16 {
	switch {
	case amount <= -16 || amount >= 16:
		return 0
	case amount < 0:
		return int16(uint16(value) << uint(-amount))
	default:
		return int16(uint16(value) >> uint(amount))
	}
}
