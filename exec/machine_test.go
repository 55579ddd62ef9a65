// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package exec

import (
	"testing"

	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/pipe"

	"github.com/stretchr/testify/assert"
)

// testHost wires a machine to a private set of pipes, standing in for
// the casing. Write completion is routed back the way the casing does.
type testHost struct {
	machine *Machine

	recv [casing.PORT_COUNT]pipe.Pipe
	send [casing.PORT_COUNT]pipe.Pipe
}

func (h *testHost) ReceivingPipe(port casing.Port) *pipe.Pipe { return &h.recv[port] }
func (h *testHost) SendingPipe(port casing.Port) *pipe.Pipe   { return &h.send[port] }

func (h *testHost) stepPipes() {
	for n := range h.recv {
		h.recv[n].Step()
		h.send[n].Step()
	}
}

func newTestMachine(t *testing.T, source string) (m *Machine, host *testHost) {
	host = &testHost{}
	m = NewMachine(host)
	host.machine = m

	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		host.send[port].SetWriteCompleter(func() {
			host.machine.onWriteCompleted(port)
		})
	}

	err := Compile(source, m.State)
	assert.NoError(t, err)

	return
}

func TestArithmetic(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		steps  int
		acc    int16
	}){
		{"add_sub", "ADD 1\nSUB 2\n", 2, -1},
		{"neg", "ADD 5\nNEG\n", 2, -5},
		{"wraparound", "ADD 32767\nADD 1\n", 2, -32768},
		{"underflow", "SUB 32767\nSUB 2\n", 2, 32767},
		{"and", "ADD 0x0F\nAND 9\n", 2, 9},
		{"or", "ADD 8\nOR 1\n", 2, 9},
		{"xor", "ADD 0x0F\nXOR 9\n", 2, 6},
		{"shl", "ADD 3\nSHL 2\n", 2, 12},
		{"shr", "ADD 12\nSHR 2\n", 2, 3},
		{"shl_neg", "ADD 12\nSHL -2\n", 2, 3},
		{"shr_neg", "ADD 3\nSHR -2\n", 2, 12},
		{"shl_all", "ADD 1\nSHL 16\n", 2, 0},
		{"shr_all", "ADD -1\nSHR 16\n", 2, 0},
		{"shr_logical", "SUB 1\nSHR 1\n", 2, 0x7fff},
		{"add_acc", "ADD 7\nADD ACC\n", 2, 14},
	}

	for _, entry := range table {
		m, _ := newTestMachine(t, entry.source)
		for range entry.steps {
			m.Step()
		}
		assert.Equal(entry.acc, m.State.Acc, entry.name)
	}
}

func TestBackupRegister(t *testing.T) {
	assert := assert.New(t)

	m, _ := newTestMachine(t, "ADD 3\nSAV\nADD 4\nSWP\nSWP\n")

	for range 5 {
		m.Step()
	}

	// SWP twice restores the accumulator and backup pair.
	assert.Equal(int16(7), m.State.Acc)
	assert.Equal(int16(3), m.State.Bak)
}

func TestJumps(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		steps  int
		acc    int16
	}){
		{"jmp", "JMP SKIP\nADD 1\nSKIP: ADD 2\n", 2, 2},
		{"jez_taken", "JEZ SKIP\nADD 1\nSKIP: ADD 2\n", 2, 2},
		{"jez_not", "ADD 1\nJEZ SKIP\nADD 1\nSKIP: ADD 2\n", 4, 4},
		{"jnz_taken", "ADD 1\nJNZ SKIP\nADD 1\nSKIP: ADD 2\n", 3, 3},
		{"jgz_taken", "ADD 1\nJGZ SKIP\nADD 1\nSKIP: ADD 2\n", 3, 3},
		{"jgz_not", "JGZ SKIP\nADD 1\nSKIP: ADD 2\n", 3, 3},
		{"jlz_taken", "SUB 1\nJLZ SKIP\nADD 1\nSKIP: ADD 2\n", 3, 1},
		{"jro", "JRO 2\nADD 1\nADD 2\n", 2, 2},
		{"jro_acc", "ADD 2\nJRO ACC\nADD 1\nADD 4\n", 3, 6},
	}

	for _, entry := range table {
		m, _ := newTestMachine(t, entry.source)
		for range entry.steps {
			m.Step()
		}
		assert.Equal(entry.acc, m.State.Acc, entry.name)
	}
}

func TestPinnedLoop(t *testing.T) {
	assert := assert.New(t)

	m, _ := newTestMachine(t, "LOOP: JMP LOOP\n")

	for range 10 {
		m.Step()
		assert.Equal(0, m.State.Pc)
	}
	assert.Equal(int16(0), m.State.Acc)
}

func TestProgramWrap(t *testing.T) {
	assert := assert.New(t)

	// Falling off the end restarts from the first instruction, as does
	// a relative jump outside the program.
	m, _ := newTestMachine(t, "ADD 1\nADD 2\n")
	for range 4 {
		m.Step()
	}
	assert.Equal(int16(6), m.State.Acc)

	m, _ = newTestMachine(t, "ADD 1\nJRO 5\n")
	for range 4 {
		m.Step()
	}
	assert.Equal(int16(2), m.State.Acc)
}

func TestHalt(t *testing.T) {
	assert := assert.New(t)

	m, _ := newTestMachine(t, "ADD 1\nHCF\nADD 1\n")

	for range 10 {
		m.Step()
	}

	assert.True(m.State.Halted)
	assert.Equal(int16(1), m.State.Acc)
}

func TestNoProgram(t *testing.T) {
	assert := assert.New(t)

	host := &testHost{}
	m := NewMachine(host)
	host.machine = m

	m.Step()
	assert.Equal(0, m.State.Pc)
}

func TestNilTarget(t *testing.T) {
	assert := assert.New(t)

	// NIL reads as zero and swallows writes without stalling.
	m, _ := newTestMachine(t, "ADD 5\nMOV ACC, NIL\nMOV NIL, ACC\n")

	for range 3 {
		m.Step()
	}

	assert.Equal(int16(0), m.State.Acc)
	assert.Equal(0, m.State.Pc)
}

func TestBakFault(t *testing.T) {
	assert := assert.New(t)

	m, _ := newTestMachine(t, "NOP\n")

	assert.PanicsWithValue(ErrBakAccess, func() {
		m.Interface(TARGET_BAK).Read()
	})
	assert.PanicsWithValue(ErrBakAccess, func() {
		m.Interface(TARGET_BAK).BeginWrite(1)
	})
}

func TestPortRead(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "MOV LEFT, ACC\n")

	// No writer yet; the read stalls and the program counter holds.
	m.Step()
	assert.Equal(0, m.State.Pc)
	assert.True(host.recv[casing.PORT_LEFT].IsReading())

	// A writer arrives, but the transfer only matures at the next tick
	// boundary.
	host.recv[casing.PORT_LEFT].BeginWrite(123)
	m.Step()
	assert.Equal(int16(0), m.State.Acc)

	host.stepPipes()
	m.Step()
	assert.Equal(int16(123), m.State.Acc)
}

func TestPortWrite(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "ADD 9\nMOV ACC, RIGHT\nADD 1\n")

	m.Step()
	m.Step()
	assert.True(m.Pending)
	assert.True(host.send[casing.PORT_RIGHT].IsWriting())

	// Stalled until a reader consumes the value and the pipe resolves.
	m.Step()
	assert.True(m.Pending)

	host.send[casing.PORT_RIGHT].BeginRead()
	host.stepPipes()
	assert.Equal(int16(9), host.send[casing.PORT_RIGHT].Read())

	// The write is not observed complete until the pipe goes idle.
	m.Step()
	assert.True(m.Pending)

	host.stepPipes()
	m.Step()
	assert.False(m.Pending)

	m.Step()
	assert.Equal(int16(10), m.State.Acc)
}

func TestMoveImmediateToPort(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "MOV 55, UP\n")

	m.Step()
	assert.True(host.send[casing.PORT_UP].IsWriting())

	host.send[casing.PORT_UP].BeginRead()
	host.stepPipes()
	assert.Equal(int16(55), host.send[casing.PORT_UP].Read())
}

func TestAnyWrite(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "MOV 5, ANY\nMOV 6, LAST\n")

	// The write is offered on every concrete port.
	m.Step()
	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		assert.True(host.send[port].IsWriting(), "%v", port)
	}

	// A reader on UP consumes; the sibling offers are withdrawn and
	// LAST commits to UP.
	host.send[casing.PORT_UP].BeginRead()
	host.stepPipes()
	host.send[casing.PORT_UP].Read()

	assert.Equal(TARGET_UP, m.State.Last)
	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		if port != casing.PORT_UP {
			assert.False(host.send[port].IsWriting(), "%v", port)
		}
	}

	host.stepPipes()
	m.Step()
	assert.Equal(1, m.State.Pc)
	assert.False(m.Pending)

	// LAST now routes to UP.
	m.Step()
	assert.True(host.send[casing.PORT_UP].IsWriting())
	host.send[casing.PORT_UP].BeginRead()
	host.stepPipes()
	assert.Equal(int16(6), host.send[casing.PORT_UP].Read())
}

func TestAnyRead(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "MOV ANY, ACC\n")

	// The read is requested on every concrete port.
	m.Step()
	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		assert.True(host.recv[port].IsReading(), "%v", port)
	}

	host.recv[casing.PORT_DOWN].BeginWrite(99)
	host.stepPipes()
	m.Step()

	assert.Equal(int16(99), m.State.Acc)
	assert.Equal(TARGET_DOWN, m.State.Last)

	// The sibling reads were withdrawn on commit.
	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		if port != casing.PORT_DOWN {
			assert.False(host.recv[port].IsReading(), "%v", port)
		}
	}
}

func TestAnyReadPriority(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "MOV ANY, ACC\n")

	m.Step()

	// With several ports ready, the lowest priority index wins.
	host.recv[casing.PORT_RIGHT].BeginWrite(2)
	host.recv[casing.PORT_DOWN].BeginWrite(4)
	host.stepPipes()
	m.Step()

	assert.Equal(int16(2), m.State.Acc)
	assert.Equal(TARGET_RIGHT, m.State.Last)
}

func TestLastUnresolved(t *testing.T) {
	assert := assert.New(t)

	// LAST with no prior ANY commit stalls forever.
	m, host := newTestMachine(t, "MOV LAST, ACC\n")

	for range 10 {
		m.Step()
		host.stepPipes()
	}

	assert.Equal(0, m.State.Pc)
	assert.Equal(int16(0), m.State.Acc)
	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		assert.False(host.recv[port].IsReading(), "%v", port)
	}
}

func TestCancelRequests(t *testing.T) {
	assert := assert.New(t)

	m, host := newTestMachine(t, "MOV 5, ANY\n")

	m.Step()
	assert.True(m.Pending)

	m.CancelRequests()
	assert.False(m.Pending)
	for port := casing.Port(0); port < casing.PORT_COUNT; port++ {
		assert.False(host.send[port].IsWriting(), "%v", port)
	}
}
