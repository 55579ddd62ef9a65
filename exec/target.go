package exec

import (
	"github.com/ezrec/tisvm/casing"
)

// Target is an addressable read/write endpoint an instruction can name.
type Target int

const (
	TARGET_NONE = Target(-1) // NONE

	TARGET_ACC   = Target(0) // ACC
	TARGET_BAK   = Target(1) // BAK
	TARGET_NIL   = Target(2) // NIL
	TARGET_LEFT  = Target(3) // LEFT
	TARGET_RIGHT = Target(4) // RIGHT
	TARGET_UP    = Target(5) // UP
	TARGET_DOWN  = Target(6) // DOWN
	TARGET_ANY   = Target(7) // ANY
	TARGET_LAST  = Target(8) // LAST

	TARGET_COUNT = 9
)

var targetName = [...]string{"ACC", "BAK", "NIL", "LEFT", "RIGHT", "UP", "DOWN", "ANY", "LAST"}

func (t Target) String() string {
	if t < 0 || int(t) >= len(targetName) {
		return "NONE"
	}
	return targetName[t]
}

// targetMap resolves argument tokens to targets during compilation.
var targetMap = map[string]Target{
	"ACC":   TARGET_ACC,
	"BAK":   TARGET_BAK,
	"NIL":   TARGET_NIL,
	"LEFT":  TARGET_LEFT,
	"RIGHT": TARGET_RIGHT,
	"UP":    TARGET_UP,
	"DOWN":  TARGET_DOWN,
	"ANY":   TARGET_ANY,
	"LAST":  TARGET_LAST,
}

// TargetByName resolves a target display name.
func TargetByName(name string) (target Target, ok bool) {
	target, ok = targetMap[name]
	return
}

// Port returns the concrete port backing a directional target.
func (t Target) Port() (port casing.Port, ok bool) {
	if t >= TARGET_LEFT && t <= TARGET_DOWN {
		port = casing.Port(t - TARGET_LEFT)
		ok = true
	}
	return
}

// portTarget is the inverse of Target.Port.
func portTarget(port casing.Port) Target {
	return TARGET_LEFT + Target(port)
}

// anyPriority is the order ANY attempts concrete ports.
var anyPriority = [...]casing.Port{
	casing.PORT_LEFT,
	casing.PORT_RIGHT,
	casing.PORT_UP,
	casing.PORT_DOWN,
}

// TargetInterface is the uniform two-phase protocol over any endpoint.
//
// BeginWrite returns true when the write completed immediately, as it
// does for the register and NIL targets; port writes complete through
// the pipe handshake and report in-progress via IsWriting. At most one
// write and one read request may be outstanding per target.
type TargetInterface interface {
	BeginWrite(value int16) bool
	CancelWrite()
	IsWriting() bool

	BeginRead()
	IsReading() bool
	CanTransfer() bool
	Read() int16
}

// targetAcc provides instant reads and writes on the accumulator.
type targetAcc struct {
	machine *Machine
}

func (t *targetAcc) BeginWrite(value int16) bool {
	t.machine.State.Acc = value
	return true
}

func (t *targetAcc) CancelWrite()      {}
func (t *targetAcc) IsWriting() bool   { return false }
func (t *targetAcc) BeginRead()        {}
func (t *targetAcc) IsReading() bool   { return false }
func (t *targetAcc) CanTransfer() bool { return true }

func (t *targetAcc) Read() int16 {
	return t.machine.State.Acc
}

// targetBak only exists to make the target table total. BAK is reachable
// exclusively through SAV and SWP, so every access through the generic
// protocol is an internal fault.
type targetBak struct{}

func (t *targetBak) BeginWrite(value int16) bool { panic(ErrBakAccess) }
func (t *targetBak) CancelWrite()                { panic(ErrBakAccess) }
func (t *targetBak) IsWriting() bool             { panic(ErrBakAccess) }
func (t *targetBak) BeginRead()                  { panic(ErrBakAccess) }
func (t *targetBak) IsReading() bool             { panic(ErrBakAccess) }
func (t *targetBak) CanTransfer() bool           { panic(ErrBakAccess) }
func (t *targetBak) Read() int16                 { panic(ErrBakAccess) }

// targetNil silently consumes writes and always reads zero.
type targetNil struct{}

func (t *targetNil) BeginWrite(value int16) bool { return true }
func (t *targetNil) CancelWrite()                {}
func (t *targetNil) IsWriting() bool             { return false }
func (t *targetNil) BeginRead()                  {}
func (t *targetNil) IsReading() bool             { return false }
func (t *targetNil) CanTransfer() bool           { return true }
func (t *targetNil) Read() int16                 { return 0 }

// targetPort delegates to the pipes wired to one directional port. All
// handshake state lives in the pipes, so a restored snapshot resumes
// cleanly.
type targetPort struct {
	machine *Machine
	port    casing.Port
}

func (t *targetPort) BeginWrite(value int16) bool {
	if !t.machine.host.SendingPipe(t.port).BeginWrite(value) {
		panic(ErrHandshakeMisuse)
	}
	return false
}

func (t *targetPort) CancelWrite() {
	t.machine.host.SendingPipe(t.port).CancelWrite()
}

func (t *targetPort) IsWriting() bool {
	return t.machine.host.SendingPipe(t.port).IsWriting()
}

func (t *targetPort) BeginRead() {
	if !t.machine.host.ReceivingPipe(t.port).BeginRead() {
		panic(ErrHandshakeMisuse)
	}
}

func (t *targetPort) IsReading() bool {
	return t.machine.host.ReceivingPipe(t.port).IsReading()
}

func (t *targetPort) CanTransfer() bool {
	return t.machine.host.ReceivingPipe(t.port).CanTransfer()
}

func (t *targetPort) Read() int16 {
	return t.machine.host.ReceivingPipe(t.port).Read()
}

// targetAny engages all four concrete ports and commits to the first one
// whose handshake completes, in fixed priority order. The committed port
// is remembered in the machine state as LAST.
type targetAny struct {
	machine *Machine
}

func (t *targetAny) BeginWrite(value int16) bool {
	for _, port := range anyPriority {
		t.machine.host.SendingPipe(port).BeginWrite(value)
	}
	return false
}

func (t *targetAny) CancelWrite() {
	for _, port := range anyPriority {
		t.machine.host.SendingPipe(port).CancelWrite()
	}
}

func (t *targetAny) IsWriting() bool {
	for _, port := range anyPriority {
		if t.machine.host.SendingPipe(port).IsWriting() {
			return true
		}
	}
	return false
}

func (t *targetAny) BeginRead() {
	for _, port := range anyPriority {
		t.machine.host.ReceivingPipe(port).BeginRead()
	}
}

func (t *targetAny) IsReading() bool {
	for _, port := range anyPriority {
		if t.machine.host.ReceivingPipe(port).IsReading() {
			return true
		}
	}
	return false
}

func (t *targetAny) CanTransfer() bool {
	for _, port := range anyPriority {
		if t.machine.host.ReceivingPipe(port).CanTransfer() {
			return true
		}
	}
	return false
}

func (t *targetAny) Read() (value int16) {
	for _, port := range anyPriority {
		if !t.machine.host.ReceivingPipe(port).CanTransfer() {
			continue
		}
		value = t.machine.host.ReceivingPipe(port).Read()
		t.machine.State.Last = portTarget(port)
		for _, other := range anyPriority {
			if other != port {
				t.machine.host.ReceivingPipe(other).CancelRead()
			}
		}
		return
	}

	panic(ErrHandshakeMisuse)
}

// targetLast forwards to the port of the most recent ANY resolution. If
// no ANY has ever committed, LAST stalls forever.
type targetLast struct {
	machine *Machine
}

func (t *targetLast) resolve() (iface TargetInterface, ok bool) {
	if port, isPort := t.machine.State.Last.Port(); isPort {
		iface = t.machine.Interface(portTarget(port))
		ok = true
	}
	return
}

func (t *targetLast) BeginWrite(value int16) bool {
	if iface, ok := t.resolve(); ok {
		return iface.BeginWrite(value)
	}
	return false
}

func (t *targetLast) CancelWrite() {
	if iface, ok := t.resolve(); ok {
		iface.CancelWrite()
	}
}

func (t *targetLast) IsWriting() bool {
	if iface, ok := t.resolve(); ok {
		return iface.IsWriting()
	}
	// Unresolved LAST never completes.
	return true
}

func (t *targetLast) BeginRead() {
	if iface, ok := t.resolve(); ok {
		iface.BeginRead()
	}
}

func (t *targetLast) IsReading() bool {
	if iface, ok := t.resolve(); ok {
		return iface.IsReading()
	}
	return true
}

func (t *targetLast) CanTransfer() bool {
	if iface, ok := t.resolve(); ok {
		return iface.CanTransfer()
	}
	return false
}

func (t *targetLast) Read() int16 {
	if iface, ok := t.resolve(); ok {
		return iface.Read()
	}
	panic(ErrHandshakeMisuse)
}
