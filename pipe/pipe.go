// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package pipe implements the single-slot handshake channel that connects
// two node ports.
//
// A pipe carries at most one value in one direction. The writing side and
// the reading side each register their intent with BeginWrite and BeginRead;
// once both sides are present the pipe enters the transferring state. The
// transfer only becomes consumable after the next Step() boundary, so a
// node can never observe a transfer that was requested in the same tick.
package pipe

// State describes the handshake progress of a pipe.
type State int

const (
	IDLE         = State(0) // idle
	WRITING      = State(1) // writing
	READING      = State(2) // reading
	TRANSFERRING = State(3) // transferring
)

var stateName = [...]string{"idle", "writing", "reading", "transferring"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateName) {
		return "invalid"
	}
	return stateName[s]
}

// Pipe is a single-slot, single-direction synchronization channel.
//
// The zero value is an idle pipe.
type Pipe struct {
	state    State
	value    int16
	ready    bool // transfer has crossed a Step() boundary
	consumed bool // reading side has taken the value

	onWriteComplete func()
}

// SetWriteCompleter installs the hook invoked synchronously when the
// reading side consumes a value. The topology uses this to notify the
// writing node, which needs it to resolve writes on its ANY pseudo-port.
func (p *Pipe) SetWriteCompleter(hook func()) {
	p.onWriteComplete = hook
}

// State returns the current handshake state.
func (p *Pipe) State() State {
	return p.state
}

// BeginWrite registers a pending write of value.
//
// From IDLE the pipe moves to WRITING; if a reader is already waiting the
// pipe moves straight to TRANSFERRING. Returns false if the pipe already
// holds a write, which a correctly behaving node never causes.
func (p *Pipe) BeginWrite(value int16) (ok bool) {
	switch p.state {
	case IDLE:
		p.state = WRITING
		p.value = value
		ok = true
	case READING:
		p.state = TRANSFERRING
		p.value = value
		p.ready = false
		p.consumed = false
		ok = true
	}

	return
}

// BeginRead registers a pending read, symmetric to BeginWrite.
func (p *Pipe) BeginRead() (ok bool) {
	switch p.state {
	case IDLE:
		p.state = READING
		ok = true
	case WRITING:
		p.state = TRANSFERRING
		p.ready = false
		p.consumed = false
		ok = true
	}

	return
}

// CancelWrite withdraws a pending write.
//
// A write canceled mid-transfer reverts the pipe to the reader's
// single-sided state, unless the reader already consumed the value, in
// which case the handshake is simply finished early.
func (p *Pipe) CancelWrite() {
	switch p.state {
	case WRITING:
		p.reset()
	case TRANSFERRING:
		if p.consumed {
			p.reset()
		} else {
			p.reset()
			p.state = READING
		}
	}
}

// CancelRead withdraws a pending read. A read canceled mid-transfer hands
// the value back to the writing side.
func (p *Pipe) CancelRead() {
	switch p.state {
	case READING:
		p.reset()
	case TRANSFERRING:
		if p.consumed {
			p.reset()
		} else {
			value := p.value
			p.reset()
			p.state = WRITING
			p.value = value
		}
	}
}

// IsWriting returns true while a write is outstanding.
func (p *Pipe) IsWriting() bool {
	return p.state == WRITING || p.state == TRANSFERRING
}

// IsReading returns true while a read is outstanding.
func (p *Pipe) IsReading() bool {
	return p.state == READING || (p.state == TRANSFERRING && !p.consumed)
}

// CanTransfer returns true once the reading side may consume the value.
// A transfer matures at the Step() after both sides became present.
func (p *Pipe) CanTransfer() bool {
	return p.state == TRANSFERRING && p.ready && !p.consumed
}

// Read consumes the carried value. Valid exactly once per handshake, and
// only while CanTransfer() reports true. The pipe stays in the
// transferring state until the next Step().
func (p *Pipe) Read() (value int16) {
	value = p.value
	p.consumed = true

	if p.onWriteComplete != nil {
		p.onWriteComplete()
	}

	return
}

// Step advances the handshake by one tick boundary. A fresh transfer
// matures; a consumed transfer resolves back to idle. The topology calls
// this once per tick, strictly after every node has stepped.
func (p *Pipe) Step() {
	if p.state != TRANSFERRING {
		return
	}

	if p.consumed {
		p.reset()
	} else {
		p.ready = true
	}
}

func (p *Pipe) reset() {
	p.state = IDLE
	p.value = 0
	p.ready = false
	p.consumed = false
}

// Snapshot is the serializable handshake state of a pipe.
type Snapshot struct {
	State    State
	Value    int16
	Ready    bool
	Consumed bool
}

// Save captures the pipe state for persistence.
func (p *Pipe) Save() Snapshot {
	return Snapshot{
		State:    p.state,
		Value:    p.value,
		Ready:    p.ready,
		Consumed: p.consumed,
	}
}

// Load restores the pipe from a previously saved snapshot.
func (p *Pipe) Load(snap Snapshot) {
	p.state = snap.State
	p.value = snap.Value
	p.ready = snap.Ready
	p.consumed = snap.Consumed
}
