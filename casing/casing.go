// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package casing implements the topology layer of the grid: a casing with
// up to six node slots, one per face, and the 24 directed pipes wiring
// every face's ports to the correct neighboring face and port.
package casing

import (
	"log"

	"github.com/ezrec/tisvm/pipe"
)

// Face identifies one of the six slots of a casing.
type Face int

const (
	FACE_Y_NEG = Face(0) // Y_NEG
	FACE_Y_POS = Face(1) // Y_POS
	FACE_Z_NEG = Face(2) // Z_NEG
	FACE_Z_POS = Face(3) // Z_POS
	FACE_X_NEG = Face(4) // X_NEG
	FACE_X_POS = Face(5) // X_POS

	FACE_COUNT = 6
)

var faceName = [...]string{"Y_NEG", "Y_POS", "Z_NEG", "Z_POS", "X_NEG", "X_POS"}

func (f Face) String() string {
	if f < 0 || int(f) >= len(faceName) {
		return "invalid"
	}
	return faceName[f]
}

// FaceByName maps the display name of a face back to its value.
var FaceByName = map[string]Face{
	"Y_NEG": FACE_Y_NEG,
	"Y_POS": FACE_Y_POS,
	"Z_NEG": FACE_Z_NEG,
	"Z_POS": FACE_Z_POS,
	"X_NEG": FACE_X_NEG,
	"X_POS": FACE_X_POS,
}

// Port identifies one of the four directional ports local to a face.
type Port int

const (
	PORT_LEFT  = Port(0) // LEFT
	PORT_RIGHT = Port(1) // RIGHT
	PORT_UP    = Port(2) // UP
	PORT_DOWN  = Port(3) // DOWN

	PORT_COUNT = 4
)

var portName = [...]string{"LEFT", "RIGHT", "UP", "DOWN"}

func (p Port) String() string {
	if p < 0 || int(p) >= len(portName) {
		return "invalid"
	}
	return portName[p]
}

// Mapping for faces and ports around the edges of the casing, i.e. to get
// the other side of the edge identified by a face and a local port. The
// tables are involutions: mapping a mapped pair yields the original pair.
var faceMapping = [FACE_COUNT][PORT_COUNT]Face{
	{FACE_X_NEG, FACE_X_POS, FACE_Z_POS, FACE_Z_NEG}, // Y_NEG
	{FACE_X_POS, FACE_X_NEG, FACE_Z_POS, FACE_Z_NEG}, // Y_POS
	{FACE_X_POS, FACE_X_NEG, FACE_Y_POS, FACE_Y_NEG}, // Z_NEG
	{FACE_X_NEG, FACE_X_POS, FACE_Y_POS, FACE_Y_NEG}, // Z_POS
	{FACE_Z_NEG, FACE_Z_POS, FACE_Y_POS, FACE_Y_NEG}, // X_NEG
	{FACE_Z_POS, FACE_Z_NEG, FACE_Y_POS, FACE_Y_NEG}, // X_POS
	//   LEFT        RIGHT       UP          DOWN
}

var portMapping = [FACE_COUNT][PORT_COUNT]Port{
	{PORT_DOWN, PORT_DOWN, PORT_DOWN, PORT_DOWN},     // Y_NEG
	{PORT_UP, PORT_UP, PORT_UP, PORT_UP},             // Y_POS
	{PORT_RIGHT, PORT_LEFT, PORT_DOWN, PORT_DOWN},    // Z_NEG
	{PORT_RIGHT, PORT_LEFT, PORT_UP, PORT_UP},        // Z_POS
	{PORT_RIGHT, PORT_LEFT, PORT_RIGHT, PORT_LEFT},   // X_NEG
	{PORT_RIGHT, PORT_LEFT, PORT_LEFT, PORT_RIGHT},   // X_POS
	//   LEFT        RIGHT       UP          DOWN
}

// MapFace returns the face on the other side of the edge identified by
// face and port.
func MapFace(face Face, port Port) Face {
	return faceMapping[face][port]
}

// MapPort returns the port on the other side of the edge, relative to the
// face on the other side.
func MapPort(face Face, port Port) Port {
	return portMapping[face][port]
}

// pack converts a face-port tuple to a flat pipe index.
func pack(face Face, port Port) int {
	return int(face)*PORT_COUNT + int(port)
}

// packMapped converts a face-port tuple to the flat pipe index of the
// same edge seen from the other side.
func packMapped(face Face, port Port) int {
	return pack(MapFace(face, port), MapPort(face, port))
}

// Module is a node installed in a casing slot.
type Module interface {
	// Step advances the module by a single tick.
	Step()
	// OnEnabled is called when the casing starts running.
	OnEnabled()
	// OnDisabled is called when the casing stops running or the module is
	// removed from its slot. Any pending port requests must be withdrawn.
	OnDisabled()
	// OnWriteComplete is called when a value the module wrote to the
	// specified port has been consumed by the neighbor.
	OnWriteComplete(port Port)
}

// Casing holds up to six modules and the pipes connecting them.
type Casing struct {
	Verbose bool // Set to enable verbose logging.

	modules [FACE_COUNT]Module
	pipes   [FACE_COUNT * PORT_COUNT]pipe.Pipe
	enabled bool
}

// NewCasing creates an empty casing with all pipes idle.
func NewCasing() (c *Casing) {
	c = &Casing{}

	for face := Face(0); face < FACE_COUNT; face++ {
		for port := Port(0); port < PORT_COUNT; port++ {
			// The writer of the pipe received on (face, port) is the
			// module on the mapped side of the edge.
			writerFace := MapFace(face, port)
			writerPort := MapPort(face, port)
			c.pipes[pack(face, port)].SetWriteCompleter(func() {
				if module := c.modules[writerFace]; module != nil {
					module.OnWriteComplete(writerPort)
				}
			})
		}
	}

	return
}

// Module returns the module installed on the specified face, or nil.
func (c *Casing) Module(face Face) Module {
	return c.modules[face]
}

// SetModule installs a module on the specified face, or removes it when
// module is nil. Pending pipe state controlled by the previous module is
// canceled so the neighbor slots cannot deadlock on a vanished partner.
func (c *Casing) SetModule(face Face, module Module) {
	if c.modules[face] == module {
		return
	}

	if c.Verbose {
		log.Printf("casing: %v: set module %T", face, module)
	}

	old := c.modules[face]
	if c.enabled && old != nil {
		old.OnDisabled()
	}

	c.modules[face] = module

	for port := Port(0); port < PORT_COUNT; port++ {
		c.ReceivingPipe(face, port).CancelRead()
		c.SendingPipe(face, port).CancelWrite()
	}

	if c.enabled && module != nil {
		module.OnEnabled()
	}
}

// ReceivingPipe returns the pipe a module on the specified face reads
// from port.
func (c *Casing) ReceivingPipe(face Face, port Port) *pipe.Pipe {
	return &c.pipes[pack(face, port)]
}

// SendingPipe returns the pipe a module on the specified face writes to
// port. It is the receiving pipe of the mapped face and port, so the
// mapping is its own inverse.
func (c *Casing) SendingPipe(face Face, port Port) *pipe.Pipe {
	return &c.pipes[packMapped(face, port)]
}

// Enabled returns true while the casing is running.
func (c *Casing) Enabled() bool {
	return c.enabled
}

// Enable notifies every installed module that the simulation is running.
func (c *Casing) Enable() {
	if c.enabled {
		return
	}
	c.enabled = true

	if c.Verbose {
		log.Printf("casing: enable")
	}

	for _, module := range c.modules {
		if module != nil {
			module.OnEnabled()
		}
	}
}

// Disable notifies every installed module that the simulation stopped and
// cancels every pipe's in-flight read and write, so no dangling handshake
// survives a shutdown.
func (c *Casing) Disable() {
	if !c.enabled {
		return
	}
	c.enabled = false

	if c.Verbose {
		log.Printf("casing: disable")
	}

	for _, module := range c.modules {
		if module != nil {
			module.OnDisabled()
		}
	}
	for n := range c.pipes {
		c.pipes[n].CancelRead()
		c.pipes[n].CancelWrite()
	}
}

// StepModules advances every installed module by a single tick.
func (c *Casing) StepModules() {
	for _, module := range c.modules {
		if module != nil {
			module.Step()
		}
	}
}

// StepPipes advances every pipe by one tick boundary. Must run strictly
// after all modules have stepped within a tick, so a transfer requested
// during this tick only becomes observable at the start of the next one.
func (c *Casing) StepPipes() {
	for n := range c.pipes {
		c.pipes[n].Step()
	}
}

// SavePipes captures the handshake state of all pipes, in flat index
// order.
func (c *Casing) SavePipes() (snaps []pipe.Snapshot) {
	snaps = make([]pipe.Snapshot, len(c.pipes))
	for n := range c.pipes {
		snaps[n] = c.pipes[n].Save()
	}
	return
}

// LoadPipes restores pipe handshake state captured by SavePipes.
func (c *Casing) LoadPipes(snaps []pipe.Snapshot) {
	for n := range c.pipes {
		if n < len(snaps) {
			c.pipes[n].Load(snaps[n])
		}
	}
}
