// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator hosts a casing and its execution nodes, driving the
// per-tick step loop and providing snapshot persistence and layout
// loading for the command line front end.
package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/exec"
	"github.com/ezrec/tisvm/internal"
)

var _emulator_defines = map[string]string{
	"FACE_COUNT": fmt.Sprintf("%v", casing.FACE_COUNT),
	"PORT_COUNT": fmt.Sprintf("%v", casing.PORT_COUNT),
}

// Emulator state. One casing plus the nodes installed in it.
type Emulator struct {
	Verbose bool // If set, enables verbose logging.

	Casing *casing.Casing // The hosted casing.
	Ticks  int            // Ticks since creation or restore.

	nodes [casing.FACE_COUNT]*exec.Node
}

// NewEmulator creates an emulator with an empty casing.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Casing: casing.NewCasing(),
	}

	return
}

// Defines returns an iterator over all host-visible constants.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		exec.Defines(),
	)
}

// Install compiles source and installs the resulting node on a face,
// replacing any previous node there.
func (emu *Emulator) Install(face casing.Face, source string) (node *exec.Node, err error) {
	node = exec.NewNode(emu.Casing, face)
	node.Verbose = emu.Verbose

	err = node.Compile(source)
	if err != nil {
		return
	}

	emu.nodes[face] = node
	emu.Casing.SetModule(face, node)

	return
}

// Remove clears the node slot on the specified face.
func (emu *Emulator) Remove(face casing.Face) {
	emu.nodes[face] = nil
	emu.Casing.SetModule(face, nil)
}

// Node returns the node installed on the specified face, or nil.
func (emu *Emulator) Node(face casing.Face) *exec.Node {
	return emu.nodes[face]
}

// Enable starts the simulation.
func (emu *Emulator) Enable() {
	emu.Casing.Verbose = emu.Verbose
	emu.Casing.Enable()
}

// Disable stops the simulation, canceling all in-flight handshakes.
func (emu *Emulator) Disable() {
	emu.Casing.Disable()
}

// Tick advances the simulation by one step: all modules first, then all
// pipes.
func (emu *Emulator) Tick() {
	emu.Casing.StepModules()
	emu.Casing.StepPipes()
	emu.Ticks++
}

// Run advances the simulation by the specified number of ticks.
func (emu *Emulator) Run(ticks int) {
	for range ticks {
		emu.Tick()
	}
}
