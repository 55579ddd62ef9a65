// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"testing"

	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/exec"

	"github.com/stretchr/testify/assert"
)

func TestInstall(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	node, err := emu.Install(casing.FACE_Z_NEG, "ADD 1\n")
	assert.NoError(err)
	assert.Same(node, emu.Node(casing.FACE_Z_NEG))

	// A compile failure leaves the slot empty.
	_, err = emu.Install(casing.FACE_Z_POS, "FROB\n")
	assert.ErrorIs(err, exec.ErrUnknownOpcode)
	assert.Nil(emu.Node(casing.FACE_Z_POS))

	emu.Remove(casing.FACE_Z_NEG)
	assert.Nil(emu.Node(casing.FACE_Z_NEG))
}

func TestRunArithmetic(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	node, err := emu.Install(casing.FACE_Y_POS, "ADD 1\nSUB 2\n")
	assert.NoError(err)

	emu.Enable()
	emu.Run(2)

	assert.Equal(int16(-1), node.Machine.State.Acc)
	assert.Equal(2, emu.Ticks)
}

func TestNeighborTransfer(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	// Z_NEG's RIGHT port maps onto X_NEG's LEFT port.
	assert.Equal(casing.FACE_X_NEG, casing.MapFace(casing.FACE_Z_NEG, casing.PORT_RIGHT))
	assert.Equal(casing.PORT_LEFT, casing.MapPort(casing.FACE_Z_NEG, casing.PORT_RIGHT))

	writer, err := emu.Install(casing.FACE_Z_NEG, "MOV 42, RIGHT\n")
	assert.NoError(err)
	reader, err := emu.Install(casing.FACE_X_NEG, "MOV LEFT, ACC\n")
	assert.NoError(err)

	emu.Enable()

	// Both sides rendezvous in the first tick; the value lands on the
	// reader in the second.
	emu.Tick()
	assert.Equal(int16(0), reader.Machine.State.Acc)
	assert.True(writer.Machine.Pending)

	emu.Tick()
	assert.Equal(int16(42), reader.Machine.State.Acc)

	// The write target reports complete as soon as the consuming tick's
	// pipe step resolves; the writer's machine picks it up next step.
	assert.False(writer.SendingPipe(casing.PORT_RIGHT).IsWriting())
	emu.Tick()
	assert.False(writer.Machine.Pending)
}

func TestStalledReaderNeverAdvances(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	reader, err := emu.Install(casing.FACE_Y_NEG, "MOV UP, ACC\nADD 1\n")
	assert.NoError(err)

	emu.Enable()
	emu.Run(10)

	assert.Equal(0, reader.Machine.State.Pc)
	assert.Equal(int16(0), reader.Machine.State.Acc)
}

func TestRecompileMidStall(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	node, err := emu.Install(casing.FACE_Z_NEG, "MOV 1, RIGHT\n")
	assert.NoError(err)

	emu.Enable()
	emu.Tick()
	assert.True(node.Machine.Pending)

	// Replacing the program in place withdraws the stalled write, so
	// the new program starts against idle pipes.
	assert.NoError(node.Compile("MOV 2, RIGHT\n"))
	assert.False(node.Machine.Pending)
	assert.False(node.SendingPipe(casing.PORT_RIGHT).IsWriting())

	assert.NotPanics(func() { emu.Tick() })

	// Only the new program's value is offered.
	p := node.SendingPipe(casing.PORT_RIGHT)
	p.BeginRead()
	emu.Tick()
	assert.Equal(int16(2), p.Read())
}

func TestDisableCancelsHandshakes(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	_, err := emu.Install(casing.FACE_Z_NEG, "MOV 1, RIGHT\n")
	assert.NoError(err)

	emu.Enable()
	emu.Tick()
	emu.Disable()

	node := emu.Node(casing.FACE_Z_NEG)
	assert.False(node.Machine.Pending)
	assert.False(node.SendingPipe(casing.PORT_RIGHT).IsWriting())
}

func TestSnapshotRoundTrip(t *testing.T) {
	assert := assert.New(t)

	source := map[casing.Face]string{
		casing.FACE_Z_NEG: "MOV 42, RIGHT\nADD 1\n",
		casing.FACE_X_NEG: "MOV LEFT, ACC\nSAV\n",
	}

	run := func(ticks int) *Emulator {
		emu := NewEmulator()
		for face, text := range source {
			_, err := emu.Install(face, text)
			assert.NoError(err)
		}
		emu.Enable()
		emu.Run(ticks)
		return emu
	}

	// Snapshot mid-handshake, restore into a fresh emulator, and verify
	// the continuation matches an uninterrupted run.
	straight := run(4)

	emu := run(1)
	data, err := emu.Save()
	assert.NoError(err)

	restored := NewEmulator()
	assert.NoError(restored.Load(data))
	assert.Equal(1, restored.Ticks)
	restored.Run(3)

	for face := range source {
		expected := straight.Node(face).Machine.State
		actual := restored.Node(face).Machine.State

		assert.Equal(expected.Acc, actual.Acc, "%v", face)
		assert.Equal(expected.Bak, actual.Bak, "%v", face)
		assert.Equal(expected.Pc, actual.Pc, "%v", face)
		assert.Equal(expected.Last, actual.Last, "%v", face)
		assert.Equal(straight.Node(face).Machine.Pending,
			restored.Node(face).Machine.Pending, "%v", face)
	}
	assert.Equal(straight.Ticks, restored.Ticks)
}

func TestSnapshotBadFace(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Load([]byte("faces:\n  W_NEG:\n    source: NOP\n"))
	assert.ErrorIs(err, ErrFaceUnknown)
}

func TestLayout(t *testing.T) {
	assert := assert.New(t)

	text := `
ticks: 3
faces:
  Z_NEG:
    program: |
      MOV 7, RIGHT
  X_NEG:
    program: |
      MOV LEFT, ACC
`

	layout, err := LoadLayout([]byte(text))
	assert.NoError(err)
	assert.Equal(3, layout.Ticks)

	emu := NewEmulator()
	assert.NoError(emu.InstallLayout(layout, "."))

	emu.Enable()
	emu.Run(layout.Ticks)

	assert.Equal(int16(7), emu.Node(casing.FACE_X_NEG).Machine.State.Acc)
}

func TestLayoutErrors(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	layout := &Layout{Faces: map[string]LayoutNode{"BOGUS": {Program: "NOP"}}}
	assert.ErrorIs(emu.InstallLayout(layout, "."), ErrFaceUnknown)

	layout = &Layout{Faces: map[string]LayoutNode{"Y_NEG": {}}}
	assert.ErrorIs(emu.InstallLayout(layout, "."), ErrProgramMissing)

	layout = &Layout{Faces: map[string]LayoutNode{"Y_NEG": {File: "no-such-file.asm"}}}
	assert.Error(emu.InstallLayout(layout, "."))
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}

	assert.Equal("6", defines["FACE_COUNT"])
	assert.Equal("4", defines["PORT_COUNT"])
	assert.Equal("20", defines["MAX_LINES"])
}
