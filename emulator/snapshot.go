package emulator

import (
	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/exec"
	"github.com/ezrec/tisvm/pipe"

	"gopkg.in/yaml.v3"
)

// nodeSnapshot is the persisted state of one execution node.
type nodeSnapshot struct {
	Source  string `yaml:"source"`
	Acc     int16  `yaml:"acc"`
	Bak     int16  `yaml:"bak"`
	Pc      int    `yaml:"pc"`
	Last    string `yaml:"last,omitempty"`
	Halted  bool   `yaml:"halted,omitempty"`
	Pending bool   `yaml:"pending,omitempty"`
}

// pipeSnapshot is the persisted handshake state of one pipe.
type pipeSnapshot struct {
	State    int   `yaml:"state"`
	Value    int16 `yaml:"value,omitempty"`
	Ready    bool  `yaml:"ready,omitempty"`
	Consumed bool  `yaml:"consumed,omitempty"`
}

// snapshot is the persisted state of the whole emulator.
type snapshot struct {
	Ticks   int                     `yaml:"ticks"`
	Enabled bool                    `yaml:"enabled"`
	Faces   map[string]nodeSnapshot `yaml:"faces,omitempty"`
	Pipes   []pipeSnapshot          `yaml:"pipes,omitempty"`
}

// Save serializes the emulator state to an opaque blob. The host only
// needs round-trip semantics; the encoding is YAML for debuggability.
func (emu *Emulator) Save() (data []byte, err error) {
	snap := snapshot{
		Ticks:   emu.Ticks,
		Enabled: emu.Casing.Enabled(),
		Faces:   map[string]nodeSnapshot{},
	}

	for face := casing.Face(0); face < casing.FACE_COUNT; face++ {
		node := emu.nodes[face]
		if node == nil {
			continue
		}

		state := node.Machine.State
		ns := nodeSnapshot{
			Source:  node.Source(),
			Acc:     state.Acc,
			Bak:     state.Bak,
			Pc:      state.Pc,
			Halted:  state.Halted,
			Pending: node.Machine.Pending,
		}
		if state.Last != exec.TARGET_NONE {
			ns.Last = state.Last.String()
		}
		snap.Faces[face.String()] = ns
	}

	for _, ps := range emu.Casing.SavePipes() {
		snap.Pipes = append(snap.Pipes, pipeSnapshot{
			State:    int(ps.State),
			Value:    ps.Value,
			Ready:    ps.Ready,
			Consumed: ps.Consumed,
		})
	}

	return yaml.Marshal(&snap)
}

// Load restores emulator state saved by Save. Programs are recompiled
// from their retained source, then registers and handshake state are
// reapplied.
func (emu *Emulator) Load(data []byte) (err error) {
	var snap snapshot
	err = yaml.Unmarshal(data, &snap)
	if err != nil {
		return
	}

	emu.Disable()
	for face := casing.Face(0); face < casing.FACE_COUNT; face++ {
		emu.Remove(face)
	}

	for name, ns := range snap.Faces {
		face, ok := casing.FaceByName[name]
		if !ok {
			return &ErrFace{Face: name, Err: ErrFaceUnknown}
		}

		node, installErr := emu.Install(face, ns.Source)
		if installErr != nil {
			return &ErrFace{Face: name, Err: installErr}
		}

		state := node.Machine.State
		state.Acc = ns.Acc
		state.Bak = ns.Bak
		state.Pc = ns.Pc
		state.Halted = ns.Halted
		if target, isTarget := exec.TargetByName(ns.Last); isTarget {
			state.Last = target
		}
		node.Pending(ns.Pending)
	}

	snaps := make([]pipe.Snapshot, len(snap.Pipes))
	for n, ps := range snap.Pipes {
		snaps[n] = pipe.Snapshot{
			State:    pipe.State(ps.State),
			Value:    ps.Value,
			Ready:    ps.Ready,
			Consumed: ps.Consumed,
		}
	}
	emu.Casing.LoadPipes(snaps)

	emu.Ticks = snap.Ticks
	if snap.Enabled {
		emu.Enable()
	}

	return
}
