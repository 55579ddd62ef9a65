package emulator

import (
	"os"
	"path/filepath"

	"github.com/ezrec/tisvm/casing"

	"gopkg.in/yaml.v3"
)

// LayoutNode describes the program of one face in a layout file. The
// program may be inline text or a reference to a source file.
type LayoutNode struct {
	Program string `yaml:"program,omitempty"`
	File    string `yaml:"file,omitempty"`
}

// Layout describes which faces of the casing carry nodes, and the tick
// budget to run them for.
type Layout struct {
	Ticks int                   `yaml:"ticks,omitempty"`
	Faces map[string]LayoutNode `yaml:"faces"`
}

// LoadLayout parses a YAML layout description.
func LoadLayout(data []byte) (layout *Layout, err error) {
	layout = &Layout{}
	err = yaml.Unmarshal(data, layout)
	if err != nil {
		layout = nil
	}

	return
}

// InstallLayout compiles and installs every face of the layout. File
// references are resolved relative to dir.
func (emu *Emulator) InstallLayout(layout *Layout, dir string) (err error) {
	for name, ln := range layout.Faces {
		face, ok := casing.FaceByName[name]
		if !ok {
			return &ErrFace{Face: name, Err: ErrFaceUnknown}
		}

		source := ln.Program
		if len(source) == 0 && len(ln.File) != 0 {
			var data []byte
			data, err = os.ReadFile(filepath.Join(dir, ln.File))
			if err != nil {
				return &ErrFace{Face: name, Err: err}
			}
			source = string(data)
		}
		if len(source) == 0 {
			return &ErrFace{Face: name, Err: ErrProgramMissing}
		}

		_, err = emu.Install(face, source)
		if err != nil {
			return &ErrFace{Face: name, Err: err}
		}
	}

	return
}
