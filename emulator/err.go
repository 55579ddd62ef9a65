package emulator

import (
	"errors"

	"github.com/ezrec/tisvm/translate"
)

var f = translate.From

var (
	ErrFaceUnknown    = errors.New(f("face unknown"))
	ErrProgramMissing = errors.New(f("layout face has no program"))
)

// ErrFace locates an error on a specific casing face.
type ErrFace struct {
	Face string
	Err  error
}

func (err *ErrFace) Error() string {
	return f("face %v: %v", err.Face, err.Err)
}

func (err *ErrFace) Unwrap() error {
	return err.Err
}
