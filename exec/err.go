package exec

import (
	"errors"

	"github.com/ezrec/tisvm/translate"
)

var f = translate.From

var (
	// Compiler errors
	ErrTooManyLines    = errors.New(f("too many lines"))
	ErrLineTooLong     = errors.New(f("line too long"))
	ErrUnknownOpcode   = errors.New(f("unknown instruction"))
	ErrUnexpectedToken = errors.New(f("unexpected token"))
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrArgumentMissing = errors.New(f("argument missing"))
	ErrExtraArguments  = errors.New(f("excessive arguments"))
	ErrTargetInvalid   = errors.New(f("target invalid"))

	// Execution faults. These indicate an internal invariant was violated
	// and are raised as panics, never returned.
	ErrBakAccess          = errors.New(f("BAK is not directly addressable"))
	ErrInstructionMissing = errors.New(f("missing instruction executed"))
	ErrHandshakeMisuse    = errors.New(f("overlapping port request"))
)

// ErrParse locates a compile error in the source text.
type ErrParse struct {
	Line   int
	Column int
	Err    error
}

func (err *ErrParse) Error() string {
	return f("line %d column %d: %v", err.Line, err.Column, err.Err)
}

func (err *ErrParse) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
