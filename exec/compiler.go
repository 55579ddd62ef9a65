// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package exec

import (
	"fmt"
	"iter"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	MAX_LINES   = 20 // Maximum number of lines a program may have.
	MAX_COLUMNS = 18 // Maximum number of characters per line.
)

var _compiler_defines = map[string]string{
	"MAX_LINES":   fmt.Sprintf("%v", MAX_LINES),
	"MAX_COLUMNS": fmt.Sprintf("%v", MAX_COLUMNS),
}

// Defines returns the compiler limits, for hosts that surface them.
func Defines() iter.Seq2[string, string] {
	return maps.All(_compiler_defines)
}

var (
	patternLines       = regexp.MustCompile(`\r?\n`)
	patternComment     = regexp.MustCompile(`#.*$`)
	patternLabel       = regexp.MustCompile(`^(?P<label>[^:]+?)\s*:\s*(?P<rest>.*)$`)
	patternInstruction = regexp.MustCompile(`^(?P<name>[^,\s]+)\s*,?\s*(?P<arg1>[^,\s]+)?\s*,?\s*(?P<arg2>[^,\s]+)?\s*(?P<excess>.+)?$`)
	patternExpression  = regexp.MustCompile(`\$\([^)$]*\)`)
)

// Validator re-checks a property that is only determinable after the
// whole program has been parsed, such as a jump referencing a label that
// is defined further down.
type Validator func(state *MachineState) error

// Compile parses source text into the specified machine state.
//
// The state is hard reset first. On failure the instruction stream is
// discarded but the raw uppercased source lines are retained for
// diagnostic display. Compiling the same text twice yields identical
// programs, and the first error in line-then-column order wins.
func Compile(source string, state *MachineState) (err error) {
	state.Clear()

	lines := patternLines.Split(source, -1)
	for n := range lines {
		lines[n] = strings.ToUpper(lines[n])
	}
	state.Code = lines

	defer func() {
		if err != nil {
			state.Clear()
			state.Code = lines
		}
	}()

	if len(lines) > MAX_LINES {
		return &ErrParse{Line: MAX_LINES, Column: 0, Err: ErrTooManyLines}
	}

	var validators []Validator
	for lineNumber, raw := range lines {
		if len(raw) > MAX_COLUMNS {
			return &ErrParse{Line: lineNumber, Column: MAX_COLUMNS, Err: ErrLineTooLong}
		}

		line := strings.TrimSpace(patternComment.ReplaceAllString(raw, ""))

		line, err = expandExpressions(line, lineNumber)
		if err != nil {
			return
		}

		line, err = parseLabel(line, state, lineNumber)
		if err != nil {
			return
		}

		err = parseInstruction(line, state, lineNumber, &validators)
		if err != nil {
			return
		}
	}

	// Post-processing pass over the completed label table.
	for _, validator := range validators {
		err = validator(state)
		if err != nil {
			return
		}
	}

	return
}

// expandExpressions folds $(...) constant expressions into their value.
func expandExpressions(line string, lineNumber int) (out string, err error) {
	out = patternExpression.ReplaceAllStringFunc(line, func(match string) string {
		expr := match[2 : len(match)-1]
		value, evalErr := evalExpression(expr)
		if evalErr != nil && err == nil {
			err = &ErrParse{Line: lineNumber, Column: strings.Index(line, match), Err: evalErr}
		}
		return fmt.Sprintf("%v", value)
	})

	return
}

// evalExpression does compile-time $(...) evaluations.
func evalExpression(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	prog := "RC=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, starlark.StringDict{})
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}

	rc, ok := dict["RC"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	rcInt, ok := rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = rcInt.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	return
}

// parseLabel records a leading label definition, returning the remainder
// of the line.
func parseLabel(line string, state *MachineState, lineNumber int) (rest string, err error) {
	match := patternLabel.FindStringSubmatch(line)
	if match == nil {
		rest = line
		return
	}

	label := match[1]
	if _, ok := state.Labels[label]; ok {
		err = &ErrParse{Line: lineNumber, Column: 0, Err: ErrLabelDuplicate}
		return
	}

	state.Labels[label] = len(state.Instructions)
	rest = match[2]

	return
}

// parseInstruction compiles the instruction on a line, if any.
func parseInstruction(line string, state *MachineState, lineNumber int, validators *[]Validator) (err error) {
	// Blank lines and label-only lines produce no instruction.
	if len(line) == 0 {
		return
	}

	match := patternInstruction.FindStringSubmatch(line)
	if match == nil {
		return &ErrParse{Line: lineNumber, Column: 0, Err: ErrUnexpectedToken}
	}

	name, arg1, arg2, excess := match[1], match[2], match[3], match[4]
	if len(excess) != 0 {
		return &ErrParse{Line: lineNumber, Column: 0, Err: ErrExtraArguments}
	}

	emit, ok := emitterMap[name]
	if !ok {
		return &ErrParse{Line: lineNumber, Column: 0, Err: ErrUnknownOpcode}
	}

	in, err := emit(arg1, arg2, lineNumber, validators)
	if err != nil {
		if _, located := err.(*ErrParse); !located {
			err = &ErrParse{Line: lineNumber, Column: 0, Err: err}
		}
		return
	}

	state.LineNumbers[len(state.Instructions)] = lineNumber
	state.Instructions = append(state.Instructions, in)

	return
}

// emitter parses the arguments of one mnemonic into an instruction, and
// may register validators to run after the whole program is parsed.
type emitter func(arg1, arg2 string, lineNumber int, validators *[]Validator) (Instruction, error)

var emitterMap = map[string]emitter{
	"NOP": emitBare(OP_NOP),
	"MOV": emitMove,
	"ADD": emitUnary(OP_ADD, OP_ADDI),
	"SUB": emitUnary(OP_SUB, OP_SUBI),
	"NEG": emitBare(OP_NEG),
	"AND": emitUnary(OP_AND, OP_ANDI),
	"OR":  emitUnary(OP_OR, OP_ORI),
	"XOR": emitUnary(OP_XOR, OP_XORI),
	"SHL": emitUnary(OP_SHL, OP_SHLI),
	"SHR": emitUnary(OP_SHR, OP_SHRI),
	"JMP": emitJump(OP_JMP),
	"JEZ": emitJump(OP_JEZ),
	"JNZ": emitJump(OP_JNZ),
	"JGZ": emitJump(OP_JGZ),
	"JLZ": emitJump(OP_JLZ),
	"JRO": emitUnary(OP_JRO, OP_JROI),
	"SAV": emitBare(OP_SAV),
	"SWP": emitBare(OP_SWP),
	"HCF": emitBare(OP_HCF),
}

// valueOf parses a numeric immediate within the 16-bit machine range.
func valueOf(word string) (value int16, err error) {
	v64, convErr := strconv.ParseInt(word, 0, 16)
	if convErr != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int16(v64)

	return
}

// emitBare emits instructions that take no arguments.
func emitBare(op Op) emitter {
	return func(arg1, arg2 string, lineNumber int, validators *[]Validator) (in Instruction, err error) {
		if len(arg1) != 0 || len(arg2) != 0 {
			err = ErrExtraArguments
			return
		}
		in = Instruction{Op: op}
		return
	}
}

// emitUnary emits instructions taking one target or immediate operand.
func emitUnary(opTarget, opImmediate Op) emitter {
	return func(arg1, arg2 string, lineNumber int, validators *[]Validator) (in Instruction, err error) {
		if len(arg1) == 0 {
			err = ErrArgumentMissing
			return
		}
		if len(arg2) != 0 {
			err = ErrExtraArguments
			return
		}

		if target, ok := targetMap[arg1]; ok {
			in = Instruction{Op: opTarget, Src: target}
			return
		}

		value, err := valueOf(arg1)
		if err != nil {
			return
		}
		in = Instruction{Op: opImmediate, Immediate: value}

		return
	}
}

// emitMove emits the two-phase move between two addressable targets, or
// from an immediate to a target.
func emitMove(arg1, arg2 string, lineNumber int, validators *[]Validator) (in Instruction, err error) {
	if len(arg1) == 0 || len(arg2) == 0 {
		err = ErrArgumentMissing
		return
	}

	dst, ok := targetMap[arg2]
	if !ok {
		err = ErrTargetInvalid
		return
	}

	if src, isTarget := targetMap[arg1]; isTarget {
		in = Instruction{Op: OP_MOV, Src: src, Dst: dst}
		return
	}

	value, err := valueOf(arg1)
	if err != nil {
		return
	}
	in = Instruction{Op: OP_MOVI, Immediate: value, Dst: dst}

	return
}

// emitJump emits label jumps, deferring the label existence check until
// the whole program has been parsed.
func emitJump(op Op) emitter {
	return func(arg1, arg2 string, lineNumber int, validators *[]Validator) (in Instruction, err error) {
		if len(arg1) == 0 {
			err = ErrArgumentMissing
			return
		}
		if len(arg2) != 0 {
			err = ErrExtraArguments
			return
		}

		label := arg1
		*validators = append(*validators, func(state *MachineState) error {
			if _, ok := state.Labels[label]; !ok {
				return &ErrParse{Line: lineNumber, Column: 0, Err: ErrLabelMissing(label)}
			}
			return nil
		})

		in = Instruction{Op: op, Label: label}

		return
	}
}
