package exec

// MachineState is the mutable register and program state of a node.
//
// It is hard-reset on every recompile and mutated exactly once per
// executed instruction.
type MachineState struct {
	Pc     int    // Index of the next instruction to execute.
	Acc    int16  // Accumulator register.
	Bak    int16  // Backup register, reachable only via SAV and SWP.
	Last   Target // Port of the most recent ANY resolution.
	Halted bool   // Set by HCF; a halted machine never steps again.

	Instructions []Instruction  // Compiled instruction stream.
	Labels       map[string]int // Label name to instruction index.
	LineNumbers  map[int]int    // Instruction index to source line.
	Code         []string       // Raw uppercased source lines, for display.
}

// NewMachineState creates an empty machine state.
func NewMachineState() (state *MachineState) {
	state = &MachineState{}
	state.Clear()

	return
}

// Clear hard-resets the state, dropping the compiled program.
func (state *MachineState) Clear() {
	state.Pc = 0
	state.Acc = 0
	state.Bak = 0
	state.Last = TARGET_NONE
	state.Halted = false
	state.Instructions = nil
	state.Labels = map[string]int{}
	state.LineNumbers = map[int]int{}
	state.Code = nil
}

// validate wraps an out-of-range program counter back to the first
// instruction.
func (state *MachineState) validate() {
	if state.Pc < 0 || state.Pc >= len(state.Instructions) {
		state.Pc = 0
	}
}
