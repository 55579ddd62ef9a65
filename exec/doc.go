// Package exec implements the programmable execution node and its
// assembler.
//
// A node is a small register machine with an accumulator (ACC), a backup
// register (BAK) reachable only through SAV and SWP, and four directional
// ports. Each simulation tick the machine executes at most one
// instruction; instructions touching a port rendezvous with the matching
// operation on the neighboring node and stall until the handshake
// completes.
//
// The assembler compiles source text into a validated instruction stream
// with label and line-number metadata, reporting syntax errors with their
// line and column. Compile-time $(...) expressions are folded using
// starlark.
//
// ACC, BAK and all transferred values are signed 16-bit integers with
// two's-complement wraparound.
package exec
