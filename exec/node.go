package exec

import (
	"log"

	"github.com/ezrec/tisvm/casing"
	"github.com/ezrec/tisvm/pipe"
)

// Node is an execution module occupying one casing face. It adapts the
// face's local ports onto the casing's pipes and owns the machine.
type Node struct {
	Verbose bool // Set to enable verbose logging.

	Machine *Machine

	casing *casing.Casing
	face   casing.Face
	source string
}

// NewNode creates an execution node for the specified casing face.
func NewNode(c *casing.Casing, face casing.Face) (node *Node) {
	node = &Node{
		casing: c,
		face:   face,
	}
	node.Machine = NewMachine(node)

	return
}

// Face returns the casing face this node occupies.
func (node *Node) Face() casing.Face {
	return node.face
}

// Source returns the most recently compiled source text.
func (node *Node) Source() string {
	return node.source
}

// Compile replaces the node's program, hard-resetting the machine state.
// Any port request left behind by the old program is withdrawn first, so
// the new program starts against idle pipes.
func (node *Node) Compile(source string) (err error) {
	node.source = source
	node.Machine.CancelRequests()

	err = Compile(source, node.Machine.State)
	if node.Verbose && err != nil {
		log.Printf("exec: %v: %v", node.face, err)
	}

	return
}

// Pending overrides the in-flight write marker, used when restoring a
// persisted node.
func (node *Node) Pending(pending bool) {
	node.Machine.Pending = pending
}

// ReceivingPipe implements PipeHost for this node's face.
func (node *Node) ReceivingPipe(port casing.Port) *pipe.Pipe {
	return node.casing.ReceivingPipe(node.face, port)
}

// SendingPipe implements PipeHost for this node's face.
func (node *Node) SendingPipe(port casing.Port) *pipe.Pipe {
	return node.casing.SendingPipe(node.face, port)
}

// Step implements casing.Module.
func (node *Node) Step() {
	node.Machine.Verbose = node.Verbose
	node.Machine.Step()
}

// OnEnabled implements casing.Module. Execution resumes from the current
// program counter.
func (node *Node) OnEnabled() {
	if node.Verbose {
		log.Printf("exec: %v: enabled", node.face)
	}
}

// OnDisabled implements casing.Module. In-flight port requests are
// withdrawn so partner nodes cannot deadlock on us.
func (node *Node) OnDisabled() {
	if node.Verbose {
		log.Printf("exec: %v: disabled", node.face)
	}

	node.Machine.CancelRequests()
}

// OnWriteComplete implements casing.Module.
func (node *Node) OnWriteComplete(port casing.Port) {
	node.Machine.onWriteCompleted(port)
}
