package state

import (
	"errors"
	"fmt"
)

// ErrNotInterrupted is returned by Resume when the checkpoint is not parked
// at an interrupt.
var ErrNotInterrupted = errors.New("run is not interrupted")

// Interrupt records the node a run is suspended at and the payload it
// surfaced to the caller.
type Interrupt struct {
	Node    string `json:"node"`
	Payload any    `json:"payload,omitempty"`
}

// NodeInterrupt is returned by a node to suspend the run after the state it
// returns has been checkpointed. The node is executed again on resume, with
// the resume value available through State.ResumeValue.
type NodeInterrupt struct {
	Payload any
}

// NewInterrupt builds the error a node returns to suspend execution.
func NewInterrupt(payload any) error {
	return &NodeInterrupt{Payload: payload}
}

func (n *NodeInterrupt) Error() string {
	return "node interrupted"
}

// InterruptError is returned by Execute and Resume when the run suspended.
// State is the checkpointed state, with Interrupt set.
type InterruptError struct {
	Interrupt Interrupt
	State     State
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("execution suspended at node %s", e.Interrupt.Node)
}

// AsInterrupt reports whether err is a suspension and returns it.
func AsInterrupt(err error) (*InterruptError, bool) {
	var ie *InterruptError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
