package state

import "fmt"

// ExecutionError carries the failing node, the state before it ran and the
// path taken through the graph.
type ExecutionError struct {
	NodeName string
	State    State
	Path     []string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at node %s: %v", e.NodeName, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
