package state

import "context"

// StateNode is a computation step in a state graph.
//
// Execute returns the updated state. Returning NewInterrupt suspends the run
// after the returned state is checkpointed.
type StateNode interface {
	Execute(ctx context.Context, state State) (State, error)
}

// FunctionNode adapts a function to StateNode.
type FunctionNode struct {
	fn func(ctx context.Context, state State) (State, error)
}

// NewFunctionNode wraps fn as a StateNode.
func NewFunctionNode(fn func(context.Context, State) (State, error)) StateNode {
	return &FunctionNode{fn: fn}
}

// Execute runs the wrapped function.
func (n *FunctionNode) Execute(ctx context.Context, state State) (State, error) {
	return n.fn(ctx, state)
}
