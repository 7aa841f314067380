// Package state provides the graph engine the assistant pipeline runs on.
//
// A State is an immutable map flowing through nodes; edges with predicates
// pick the next node; checkpoint stores persist the state between nodes.
//
// # Interrupts
//
// A node suspends the run by returning NewInterrupt(payload). The graph
// records an Interrupt on the state, checkpoints it, and returns an
// *InterruptError to the caller instead of blocking. Later a separate call
// continues the run:
//
//	final, err := graph.Resume(ctx, runID, approved)
//
// Resume re-executes the interrupted node with the value exposed through
// State.ResumeValue. Nodes that completed before the interrupt are not run
// again. Resuming a run that is not suspended fails with ErrNotInterrupted.
package state
