package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/orchestrate/config"
)

// StateGraph defines a workflow as a directed graph of nodes and edges.
//
//	graph, err := state.NewGraph(cfg, observer, store)
//	graph.AddNode("classify", classify)
//	graph.AddNode("review", review)
//	graph.AddNode("apply", apply)
//	graph.AddEdge("classify", "review", nil)
//	graph.AddEdge("review", "apply", state.KeyEquals("status", "approved"))
//	graph.SetEntryPoint("classify")
//	graph.SetExitPoint("apply")
//	result, err := graph.Execute(ctx, initial)
//
// A node may suspend the run by returning NewInterrupt. The run is
// checkpointed and Execute returns an *InterruptError; the caller later
// continues the run with Resume, supplying the value the node was waiting
// for.
type StateGraph interface {
	// Name returns the graph identifier for event metadata.
	Name() string

	// AddNode registers a computation step in the graph.
	AddNode(name string, node StateNode) error

	// AddEdge creates a transition between nodes (nil predicate is unconditional).
	AddEdge(from, to string, predicate TransitionPredicate) error

	// AddNamedEdge is AddEdge with a predicate name reported in events.
	AddNamedEdge(from, to, name string, predicate TransitionPredicate) error

	// SetEntryPoint defines the starting node for execution.
	SetEntryPoint(node string) error

	// SetExitPoint defines a terminal node.
	SetExitPoint(node string) error

	// Execute runs the graph from the entry point.
	Execute(ctx context.Context, initialState State) (State, error)

	// Resume re-enters the node a run is suspended at, with value available
	// through State.ResumeValue.
	Resume(ctx context.Context, runID string, value any) (State, error)
}

type stateGraph struct {
	name                string
	nodes               map[string]StateNode
	edges               map[string][]Edge
	entryPoint          string
	exitPoints          map[string]bool
	maxIterations       int
	observer            observability.Observer
	checkpointStore     CheckpointStore
	checkpointInterval  int
	preserveCheckpoints bool
}

// Name returns the graph identifier for event metadata.
func (g *stateGraph) Name() string {
	return g.name
}

// NewGraph creates a graph from configuration. A nil observer discards
// events; store may be nil only when checkpointing is disabled.
func NewGraph(cfg config.GraphConfig, observer observability.Observer, checkpointStore CheckpointStore) (StateGraph, error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	if cfg.Checkpoint.Interval > 0 && checkpointStore == nil {
		return nil, fmt.Errorf("checkpoint interval %d requires a checkpoint store", cfg.Checkpoint.Interval)
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = config.DefaultGraphConfig(cfg.Name).MaxIterations
	}

	return &stateGraph{
		name:                cfg.Name,
		nodes:               make(map[string]StateNode),
		edges:               make(map[string][]Edge),
		exitPoints:          make(map[string]bool),
		maxIterations:       maxIterations,
		observer:            observer,
		checkpointStore:     checkpointStore,
		checkpointInterval:  cfg.Checkpoint.Interval,
		preserveCheckpoints: cfg.Checkpoint.Preserve,
	}, nil
}

// AddNode registers a computation step. Names must be unique.
func (g *stateGraph) AddNode(name string, node StateNode) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("node %s already exists", name)
	}

	g.nodes[name] = node
	return nil
}

// AddEdge creates a transition between two existing nodes. Edges are
// evaluated in insertion order and the first matching one is taken.
func (g *stateGraph) AddEdge(from, to string, predicate TransitionPredicate) error {
	return g.AddNamedEdge(from, to, "", predicate)
}

func (g *stateGraph) AddNamedEdge(from, to, name string, predicate TransitionPredicate) error {
	if from == "" {
		return fmt.Errorf("from node cannot be empty")
	}

	if to == "" {
		return fmt.Errorf("to node cannot be empty")
	}

	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("from node %s does not exist", from)
	}

	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("to node %s does not exist", to)
	}

	g.edges[from] = append(g.edges[from], Edge{
		From:      from,
		To:        to,
		Name:      name,
		Predicate: predicate,
	})
	return nil
}

// SetEntryPoint defines the starting node. Only one entry point is allowed.
func (g *stateGraph) SetEntryPoint(node string) error {
	if node == "" {
		return fmt.Errorf("entry point cannot be empty")
	}

	if g.entryPoint != "" {
		return fmt.Errorf("entry point already set to %s", g.entryPoint)
	}

	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("entry point node %s does not exist", node)
	}

	g.entryPoint = node
	return nil
}

// SetExitPoint marks node as terminal. Multiple exit points are allowed.
func (g *stateGraph) SetExitPoint(node string) error {
	if node == "" {
		return fmt.Errorf("exit point cannot be empty")
	}

	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("exit points node %s does not exist", node)
	}

	g.exitPoints[node] = true
	return nil
}

// Validate checks graph structure: nodes exist, an entry point is set and at
// least one exit point is set.
func (g *stateGraph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	if g.entryPoint == "" {
		return fmt.Errorf("entry point not set")
	}

	if _, exists := g.nodes[g.entryPoint]; !exists {
		return fmt.Errorf("entry point %s does not exist", g.entryPoint)
	}

	if len(g.exitPoints) == 0 {
		return fmt.Errorf("no exit points set")
	}

	for exitPoint := range g.exitPoints {
		if _, exists := g.nodes[exitPoint]; !exists {
			return fmt.Errorf("exit point %s does not exist", exitPoint)
		}
	}

	return nil
}

// Execute runs the graph from the entry point.
//
// Returns *InterruptError when a node suspends the run and *ExecutionError on
// failure. Both carry the state at the point execution stopped.
func (g *stateGraph) Execute(ctx context.Context, initialState State) (State, error) {
	if initialState.Suspended() {
		return initialState, fmt.Errorf("run %s is suspended at node %s", initialState.RunID, initialState.Interrupt.Node)
	}
	return g.execute(ctx, g.entryPoint, initialState)
}

// Resume loads the checkpoint for runID and re-executes the interrupted
// node with value. Completed nodes are not replayed.
//
// Returns an error wrapping ErrNotInterrupted when the checkpoint is not
// suspended, so a decision cannot be applied twice.
func (g *stateGraph) Resume(ctx context.Context, runID string, value any) (State, error) {
	if g.checkpointStore == nil {
		return State{}, fmt.Errorf("checkpointing not enabled for this graph")
	}

	loaded, err := g.checkpointStore.Load(ctx, runID)
	if err != nil {
		return State{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if loaded.Observer == nil {
		loaded.Observer = g.observer
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventCheckpointLoad,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"node":   loaded.CheckpointNode,
			"run_id": runID,
		},
	})

	if !loaded.Suspended() {
		return loaded, fmt.Errorf("%w: %s", ErrNotInterrupted, runID)
	}

	node := loaded.Interrupt.Node
	if _, exists := g.nodes[node]; !exists {
		return loaded, fmt.Errorf("interrupted node %s does not exist", node)
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventCheckpointResume,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"checkpoint_node": loaded.CheckpointNode,
			"resume_node":     node,
			"run_id":          runID,
		},
	})

	return g.execute(ctx, node, loaded.WithResume(value))
}

func (g *stateGraph) execute(ctx context.Context, startNode string, initialState State) (State, error) {
	if err := g.Validate(); err != nil {
		return initialState, fmt.Errorf("graph validation failed: %w", err)
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventGraphStart,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"entry_point": startNode,
			"run_id":      initialState.RunID,
			"exit_points": len(g.exitPoints),
		},
	})

	current := startNode
	state := initialState
	iterations := 0
	visited := make(map[string]int)
	path := make([]string, 0, g.maxIterations)

	for {
		if err := ctx.Err(); err != nil {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("execution cancelled: %w", err),
			}
		}

		iterations++
		if iterations > g.maxIterations {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("max iterations (%d) exceeded", g.maxIterations),
			}
		}

		visited[current]++
		path = append(path, current)

		if visited[current] > 1 {
			g.observer.OnEvent(ctx, observability.Event{
				Type:      EventCycleDetected,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    g.name,
				Data: map[string]any{
					"node":        current,
					"visit_count": visited[current],
					"iteration":   iterations,
					"path_length": len(path),
				},
			})
		}

		node, exists := g.nodes[current]
		if !exists {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("node %s not found", current),
			}
		}

		g.observer.OnEvent(ctx, observability.Event{
			Type:      EventNodeStart,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"node":           current,
				"iteration":      iterations,
				"input_snapshot": maps.Clone(state.Data),
			},
		})

		newState, err := node.Execute(ctx, state)

		g.observer.OnEvent(ctx, observability.Event{
			Type:      EventNodeComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"node":      current,
				"iteration": iterations,
				"error":     err != nil,
			},
		})

		var interrupt *NodeInterrupt
		if errors.As(err, &interrupt) {
			return g.suspend(ctx, current, newState, interrupt.Payload, path)
		}

		if err != nil {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      fmt.Errorf("node execution failed: %w", err),
			}
		}

		g.observer.OnEvent(ctx, observability.Event{
			Type:      EventNodeState,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"node":            current,
				"iteration":       iterations,
				"input_snapshot":  maps.Clone(state.Data),
				"output_snapshot": maps.Clone(newState.Data),
			},
		})

		state = newState.withoutResume().SetCheckpointNode(current)

		if g.checkpointInterval > 0 && iterations%g.checkpointInterval == 0 {
			if err := g.save(ctx, current, state); err != nil {
				return state, &ExecutionError{
					NodeName: current,
					State:    state,
					Path:     path,
					Err:      err,
				}
			}
		}

		if g.exitPoints[current] {
			g.observer.OnEvent(ctx, observability.Event{
				Type:      EventGraphComplete,
				Level:     observability.LevelInfo,
				Timestamp: time.Now(),
				Source:    g.name,
				Data: map[string]any{
					"exit_point":  current,
					"iterations":  iterations,
					"path_length": len(path),
				},
			})

			if !g.preserveCheckpoints && g.checkpointInterval > 0 {
				g.checkpointStore.Delete(ctx, state.RunID)
			}

			return state, nil
		}

		next, err := g.nextNode(ctx, current, state)
		if err != nil {
			return state, &ExecutionError{
				NodeName: current,
				State:    state,
				Path:     path,
				Err:      err,
			}
		}

		current = next
	}
}

// suspend checkpoints the state returned by an interrupting node. Without a
// checkpoint store the run could never be resumed, so that is an error.
func (g *stateGraph) suspend(ctx context.Context, current string, newState State, payload any, path []string) (State, error) {
	interrupt := Interrupt{Node: current, Payload: payload}

	state := newState.withoutResume().SetCheckpointNode(current)
	state.Interrupt = &interrupt

	if g.checkpointStore == nil {
		return state, &ExecutionError{
			NodeName: current,
			State:    state,
			Path:     path,
			Err:      fmt.Errorf("node %s interrupted but checkpointing is disabled", current),
		}
	}

	if err := g.save(ctx, current, state); err != nil {
		return state, &ExecutionError{
			NodeName: current,
			State:    state,
			Path:     path,
			Err:      err,
		}
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventNodeInterrupt,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"node":   current,
			"run_id": state.RunID,
		},
	})

	return state, &InterruptError{Interrupt: interrupt, State: state}
}

func (g *stateGraph) save(ctx context.Context, current string, state State) error {
	if err := state.Checkpoint(ctx, g.checkpointStore); err != nil {
		return fmt.Errorf("checkpoint save failed: %w", err)
	}

	g.observer.OnEvent(ctx, observability.Event{
		Type:      EventCheckpointSave,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    g.name,
		Data: map[string]any{
			"node":   current,
			"run_id": state.RunID,
		},
	})

	return nil
}

func (g *stateGraph) nextNode(ctx context.Context, current string, state State) (string, error) {
	edges, hasEdges := g.edges[current]
	if !hasEdges {
		return "", fmt.Errorf("node %s has no outgoing edges and is not an exit point", current)
	}

	for i, edge := range edges {
		g.observer.OnEvent(ctx, observability.Event{
			Type:      EventEdgeEvaluate,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    g.name,
			Data: map[string]any{
				"from":          edge.From,
				"to":            edge.To,
				"edge_index":    i,
				"has_predicate": edge.Predicate != nil,
			},
		})

		if edge.Predicate == nil || edge.Predicate(state) {
			g.observer.OnEvent(ctx, observability.Event{
				Type:      EventEdgeTransition,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    g.name,
				Data: map[string]any{
					"from":             edge.From,
					"to":               edge.To,
					"edge_index":       i,
					"predicate_name":   edge.Name,
					"predicate_result": true,
				},
			})
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("no valid transition from node %s", current)
}
