package state

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/movi/observability"
)

// State is the immutable value flowing through graph execution.
//
// Data is persisted by checkpoint stores and included in observer snapshots.
//
// RunID, CheckpointNode and Timestamp record execution provenance. Interrupt
// is set while the run is suspended at a node awaiting an external value; a
// suspended run is continued with StateGraph.Resume.
type State struct {
	Data           map[string]any         `json:"data"`
	Observer       observability.Observer `json:"-"`
	RunID          string                 `json:"run_id"`
	CheckpointNode string                 `json:"checkpoint_node"`
	Interrupt      *Interrupt             `json:"interrupt,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`

	resume    any
	resumable bool
}

// New creates an empty State with a fresh run id.
//
// A nil observer is replaced with NoOpObserver.
func New(observer observability.Observer) State {
	return NewWithID(observer, uuid.New().String())
}

// NewWithID creates an empty State bound to a caller-chosen run id. Callers
// that key checkpoints by an external identifier (a conversation, a job) use
// this instead of New.
func NewWithID(observer observability.Observer, runID string) State {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	s := State{
		Data:      make(map[string]any),
		Observer:  observer,
		RunID:     runID,
		Timestamp: time.Now(),
	}

	observer.OnEvent(context.Background(), observability.Event{
		Type:      EventStateCreate,
		Level:     observability.LevelVerbose,
		Timestamp: s.Timestamp,
		Source:    "state",
		Data:      map[string]any{"run_id": runID},
	})

	return s
}

// Clone returns a copy with its own Data map.
func (s State) Clone() State {
	observer := s.Observer
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	clone := State{
		Data:           maps.Clone(s.Data),
		Observer:       observer,
		RunID:          s.RunID,
		CheckpointNode: s.CheckpointNode,
		Interrupt:      s.Interrupt,
		Timestamp:      s.Timestamp,
		resume:         s.resume,
		resumable:      s.resumable,
	}
	if clone.Data == nil {
		clone.Data = make(map[string]any)
	}

	observer.OnEvent(context.Background(), observability.Event{
		Type:      EventStateClone,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      map[string]any{"keys": len(clone.Data)},
	})

	return clone
}

// Get retrieves a value by key.
func (s State) Get(key string) (any, bool) {
	val, exists := s.Data[key]
	return val, exists
}

// Set returns a new State with key set to value. The receiver is unchanged.
func (s State) Set(key string, value any) State {
	next := s.Clone()
	next.Data[key] = value

	next.Observer.OnEvent(context.Background(), observability.Event{
		Type:      EventStateSet,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      map[string]any{"key": key},
	})

	return next
}

// SetCheckpointNode returns a new State marked as checkpointed after node.
func (s State) SetCheckpointNode(node string) State {
	next := s.Clone()
	next.CheckpointNode = node
	next.Timestamp = time.Now()
	return next
}

// Merge returns a new State with the keys of other copied over this one.
func (s State) Merge(other State) State {
	next := s.Clone()
	maps.Copy(next.Data, other.Data)

	next.Observer.OnEvent(context.Background(), observability.Event{
		Type:      EventStateMerge,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "state",
		Data:      map[string]any{"keys": len(other.Data)},
	})

	return next
}

// Checkpoint saves this State to store.
func (s State) Checkpoint(ctx context.Context, store CheckpointStore) error {
	return store.Save(ctx, s)
}

// Suspended reports whether the run is parked at an interrupt.
func (s State) Suspended() bool {
	return s.Interrupt != nil
}

// ResumeValue returns the value supplied to StateGraph.Resume. It is only
// visible to the node that raised the interrupt, during its re-execution.
func (s State) ResumeValue() (any, bool) {
	return s.resume, s.resumable
}

// WithResume returns a new State carrying a resume value for the interrupted
// node. The pending interrupt is cleared.
func (s State) WithResume(value any) State {
	next := s.Clone()
	next.Interrupt = nil
	next.resume = value
	next.resumable = true
	return next
}

func (s State) withoutResume() State {
	if !s.resumable {
		return s
	}
	next := s.Clone()
	next.resume = nil
	next.resumable = false
	return next
}
