package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/orchestrate/config"
	"github.com/tailored-agentic-units/movi/orchestrate/state"
	"github.com/tailored-agentic-units/movi/session"
)

const (
	keySession = "session"
	keyMessage = "message"
)

// sessionCheckpoints stores graph checkpoints as session records, so the
// conversation and the suspended run are one document. The run id is the
// session id.
type sessionCheckpoints struct {
	store    session.Store
	observer observability.Observer
}

func (c *sessionCheckpoints) Save(ctx context.Context, st state.State) error {
	s, ok := sessionOf(st)
	if !ok {
		return fmt.Errorf("checkpoint %s carries no session", st.RunID)
	}

	rec := s.Clone()
	rec.Checkpoint = st.CheckpointNode
	rec.Suspended = st.Interrupt != nil
	rec.SuspendedAt = ""
	if st.Interrupt != nil {
		rec.SuspendedAt = st.Interrupt.Node
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := c.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (c *sessionCheckpoints) Load(ctx context.Context, runID string) (state.State, error) {
	s, err := c.store.Get(ctx, runID)
	if errors.Is(err, session.ErrNotFound) {
		return state.State{}, fmt.Errorf("%w: %w", state.ErrCheckpointNotFound, err)
	}
	if err != nil {
		return state.State{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return restore(c.observer, s), nil
}

func (c *sessionCheckpoints) Delete(ctx context.Context, runID string) error {
	return c.store.Delete(ctx, runID)
}

func (c *sessionCheckpoints) List(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}

// validateCheckpoint rejects checkpoint settings under which a turn could
// finish without its session record being written. The checkpoint is the
// session, so every transition is saved and nothing is deleted at exit.
func validateCheckpoint(cfg config.CheckpointConfig) error {
	if cfg.Interval != 1 {
		return fmt.Errorf("%w: graph.checkpoint.interval must be 1, got %d", ErrConfig, cfg.Interval)
	}
	if !cfg.Preserve {
		return fmt.Errorf("%w: graph.checkpoint.preserve must be true", ErrConfig)
	}
	return nil
}

// restore rebuilds graph state from a session record.
func restore(observer observability.Observer, s *session.Session) state.State {
	st := state.NewWithID(observer, s.ID).Set(keySession, s)
	st.CheckpointNode = s.Checkpoint
	if s.Suspended {
		st.Interrupt = &state.Interrupt{Node: s.SuspendedAt, Payload: s.Consequence}
	}
	return st
}

func sessionOf(st state.State) (*session.Session, bool) {
	v, ok := st.Get(keySession)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok && s != nil
}
