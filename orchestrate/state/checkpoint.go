package state

import (
	"context"
	"errors"
)

// ErrCheckpointNotFound is returned by Load when no checkpoint exists.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CheckpointStore persists State snapshots keyed by RunID.
//
// Implementations must be safe for concurrent use and Save must be atomic:
// a concurrent Load observes either the previous or the new snapshot.
type CheckpointStore interface {
	// Save persists state, replacing any checkpoint with the same RunID.
	Save(ctx context.Context, state State) error

	// Load returns the checkpoint for runID or an error wrapping
	// ErrCheckpointNotFound.
	Load(ctx context.Context, runID string) (State, error)

	// Delete removes the checkpoint. Missing checkpoints are not an error.
	Delete(ctx context.Context, runID string) error

	// List returns every stored RunID.
	List(ctx context.Context) ([]string, error)
}
