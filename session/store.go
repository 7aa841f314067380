package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store persists sessions keyed by id.
//
// Put is atomic per id: a concurrent or later Get observes either the
// previous record or the new one, never a partial write. Stores do not
// serialize read-modify-write cycles; callers hold a Locker for that.
type Store interface {
	// Get returns the session or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Put creates or replaces the session record.
	Put(ctx context.Context, s *Session) error
	// Delete removes the record. Missing ids are not an error.
	Delete(ctx context.Context, id string) error
	// List returns the stored ids.
	List(ctx context.Context) ([]string, error)
	// Close releases backend resources.
	Close() error
}

func encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil session")
	}
	if err := ValidateID(s.ID); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

func decode(id string, data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Params == nil {
		s.Params = map[string]any{}
	}
	return &s, nil
}
