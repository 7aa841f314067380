// Package session holds the durable per-conversation record the assistant
// pipeline threads through every turn, and the stores that persist it.
package session

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
)

// Outcome is the result of the last operation of a turn. Cancelled marks a
// turn whose operation was rejected at confirmation; Failed marks a lookup
// or execution failure described by Content.
type Outcome struct {
	Content   string `json:"content"`
	Failed    bool   `json:"failed,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Consequence describes what a pending high-impact operation would affect.
// A descriptor with HasEffects false and empty Details means no effects
// could be determined; confirmation is still required.
type Consequence struct {
	HasEffects bool   `json:"has_effects"`
	Details    string `json:"details"`
	Operation  string `json:"operation"`
	Entity     string `json:"entity,omitempty"`
}

// Decision is an audit record of an approval or rejection.
type Decision struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
	Approved  bool           `json:"approved"`
	At        time.Time      `json:"at"`
}

// Session is the full pipeline state of one conversation.
//
// At rest a session is either ready for new input (Suspended false) or
// suspended awaiting a decision, in which case SuspendedAt names the
// pipeline node to re-enter and Consequence holds the pending descriptor.
type Session struct {
	ID          string             `json:"id"`
	History     []protocol.Message `json:"history"`
	Page        string             `json:"page"`
	ImageText   string             `json:"image_text,omitempty"`
	Intent      string             `json:"intent,omitempty"`
	Operation   string             `json:"operation,omitempty"`
	Params      map[string]any     `json:"params"`
	Consequence *Consequence       `json:"consequence,omitempty"`
	Suspended   bool               `json:"suspended"`
	SuspendedAt string             `json:"suspended_at,omitempty"`
	Result      *Outcome           `json:"result,omitempty"`
	Reply       string             `json:"reply,omitempty"`
	Phase       string             `json:"phase,omitempty"`
	Checkpoint  string             `json:"checkpoint,omitempty"`
	Decisions   []Decision         `json:"decisions,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// New returns an empty ready session.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Params:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateID rejects ids that are empty, oversized or contain control
// characters or path separators.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > 256 {
		return fmt.Errorf("%w: longer than 256 bytes", ErrInvalidID)
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: control character", ErrInvalidID)
		}
	}
	return nil
}

// Append adds turns to the history.
func (s *Session) Append(msgs ...protocol.Message) {
	s.History = append(s.History, msgs...)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	c := *s
	c.History = append([]protocol.Message(nil), s.History...)
	c.Params = copyMap(s.Params)
	if s.Consequence != nil {
		cons := *s.Consequence
		c.Consequence = &cons
	}
	if s.Result != nil {
		res := *s.Result
		c.Result = &res
	}
	if s.Decisions != nil {
		c.Decisions = make([]Decision, len(s.Decisions))
		for i, d := range s.Decisions {
			d.Params = copyMap(d.Params)
			c.Decisions[i] = d
		}
	}
	return &c
}

// ResetTurn clears the per-turn fields ahead of a new message.
func (s *Session) ResetTurn() {
	s.Intent = ""
	s.Operation = ""
	s.Params = map[string]any{}
	s.Consequence = nil
	s.Result = nil
	s.Reply = ""
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
