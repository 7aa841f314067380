package kernel

import "errors"

var (
	// ErrSessionSuspended is returned when a new message arrives for a
	// session that is awaiting a decision.
	ErrSessionSuspended = errors.New("session is awaiting a decision")

	// ErrNotSuspended is returned when a decision arrives for a session that
	// is not awaiting one, including a decision replayed after resume.
	ErrNotSuspended = errors.New("session is not awaiting a decision")

	// ErrEmptyMessage is returned for a new turn with no message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrStore wraps session store failures. They abort the turn.
	ErrStore = errors.New("session store failure")

	// ErrConfig is returned by New for settings the pipeline cannot run
	// with.
	ErrConfig = errors.New("invalid kernel configuration")

	// ErrInvalidTransition is returned when a stage runs out of order.
	ErrInvalidTransition = errors.New("invalid phase transition")
)
