package kernel

import "github.com/tailored-agentic-units/movi/observability"

// Kernel event types emitted per turn.
const (
	EventTurnStart    observability.EventType = "kernel.turn.start"
	EventTurnSuspend  observability.EventType = "kernel.turn.suspend"
	EventTurnResume   observability.EventType = "kernel.turn.resume"
	EventTurnComplete observability.EventType = "kernel.turn.complete"
	EventTurnError    observability.EventType = "kernel.turn.error"
	EventTurnRestart  observability.EventType = "kernel.turn.restart"
)
