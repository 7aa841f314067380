package kernel

import "fmt"

// Phase is the pipeline position recorded on a session.
type Phase string

const (
	PhaseIntent      Phase = "intent"
	PhaseConsequence Phase = "consequence"
	PhaseDispatch    Phase = "dispatch"
	PhaseResponse    Phase = "response"
	PhaseSuspended   Phase = "suspended"
	PhaseDone        Phase = "done"
)

// transitions lists the allowed moves. The empty phase is a session that has
// never run a turn.
var transitions = map[Phase][]Phase{
	"":               {PhaseIntent},
	PhaseDone:        {PhaseIntent},
	PhaseIntent:      {PhaseConsequence},
	PhaseConsequence: {PhaseSuspended, PhaseDispatch, PhaseResponse},
	PhaseSuspended:   {PhaseConsequence},
	PhaseDispatch:    {PhaseResponse},
	PhaseResponse:    {PhaseDone},
}

// CanTransition reports whether a session may move from one phase to the
// next.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

func transition(from, to Phase) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %q to %q", ErrInvalidTransition, from, to)
	}
	return nil
}
