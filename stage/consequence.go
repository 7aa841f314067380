package stage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/tools"
)

// CancelledContent is the result recorded when a decision rejects the
// pending operation.
const CancelledContent = "Action cancelled by user."

// Category selects which Checker query a high-impact operation needs.
type Category string

const (
	CategoryTrip  Category = "trip"
	CategoryRoute Category = "route"
)

// EntityKey is the canonical parameter naming the affected entity.
func (c Category) EntityKey() string {
	switch c {
	case CategoryRoute:
		return "route_display_name"
	default:
		return "trip_display_name"
	}
}

// HighImpactSet maps operation names that need confirmation to their
// category. Membership is by exact name.
type HighImpactSet map[string]Category

// DefaultHighImpact returns the operations that change trips, deployments
// or routes in place.
func DefaultHighImpact() HighImpactSet {
	return HighImpactSet{
		"remove_vehicle_from_trip": CategoryTrip,
		"delete_trip":              CategoryTrip,
		"delete_deployment":        CategoryTrip,
		"update_trip":              CategoryTrip,
		"update_route_status":      CategoryRoute,
		"update_route":             CategoryRoute,
	}
}

// Effects is what a Checker reports for an entity. A missing entity is
// reported as no effects, not as an error.
type Effects struct {
	HasEffects bool
	Details    string
}

// Checker reports the downstream effects of changing an entity.
type Checker interface {
	Check(ctx context.Context, category Category, entity string) (Effects, error)
}

// Consequence gates high-impact operations behind an explicit decision.
type Consequence struct {
	HighImpact HighImpactSet
	Checker    Checker
	Aliases    tools.AliasTable
	Observer   observability.Observer
}

// Evaluate records the pending descriptor and reports whether the turn must
// suspend. Operations outside the high-impact set clear any pending
// descriptor and never suspend. Every member of the set suspends, whether
// or not effects could be determined.
func (c *Consequence) Evaluate(ctx context.Context, s *session.Session) bool {
	s.Consequence = nil

	category, ok := c.HighImpact[s.Operation]
	if !ok {
		return false
	}

	desc := &session.Consequence{Operation: s.Operation}
	entity, found := c.Aliases.Resolve(s.Params, category.EntityKey())
	if found {
		desc.Entity = entity
		if c.Checker != nil {
			effects, err := c.Checker.Check(ctx, category, entity)
			if err != nil {
				emit(ctx, c.Observer, EventConsequenceLookup, observability.LevelWarning, map[string]any{
					"session_id": s.ID,
					"operation":  s.Operation,
					"entity":     entity,
					"error":      err.Error(),
				})
			} else if effects.HasEffects {
				desc.HasEffects = true
				desc.Details = effects.Details
			}
		}
	}

	s.Consequence = desc
	emit(ctx, c.Observer, EventConsequenceSuspend, observability.LevelInfo, map[string]any{
		"session_id":  s.ID,
		"operation":   s.Operation,
		"entity":      desc.Entity,
		"has_effects": desc.HasEffects,
	})
	return true
}

// Decide applies a decision to a suspended session and records it in the
// audit trail. A rejection clears the operation and records a cancelled
// result; an approval leaves the operation for dispatch. The descriptor is
// discarded either way.
func (c *Consequence) Decide(ctx context.Context, s *session.Session, approved bool) {
	s.Decisions = append(s.Decisions, session.Decision{
		ID:        uuid.NewString(),
		Operation: s.Operation,
		Params:    s.Clone().Params,
		Approved:  approved,
		At:        time.Now().UTC(),
	})

	emit(ctx, c.Observer, EventConsequenceDecision, observability.LevelInfo, map[string]any{
		"session_id": s.ID,
		"operation":  s.Operation,
		"approved":   approved,
	})

	s.Consequence = nil
	if !approved {
		s.Operation = ""
		s.Result = &session.Outcome{Content: CancelledContent, Cancelled: true}
	}
}

// Cancelled reports whether the session's result is a rejection.
func Cancelled(s *session.Session) bool {
	return s.Result != nil && s.Result.Cancelled
}
