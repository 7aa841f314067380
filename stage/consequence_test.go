package stage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/stage"
	"github.com/tailored-agentic-units/movi/tools"
)

type fakeChecker struct {
	effects map[string]stage.Effects
	err     error
	calls   []string
}

func (f *fakeChecker) Check(_ context.Context, category stage.Category, entity string) (stage.Effects, error) {
	f.calls = append(f.calls, string(category)+":"+entity)
	if f.err != nil {
		return stage.Effects{}, f.err
	}
	return f.effects[entity], nil
}

func newConsequence(checker stage.Checker, obs observability.Observer) *stage.Consequence {
	return &stage.Consequence{
		HighImpact: stage.DefaultHighImpact(),
		Checker:    checker,
		Aliases:    tools.DefaultAliases(),
		Observer:   obs,
	}
}

func pending(op string, params map[string]any) *session.Session {
	s := session.New("s1")
	s.Operation = op
	s.Params = params
	return s
}

func TestConsequence_NotHighImpact(t *testing.T) {
	checker := &fakeChecker{}
	c := newConsequence(checker, nil)

	s := pending("get_all_trips", map[string]any{})
	s.Consequence = &session.Consequence{Operation: "stale"}

	assert.False(t, c.Evaluate(context.Background(), s))
	assert.Nil(t, s.Consequence)
	assert.Empty(t, checker.calls)
}

func TestConsequence_HighImpactWithEffects(t *testing.T) {
	checker := &fakeChecker{effects: map[string]stage.Effects{
		"Bulk - 00:01": {HasEffects: true, Details: "The trip 'Bulk - 00:01' is already 25% booked by employees."},
	}}
	c := newConsequence(checker, nil)

	s := pending("remove_vehicle_from_trip", map[string]any{"trip_name": "Bulk - 00:01"})
	require.True(t, c.Evaluate(context.Background(), s))

	assert.Equal(t, &session.Consequence{
		HasEffects: true,
		Details:    "The trip 'Bulk - 00:01' is already 25% booked by employees.",
		Operation:  "remove_vehicle_from_trip",
		Entity:     "Bulk - 00:01",
	}, s.Consequence)
	assert.Equal(t, []string{"trip:Bulk - 00:01"}, checker.calls)
}

func TestConsequence_RouteCategory(t *testing.T) {
	checker := &fakeChecker{effects: map[string]stage.Effects{
		"Path2 - 19:45": {HasEffects: true, Details: "Route 'Path2 - 19:45' has 2 active trips with bookings (total: 40%)."},
	}}
	c := newConsequence(checker, nil)

	s := pending("update_route_status", map[string]any{"route": "Path2 - 19:45", "status": "deactivated"})
	require.True(t, c.Evaluate(context.Background(), s))
	assert.True(t, s.Consequence.HasEffects)
	assert.Equal(t, []string{"route:Path2 - 19:45"}, checker.calls)
}

func TestConsequence_AlwaysSuspendsWithoutEffects(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]any
		checker    *fakeChecker
		wantEntity string
		wantWarn   int
	}{
		{"no entity", map[string]any{}, &fakeChecker{}, "", 0},
		{"not found", map[string]any{"trip_display_name": "Ghost"}, &fakeChecker{}, "Ghost", 0},
		{"checker error", map[string]any{"trip": "Bulk - 00:01"}, &fakeChecker{err: errors.New("db down")}, "Bulk - 00:01", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &observability.Recorder{}
			c := newConsequence(tt.checker, rec)

			s := pending("delete_trip", tt.params)
			require.True(t, c.Evaluate(context.Background(), s))

			require.NotNil(t, s.Consequence)
			assert.False(t, s.Consequence.HasEffects)
			assert.Empty(t, s.Consequence.Details)
			assert.Equal(t, "delete_trip", s.Consequence.Operation)
			assert.Equal(t, tt.wantEntity, s.Consequence.Entity)
			assert.Equal(t, tt.wantWarn, rec.Count(stage.EventConsequenceLookup))
		})
	}
}

func TestConsequence_Reject(t *testing.T) {
	c := newConsequence(&fakeChecker{}, nil)
	s := pending("delete_trip", map[string]any{"trip_display_name": "X"})
	require.True(t, c.Evaluate(context.Background(), s))

	c.Decide(context.Background(), s, false)

	assert.Empty(t, s.Operation)
	assert.Nil(t, s.Consequence)
	assert.Equal(t, &session.Outcome{Content: stage.CancelledContent, Cancelled: true}, s.Result)
	assert.True(t, stage.Cancelled(s))

	require.Len(t, s.Decisions, 1)
	d := s.Decisions[0]
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "delete_trip", d.Operation)
	assert.False(t, d.Approved)
	assert.Equal(t, "X", d.Params["trip_display_name"])
}

func TestConsequence_Approve(t *testing.T) {
	c := newConsequence(&fakeChecker{}, nil)
	s := pending("delete_trip", map[string]any{"trip_display_name": "X"})
	require.True(t, c.Evaluate(context.Background(), s))

	c.Decide(context.Background(), s, true)

	assert.Equal(t, "delete_trip", s.Operation)
	assert.Nil(t, s.Consequence)
	assert.Nil(t, s.Result)
	assert.False(t, stage.Cancelled(s))
	require.Len(t, s.Decisions, 1)
	assert.True(t, s.Decisions[0].Approved)
}

func TestHighImpactSet_Default(t *testing.T) {
	set := stage.DefaultHighImpact()
	assert.Len(t, set, 6)
	assert.Equal(t, stage.CategoryTrip, set["delete_deployment"])
	assert.Equal(t, stage.CategoryRoute, set["update_route"])
	_, ok := set["assign_vehicle_and_driver_to_trip"]
	assert.False(t, ok)
}
