package kernel_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/agent/mock"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/stage"
	"github.com/tailored-agentic-units/movi/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChecker struct {
	effects stage.Effects
}

func (f fakeChecker) Check(context.Context, stage.Category, string) (stage.Effects, error) {
	return f.effects, nil
}

type harness struct {
	k        *kernel.Kernel
	store    session.Store
	rec      *observability.Recorder
	intent   *mock.Agent
	response *mock.Agent
	confirm  *mock.Agent
	calls    map[string]*atomic.Int32
}

func classify(op string, params map[string]any) string {
	out, _ := json.Marshal(map[string]any{"intent": op, "tool_name": op, "entities": params})
	return string(out)
}

func newHarness(t *testing.T, cfg kernel.Config, opts ...kernel.Option) *harness {
	t.Helper()

	h := &harness{
		store:    session.NewMemoryStore(),
		rec:      &observability.Recorder{},
		intent:   mock.New("intent"),
		response: mock.New("response").RespondWith(func([]protocol.Message) (string, error) { return "Done.", nil }),
		confirm:  mock.New("confirmation"),
		calls:    make(map[string]*atomic.Int32),
	}

	agents := agent.NewRegistry()
	require.NoError(t, agents.Set(kernel.RoleIntent, h.intent))
	require.NoError(t, agents.Set(kernel.RoleResponse, h.response))
	require.NoError(t, agents.Set(kernel.RoleConfirmation, h.confirm))

	reg := tools.NewRegistry("busDashboard")
	for _, tool := range []protocol.Tool{
		{Name: "get_all_trips", Description: "List trips", Contexts: []string{"busDashboard"}},
		{Name: "remove_vehicle_from_trip", Description: "Unassign a vehicle",
			Parameters: protocol.Schema(map[string]string{"trip_display_name": "string"}, "trip_display_name"),
			Contexts:   []string{"busDashboard"}},
	} {
		counter := &atomic.Int32{}
		h.calls[tool.Name] = counter
		name := tool.Name
		require.NoError(t, reg.Register(tool, func(context.Context, json.RawMessage) (tools.Result, error) {
			counter.Add(1)
			return tools.Result{Content: name + " ok"}, nil
		}))
	}

	base := []kernel.Option{
		kernel.WithStore(h.store),
		kernel.WithAgents(agents),
		kernel.WithOperations(reg),
		kernel.WithObserver(h.rec),
	}
	k, err := kernel.New(context.Background(), &cfg, append(base, opts...)...)
	require.NoError(t, err)
	h.k = k
	return h
}

func (h *harness) stored(t *testing.T, id string) *session.Session {
	t.Helper()
	s, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func approve(b bool) *bool { return &b }

func TestTurn_NonHighImpactNeverSuspends(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(classify("get_all_trips", map[string]any{}))
	h.response.Queue("You have 3 trips.")

	res, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "list trips"}, nil)
	require.NoError(t, err)

	assert.False(t, res.Suspended)
	assert.Equal(t, "You have 3 trips.", res.Reply)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, "get_all_trips ok", res.Outcome.Content)
	assert.Equal(t, int32(1), h.calls["get_all_trips"].Load())

	s := h.stored(t, "s1")
	assert.False(t, s.Suspended)
	assert.Equal(t, string(kernel.PhaseDone), s.Phase)
	assert.Equal(t, "busDashboard", s.Page)
	require.Len(t, s.History, 3)
	assert.Equal(t, protocol.RoleUser, s.History[0].Role)
	assert.Equal(t, "You have 3 trips.", s.History[2].Content)

	assert.Equal(t, 0, h.rec.Count(kernel.EventTurnSuspend))
	assert.Equal(t, 1, h.rec.Count(kernel.EventTurnComplete))
}

func TestTurn_HighImpactSuspendsOnce(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(classify("remove_vehicle_from_trip", map[string]any{"trip_name": "Bulk - 00:01"}))

	res, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "remove the bus from Bulk - 00:01"}, nil)
	require.NoError(t, err)

	assert.True(t, res.Suspended)
	assert.Empty(t, res.Reply)
	require.NotNil(t, res.Consequence)
	assert.Equal(t, "remove_vehicle_from_trip", res.Consequence.Operation)
	assert.Equal(t, "Bulk - 00:01", res.Consequence.Entity)
	assert.Equal(t, kernel.FallbackConfirmation(res.Consequence), res.Confirmation)
	assert.Equal(t, int32(0), h.calls["remove_vehicle_from_trip"].Load())
	assert.Empty(t, h.response.Calls())

	s := h.stored(t, "s1")
	assert.True(t, s.Suspended)
	assert.Equal(t, string(kernel.PhaseConsequence), s.SuspendedAt)
	assert.Equal(t, string(kernel.PhaseSuspended), s.Phase)
	assert.Equal(t, 1, h.rec.Count(kernel.EventTurnSuspend))

	_, err = h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "hello"}, nil)
	assert.ErrorIs(t, err, kernel.ErrSessionSuspended)
	assert.Len(t, h.intent.Calls(), 1)
}

func TestTurn_Rejection(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(classify("remove_vehicle_from_trip", map[string]any{"trip_display_name": "Bulk - 00:01"}))
	h.response.Queue("Okay, I left the trip alone.")

	_, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "remove the bus"}, nil)
	require.NoError(t, err)

	res, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Decision: approve(false)}, nil)
	require.NoError(t, err)

	assert.False(t, res.Suspended)
	assert.Equal(t, "Okay, I left the trip alone.", res.Reply)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Cancelled)
	assert.Equal(t, stage.CancelledContent, res.Outcome.Content)
	assert.Equal(t, int32(0), h.calls["remove_vehicle_from_trip"].Load())
	assert.Len(t, h.intent.Calls(), 1, "intent is not replayed on resume")

	s := h.stored(t, "s1")
	assert.False(t, s.Suspended)
	assert.Empty(t, s.Operation)
	require.Len(t, s.Decisions, 1)
	assert.False(t, s.Decisions[0].Approved)
	assert.Equal(t, "remove_vehicle_from_trip", s.Decisions[0].Operation)

	_, err = h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Decision: approve(false)}, nil)
	assert.ErrorIs(t, err, kernel.ErrNotSuspended)
}

func TestTurn_ApprovalDispatchesOnce(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig(), kernel.WithChecker(fakeChecker{
		effects: stage.Effects{HasEffects: true, Details: "Trip has 12 bookings"},
	}))
	h.intent.Queue(classify("remove_vehicle_from_trip", map[string]any{"trip_name": "Bulk - 00:01"}))
	h.confirm.Queue("This trip has 12 bookings. Remove the vehicle anyway?")
	h.response.Queue("The vehicle was removed.")

	res, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "remove the bus"}, nil)
	require.NoError(t, err)
	require.True(t, res.Suspended)
	assert.True(t, res.Consequence.HasEffects)
	assert.Equal(t, "This trip has 12 bookings. Remove the vehicle anyway?", res.Confirmation)

	var tokens []string
	res, err = h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Decision: approve(true)},
		func(tok string) { tokens = append(tokens, tok) })
	require.NoError(t, err)

	assert.Equal(t, "The vehicle was removed.", res.Reply)
	assert.Equal(t, "The vehicle was removed.", strings.Join(tokens, ""))
	assert.Equal(t, int32(1), h.calls["remove_vehicle_from_trip"].Load())

	s := h.stored(t, "s1")
	assert.Equal(t, map[string]any{"trip_display_name": "Bulk - 00:01"}, s.Params)
	require.Len(t, s.Decisions, 1)
	assert.True(t, s.Decisions[0].Approved)

	_, err = h.k.Resume(context.Background(), "s1", true, nil)
	assert.ErrorIs(t, err, kernel.ErrNotSuspended)
	assert.Equal(t, int32(1), h.calls["remove_vehicle_from_trip"].Load())
}

func TestTurn_UnknownOperation(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(classify("launch_rocket", map[string]any{}))

	var prompt string
	h.response.RespondWith(func(msgs []protocol.Message) (string, error) {
		prompt = msgs[0].Content
		return "I can't do that.", nil
	})

	res, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "launch"}, nil)
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Failed)
	assert.Equal(t, "Error: Tool 'launch_rocket' not found.", res.Outcome.Content)
	assert.Contains(t, prompt, "failed")
}

func TestTurn_NoOperationSkipsDispatch(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue("I don't understand")
	h.response.Queue("How can I help?")

	res, err := h.k.Turn(context.Background(), kernel.Request{SessionID: "s1", Message: "hmm"}, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, "How can I help?", res.Reply)
	assert.Equal(t, int32(0), h.calls["get_all_trips"].Load())
}

func TestResume_UnknownSession(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())

	_, err := h.k.Resume(context.Background(), "ghost", true, nil)
	assert.ErrorIs(t, err, kernel.ErrNotSuspended)
}

func TestStart_Validation(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())

	_, err := h.k.Start(context.Background(), kernel.Request{SessionID: "s1", Message: "  "}, nil)
	assert.ErrorIs(t, err, kernel.ErrEmptyMessage)

	_, err = h.k.Start(context.Background(), kernel.Request{SessionID: "../etc", Message: "hi"}, nil)
	assert.ErrorIs(t, err, session.ErrInvalidID)
}

func TestStart_RestartsAbandonedTurn(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())

	stale := session.New("s1")
	stale.Phase = string(kernel.PhaseDispatch)
	stale.Operation = "get_all_trips"
	require.NoError(t, h.store.Put(context.Background(), stale))

	h.intent.Queue(classify("get_all_trips", map[string]any{}))
	_, err := h.k.Start(context.Background(), kernel.Request{SessionID: "s1", Message: "list trips"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, h.rec.Count(kernel.EventTurnRestart))
	assert.Equal(t, string(kernel.PhaseDone), h.stored(t, "s1").Phase)
}

func TestStart_TrimsHistory(t *testing.T) {
	cfg := kernel.DefaultConfig()
	cfg.HistoryLimit = 4
	h := newHarness(t, cfg)

	for range 3 {
		h.intent.Queue(classify("get_all_trips", map[string]any{}))
		_, err := h.k.Start(context.Background(), kernel.Request{SessionID: "s1", Message: "list trips"}, nil)
		require.NoError(t, err)
	}

	// four retained turns plus the three appended by the last turn
	assert.Len(t, h.stored(t, "s1").History, 7)
}

func TestStart_ImageText(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(classify("get_all_trips", map[string]any{}))

	_, err := h.k.Start(context.Background(), kernel.Request{
		SessionID: "s1",
		Message:   "what is this?",
		Page:      "busDashboard",
		ImageText: "A bus labelled Bulk - 00:01",
	}, nil)
	require.NoError(t, err)

	s := h.stored(t, "s1")
	assert.Empty(t, s.ImageText)
	assert.Contains(t, s.History[0].Content, "[Image Analysis: A bus labelled Bulk - 00:01]")
}

func TestTurn_ResponseFailure(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(classify("get_all_trips", map[string]any{}))
	boom := errors.New("model offline")
	h.response.RespondWith(func([]protocol.Message) (string, error) { return "", boom })

	_, err := h.k.Start(context.Background(), kernel.Request{SessionID: "s1", Message: "list trips"}, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, h.rec.Count(kernel.EventTurnError))

	// the checkpoint taken after dispatch survives; the next turn restarts
	assert.Equal(t, string(kernel.PhaseDispatch), h.stored(t, "s1").Phase)
}

func TestTurn_SessionsAreIndependent(t *testing.T) {
	h := newHarness(t, kernel.DefaultConfig())
	h.intent.Queue(
		classify("remove_vehicle_from_trip", map[string]any{"trip_name": "A"}),
		classify("get_all_trips", map[string]any{}),
	)

	res, err := h.k.Start(context.Background(), kernel.Request{SessionID: "a", Message: "remove"}, nil)
	require.NoError(t, err)
	require.True(t, res.Suspended)

	res, err = h.k.Start(context.Background(), kernel.Request{SessionID: "b", Message: "list"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Suspended)

	assert.True(t, h.stored(t, "a").Suspended)
	assert.False(t, h.stored(t, "b").Suspended)
}
