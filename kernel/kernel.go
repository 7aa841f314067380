// Package kernel runs assistant turns: it threads a session through the
// intent, consequence, dispatch and response stages, suspends the turn when
// a high-impact operation needs approval, and resumes it on a decision.
//
// The kernel initializes from configuration via New. Functional options
// replace any subsystem, which is how tests inject scripted agents and
// in-memory stores.
//
//	k, err := kernel.New(ctx, &cfg, kernel.WithOperations(reg))
//	res, err := k.Turn(ctx, kernel.Request{SessionID: "s1", Message: "list trips"}, nil)
package kernel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/orchestrate/config"
	"github.com/tailored-agentic-units/movi/orchestrate/state"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/stage"
	"github.com/tailored-agentic-units/movi/telemetry"
	"github.com/tailored-agentic-units/movi/tools"
)

// Operations is the registry contract the pipeline needs: page catalogs for
// the classifier and exact lookup for dispatch. *tools.Registry satisfies it.
type Operations interface {
	stage.Catalog
	stage.Operations
}

// Request is one turn. Exactly one of Message and Decision governs: a
// non-nil Decision resumes a suspended session and Message is ignored.
type Request struct {
	SessionID string
	Message   string
	Page      string
	ImageText string
	Decision  *bool
}

// Result is the outcome of a turn.
type Result struct {
	SessionID    string
	Reply        string
	Suspended    bool
	Consequence  *session.Consequence
	Confirmation string
	Outcome      *session.Outcome
}

// TokenSink receives reply fragments as the response stage produces them.
type TokenSink func(token string)

// Option configures a Kernel. Options run before config-driven defaults
// fill whatever they left unset.
type Option func(*Kernel)

// WithStore overrides the config-created session store.
func WithStore(s session.Store) Option {
	return func(k *Kernel) { k.store = s }
}

// WithOperations sets the operation registry.
func WithOperations(ops Operations) Option {
	return func(k *Kernel) { k.ops = ops }
}

// WithAgents overrides the config-created agent registry.
func WithAgents(r *agent.Registry) Option {
	return func(k *Kernel) { k.agents = r }
}

// WithChecker sets the consequence checker.
func WithChecker(c stage.Checker) Option {
	return func(k *Kernel) { k.checker = c }
}

// WithConfirmer overrides the agent-backed confirmation writer.
func WithConfirmer(c Confirmer) Option {
	return func(k *Kernel) { k.confirmer = c }
}

// WithObserver overrides the observer named by the graph config.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithTelemetry sets the span source for stage tracing.
func WithTelemetry(m *telemetry.Manager) Option {
	return func(k *Kernel) { k.telemetry = m }
}

// WithLocker shares a per-session locker with other kernels in the process.
func WithLocker(l *session.Locker) Option {
	return func(k *Kernel) { k.locker = l }
}

// Kernel runs turns against a session store. Safe for concurrent use;
// turns for the same session are serialized.
type Kernel struct {
	store     session.Store
	ops       Operations
	agents    *agent.Registry
	checker   stage.Checker
	confirmer Confirmer
	observer  observability.Observer
	telemetry *telemetry.Manager
	locker    *session.Locker

	graph        state.StateGraph
	intent       *stage.Intent
	consequence  *stage.Consequence
	dispatch     *stage.Dispatch
	response     *stage.Response
	historyLimit int
	fallbackPage string
}

// New creates a Kernel from configuration.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Kernel, error) {
	if err := validateCheckpoint(cfg.Graph.Checkpoint); err != nil {
		return nil, err
	}

	k := &Kernel{
		historyLimit: cfg.HistoryLimit,
		fallbackPage: cfg.FallbackPage,
	}
	for _, opt := range opts {
		opt(k)
	}

	if k.observer == nil {
		obs, err := observability.GetObserver(cfg.Graph.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		k.observer = obs
	}
	if k.store == nil {
		store, err := session.Open(ctx, cfg.Session)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		k.store = store
	}
	if k.agents == nil {
		k.agents = agent.NewRegistry()
		for name, agentCfg := range cfg.Agents {
			if err := k.agents.Register(name, agentCfg); err != nil {
				return nil, fmt.Errorf("failed to register agent %q: %w", name, err)
			}
		}
	}
	if k.ops == nil {
		k.ops = tools.NewRegistry(cfg.FallbackPage)
	}
	if k.locker == nil {
		k.locker = session.NewLocker()
	}
	if k.telemetry == nil {
		k.telemetry = telemetry.Default()
	}
	if k.fallbackPage == "" {
		k.fallbackPage = defaultFallbackPage
	}

	intentAgent, err := k.agents.Resolve(RoleIntent)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve intent agent: %w", err)
	}
	responseAgent, err := k.agents.Resolve(RoleResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve response agent: %w", err)
	}
	if k.confirmer == nil {
		confirmAgent, err := k.agents.Resolve(RoleConfirmation)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve confirmation agent: %w", err)
		}
		k.confirmer = AgentConfirmer{Agent: confirmAgent, Observer: k.observer}
	}

	aliases := tools.DefaultAliases()
	k.intent = &stage.Intent{Agent: intentAgent, Catalog: k.ops, Observer: k.observer}
	k.consequence = &stage.Consequence{
		HighImpact: cfg.HighImpactSet(),
		Checker:    k.checker,
		Aliases:    aliases,
		Observer:   k.observer,
	}
	k.dispatch = &stage.Dispatch{Operations: k.ops, Aliases: aliases, Observer: k.observer}
	k.response = &stage.Response{Agent: responseAgent, Observer: k.observer}

	k.graph, err = k.buildGraph(cfg.Graph)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// Store returns the session store.
func (k *Kernel) Store() session.Store {
	return k.store
}

// Agents returns the agent registry.
func (k *Kernel) Agents() *agent.Registry {
	return k.agents
}

// Close releases the session store.
func (k *Kernel) Close() error {
	return k.store.Close()
}

// Turn routes a request to Resume when it carries a decision and to Start
// otherwise.
func (k *Kernel) Turn(ctx context.Context, req Request, sink TokenSink) (*Result, error) {
	if req.Decision != nil {
		return k.Resume(ctx, req.SessionID, *req.Decision, sink)
	}
	return k.Start(ctx, req, sink)
}

// Start runs a new turn from the intent stage. A suspended session rejects
// new messages with ErrSessionSuspended until it receives a decision.
func (k *Kernel) Start(ctx context.Context, req Request, sink TokenSink) (*Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if err := session.ValidateID(req.SessionID); err != nil {
		return nil, err
	}

	unlock, err := k.locker.Lock(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := k.store.Get(ctx, req.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s = session.New(req.SessionID)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	case s.Suspended:
		return nil, fmt.Errorf("%w: %s", ErrSessionSuspended, req.SessionID)
	}

	if Phase(s.Phase) != PhaseDone && s.Phase != "" {
		k.emit(ctx, EventTurnRestart, observability.LevelWarning, map[string]any{
			"session_id": s.ID,
			"phase":      s.Phase,
		})
		s.Phase = ""
	}

	s.ResetTurn()
	s.Page = req.Page
	if s.Page == "" {
		s.Page = k.fallbackPage
	}
	if req.ImageText != "" {
		s.ImageText = req.ImageText
	}
	s.History = protocol.Tail(s.History, k.historyLimit)

	k.emit(ctx, EventTurnStart, observability.LevelInfo, map[string]any{
		"session_id": s.ID,
		"page":       s.Page,
		"image":      s.ImageText != "",
	})

	initial := state.NewWithID(k.observer, s.ID).
		Set(keySession, s).
		Set(keyMessage, req.Message)

	final, err := k.graph.Execute(withSink(ctx, sink), initial)
	return k.finish(ctx, s.ID, final, err)
}

// Resume applies a decision to a suspended session and runs the rest of the
// turn. The intent stage is not replayed.
func (k *Kernel) Resume(ctx context.Context, sessionID string, approved bool, sink TokenSink) (*Result, error) {
	if err := session.ValidateID(sessionID); err != nil {
		return nil, err
	}

	unlock, err := k.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	k.emit(ctx, EventTurnResume, observability.LevelInfo, map[string]any{
		"session_id": sessionID,
		"approved":   approved,
	})

	final, err := k.graph.Resume(withSink(ctx, sink), sessionID, approved)
	switch {
	case errors.Is(err, state.ErrNotInterrupted), errors.Is(err, state.ErrCheckpointNotFound):
		return nil, fmt.Errorf("%w: %s", ErrNotSuspended, sessionID)
	}
	return k.finish(ctx, sessionID, final, err)
}

func (k *Kernel) finish(ctx context.Context, id string, final state.State, err error) (*Result, error) {
	if ie, ok := state.AsInterrupt(err); ok {
		s, _ := sessionOf(ie.State)
		res := &Result{SessionID: id, Suspended: true}
		if s != nil {
			res.Consequence = s.Consequence
		}
		res.Confirmation = k.confirmer.Confirm(ctx, res.Consequence)

		k.emit(ctx, EventTurnSuspend, observability.LevelInfo, map[string]any{
			"session_id": id,
			"node":       ie.Interrupt.Node,
		})
		return res, nil
	}

	if err != nil {
		k.emit(ctx, EventTurnError, observability.LevelError, map[string]any{
			"session_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	s, ok := sessionOf(final)
	if !ok {
		return nil, fmt.Errorf("turn %s finished without a session", id)
	}

	k.emit(ctx, EventTurnComplete, observability.LevelInfo, map[string]any{
		"session_id": id,
		"operation":  s.Operation,
		"cancelled":  stage.Cancelled(s),
	})
	return &Result{SessionID: id, Reply: s.Reply, Outcome: s.Result}, nil
}

func (k *Kernel) buildGraph(cfg config.GraphConfig) (state.StateGraph, error) {
	g, err := state.NewGraph(cfg, k.observer, &sessionCheckpoints{store: k.store, observer: k.observer})
	if err != nil {
		return nil, fmt.Errorf("failed to create graph: %w", err)
	}

	nodes := []struct {
		phase Phase
		run   func(context.Context, state.State, *session.Session) error
	}{
		{PhaseIntent, k.runIntent},
		{PhaseConsequence, k.runConsequence},
		{PhaseDispatch, k.runDispatch},
		{PhaseResponse, k.runResponse},
	}
	for _, n := range nodes {
		if err := g.AddNode(string(n.phase), k.node(n.phase, n.run)); err != nil {
			return nil, err
		}
	}

	cancelled := func(st state.State) bool {
		s, ok := sessionOf(st)
		return ok && stage.Cancelled(s)
	}

	edges := []struct {
		from, to, name string
		pred           state.TransitionPredicate
	}{
		{"intent", "consequence", "always", state.AlwaysTransition()},
		{"consequence", "response", "cancelled", cancelled},
		{"consequence", "dispatch", "proceed", state.AlwaysTransition()},
		{"dispatch", "response", "always", state.AlwaysTransition()},
	}
	for _, e := range edges {
		if err := g.AddNamedEdge(e.from, e.to, e.name, e.pred); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntryPoint(string(PhaseIntent)); err != nil {
		return nil, err
	}
	if err := g.SetExitPoint(string(PhaseResponse)); err != nil {
		return nil, err
	}
	return g, nil
}

// node adapts a stage to a graph node: it guards the phase transition,
// works on a copy of the session, and wraps the stage in a span.
func (k *Kernel) node(phase Phase, run func(context.Context, state.State, *session.Session) error) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, st state.State) (state.State, error) {
		current, ok := sessionOf(st)
		if !ok {
			return st, fmt.Errorf("state carries no session")
		}
		if err := transition(Phase(current.Phase), phase); err != nil {
			return st, err
		}

		s := current.Clone()
		s.Phase = string(phase)

		ctx, span := k.telemetry.StartSpan(ctx, "movi.stage."+string(phase),
			attribute.String("movi.session_id", s.ID),
			attribute.String("movi.operation", s.Operation),
		)
		err := run(ctx, st, s)

		var interrupt *state.NodeInterrupt
		if errors.As(err, &interrupt) {
			telemetry.EndSpan(span, nil)
		} else {
			telemetry.EndSpan(span, err)
		}

		if err != nil && interrupt == nil {
			return st, err
		}
		return st.Set(keySession, s), err
	})
}

func (k *Kernel) runIntent(ctx context.Context, st state.State, s *session.Session) error {
	msg, _ := st.Get(keyMessage)
	text, _ := msg.(string)
	return k.intent.Run(ctx, s, text)
}

func (k *Kernel) runConsequence(ctx context.Context, st state.State, s *session.Session) error {
	if v, ok := st.ResumeValue(); ok {
		approved, _ := v.(bool)
		k.consequence.Decide(ctx, s, approved)
		s.Suspended = false
		s.SuspendedAt = ""
		return nil
	}

	if !k.consequence.Evaluate(ctx, s) {
		return nil
	}

	if err := transition(PhaseConsequence, PhaseSuspended); err != nil {
		return err
	}
	s.Phase = string(PhaseSuspended)
	s.Suspended = true
	s.SuspendedAt = string(PhaseConsequence)
	return state.NewInterrupt(s.Consequence)
}

func (k *Kernel) runDispatch(ctx context.Context, _ state.State, s *session.Session) error {
	k.dispatch.Run(ctx, s)
	return nil
}

func (k *Kernel) runResponse(ctx context.Context, _ state.State, s *session.Session) error {
	if err := k.response.Run(ctx, s); err != nil {
		return err
	}
	if err := transition(PhaseResponse, PhaseDone); err != nil {
		return err
	}
	s.Phase = string(PhaseDone)
	return nil
}

func (k *Kernel) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	k.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "kernel",
		Data:      data,
	})
}

func withSink(ctx context.Context, sink TokenSink) context.Context {
	if sink == nil {
		return ctx
	}
	return stage.WithTokenSink(ctx, sink)
}
