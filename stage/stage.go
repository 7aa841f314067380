// Package stage implements the four steps of an assistant turn. Each stage
// reads and mutates a *session.Session; the kernel wires them into a
// resumable graph.
package stage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/tools"
)

const (
	EventIntentParseFailed   observability.EventType = "stage.intent.parse_failed"
	EventConsequenceLookup   observability.EventType = "stage.consequence.lookup_failed"
	EventConsequenceSuspend  observability.EventType = "stage.consequence.suspend"
	EventConsequenceDecision observability.EventType = "stage.consequence.decision"
	EventDispatchNotFound    observability.EventType = "stage.dispatch.not_found"
	EventDispatchFailed      observability.EventType = "stage.dispatch.failed"
	EventDispatchComplete    observability.EventType = "stage.dispatch.complete"
	EventResponseComplete    observability.EventType = "stage.response.complete"
)

// Catalog lists the operations offered in a UI context.
type Catalog interface {
	CatalogFor(context string) []protocol.Tool
}

// Operations resolves and runs an operation by exact name.
type Operations interface {
	Lookup(name string) (tools.Handler, protocol.Tool, error)
	Execute(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

type sinkKey struct{}

// WithTokenSink attaches a token callback to ctx. Only the response stage
// emits tokens.
func WithTokenSink(ctx context.Context, sink func(string)) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// TokenSink returns the callback attached to ctx, or nil.
func TokenSink(ctx context.Context) func(string) {
	sink, _ := ctx.Value(sinkKey{}).(func(string))
	return sink
}

func emit(ctx context.Context, obs observability.Observer, typ observability.EventType, level observability.Level, data map[string]any) {
	if obs == nil {
		return
	}
	obs.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "stage",
		Data:      data,
	})
}
