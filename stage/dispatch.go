package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/tools"
)

// Dispatch executes the selected operation. Failures are recorded on the
// session result; Run never fails the turn.
type Dispatch struct {
	Operations Operations
	Aliases    tools.AliasTable
	Observer   observability.Observer
}

func (d *Dispatch) Run(ctx context.Context, s *session.Session) {
	s.Result = nil
	if s.Operation == "" {
		return
	}

	_, tool, err := d.Operations.Lookup(s.Operation)
	switch {
	case errors.Is(err, tools.ErrNotFound):
		d.notFound(ctx, s)
		return
	case err != nil:
		d.fail(ctx, s, err.Error())
		return
	}

	s.Params = d.Aliases.Normalize(tool, s.Params)
	args, err := json.Marshal(s.Params)
	if err != nil {
		d.fail(ctx, s, err.Error())
		return
	}

	result, err := d.Operations.Execute(ctx, s.Operation, args)
	var execErr *tools.ExecutionError
	switch {
	case errors.Is(err, tools.ErrNotFound):
		d.notFound(ctx, s)
	case errors.As(err, &execErr):
		d.fail(ctx, s, execErr.Err.Error())
	case err != nil:
		d.fail(ctx, s, err.Error())
	case result.IsError:
		d.fail(ctx, s, result.Content)
	default:
		s.Result = &session.Outcome{Content: result.Content}
		emit(ctx, d.Observer, EventDispatchComplete, observability.LevelInfo, map[string]any{
			"session_id": s.ID, "operation": s.Operation,
		})
	}
}

func (d *Dispatch) notFound(ctx context.Context, s *session.Session) {
	emit(ctx, d.Observer, EventDispatchNotFound, observability.LevelWarning, map[string]any{
		"session_id": s.ID, "operation": s.Operation,
	})
	s.Result = &session.Outcome{
		Content: fmt.Sprintf("Error: Tool '%s' not found.", s.Operation),
		Failed:  true,
	}
}

func (d *Dispatch) fail(ctx context.Context, s *session.Session, reason string) {
	emit(ctx, d.Observer, EventDispatchFailed, observability.LevelWarning, map[string]any{
		"session_id": s.ID, "operation": s.Operation, "error": reason,
	})
	s.Result = &session.Outcome{
		Content: "Tool execution failed: " + reason,
		Failed:  true,
	}
}
