package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
)

const responsePrompt = `
You are Movi, the MoveInSync internal admin assistant.
Generate a clear, helpful response for the user.

Available Info:
- Current Page: %s
- Last Intent: %s
- Tool Result: %s
- Result Status: %s
- Consequences: %s

Rules:
- If tool_result exists, summarize it naturally.
- If the action was cancelled by the user, summarize the cancellation and confirm nothing was changed.
- If the tool failed, explain the failure plainly.
- Be clear and to the point.
- The answer should be Structured
- No JSON, only natural language.
`

// Response writes the user-facing reply, streaming tokens to the sink in
// ctx when one is attached.
type Response struct {
	Agent    agent.Agent
	Observer observability.Observer
}

// Run appends the reply to history and stores it on the session. A
// reasoning service failure is returned and leaves the session unchanged.
func (r *Response) Run(ctx context.Context, s *session.Session) error {
	msgs := protocol.WithSystem(ResponsePrompt(s), s.History)

	reply, err := r.Agent.Stream(ctx, msgs, TokenSink(ctx))
	if err != nil {
		return fmt.Errorf("response generation: %w", err)
	}

	s.Append(protocol.NewMessage(protocol.RoleAssistant, reply))
	s.Reply = reply
	emit(ctx, r.Observer, EventResponseComplete, observability.LevelVerbose, map[string]any{
		"session_id": s.ID,
		"length":     len(reply),
	})
	return nil
}

// ResponsePrompt renders the response system prompt for s.
func ResponsePrompt(s *session.Session) string {
	result, status := "None", "none"
	if s.Result != nil {
		result = s.Result.Content
		switch {
		case s.Result.Cancelled:
			status = "cancelled"
		case s.Result.Failed:
			status = "failed"
		default:
			status = "succeeded"
		}
	}

	consequence := "None"
	if c := s.Consequence; c != nil {
		consequence = strings.TrimSpace(fmt.Sprintf("%s on %q: %s", c.Operation, c.Entity, c.Details))
	}

	intent := s.Intent
	if intent == "" {
		intent = "None"
	}
	return fmt.Sprintf(responsePrompt, s.Page, intent, result, status, consequence)
}
