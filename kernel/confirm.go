package kernel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
)

const EventConfirmFallback observability.EventType = "kernel.confirm.fallback"

const confirmPrompt = `You are a helpful assistant generating a confirmation alert for a user action.

The user is about to: %s
Affected entity: %s

Consequences:
%s

Generate a clear, concise, and friendly confirmation message that:
1. Explains what will happen if they proceed
2. Highlights the key consequences
3. Asks if they want to continue

Keep it under 3-4 sentences. Be direct but respectful.`

// Confirmer writes the message shown when a turn suspends.
type Confirmer interface {
	Confirm(ctx context.Context, c *session.Consequence) string
}

// AgentConfirmer asks a model to phrase the alert when effects are known and
// falls back to a fixed prompt otherwise.
type AgentConfirmer struct {
	Agent    agent.Agent
	Observer observability.Observer
}

func (a AgentConfirmer) Confirm(ctx context.Context, c *session.Consequence) string {
	if c == nil || !c.HasEffects || a.Agent == nil {
		return FallbackConfirmation(c)
	}

	prompt := fmt.Sprintf(confirmPrompt, c.Operation, c.Entity, c.Details)
	msg, err := a.Agent.Chat(ctx, protocol.InitMessages(protocol.RoleUser, prompt))
	if err != nil || strings.TrimSpace(msg) == "" {
		if a.Observer != nil {
			data := map[string]any{"operation": c.Operation}
			if err != nil {
				data["error"] = err.Error()
			}
			a.Observer.OnEvent(ctx, observability.Event{
				Type:      EventConfirmFallback,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    "kernel.confirm",
				Data:      data,
			})
		}
		return FallbackConfirmation(c)
	}
	return msg
}

// FallbackConfirmation is the fixed confirmation prompt.
func FallbackConfirmation(c *session.Consequence) string {
	op := "this action"
	if c != nil && c.Operation != "" {
		op = c.Operation
	}
	return fmt.Sprintf("You are about to execute: %s\n\nDo you want to proceed? (yes/no)", op)
}

var approvals = map[string]bool{
	"yes": true, "y": true, "proceed": true, "confirm": true, "ok": true,
	"okay": true, "yeah": true, "yep": true, "sure": true, "approve": true,
}

// ParseDecision reads a free-text reply to a confirmation. Only the listed
// approval words approve; anything else rejects.
func ParseDecision(text string) bool {
	word := strings.ToLower(strings.TrimSpace(text))
	word = strings.TrimRight(word, ".!")
	return approvals[word]
}
