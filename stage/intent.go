package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
)

const intentPrompt = `
You are Movi's intent classifier.

You receive:
- user_msg: the user's query%s
- current_page: UI context
- available tools
%s
Your job:
1. Identify the user's intent.
2. Select EXACT tool_name matching the tools list.
3. Extract entities (dict)%s.

Respond ONLY with JSON:

{
  "intent": "...",
  "tool_name": "...",
  "entities": { ... }
}

Current Page: %s

Available Tools:
%s
`

const imageInstructions = `
IMPORTANT: The user message includes [Image Analysis: ...]. Pay VERY CLOSE ATTENTION to:
- Items that are highlighted, circled, or marked with arrows
- Trip names that are emphasized or visually called out
- These highlighted items are what the user wants to work with
`

// Intent classifies the latest message and selects an operation from the
// catalog of the session's page.
type Intent struct {
	Agent    agent.Agent
	Catalog  Catalog
	Observer observability.Observer
}

type classification struct {
	Intent   any            `json:"intent"`
	ToolName any            `json:"tool_name"`
	Entities map[string]any `json:"entities"`
}

// Run appends the user turn and the raw model output to history and sets
// Intent, Operation and Params. Malformed model output yields no operation;
// only a reasoning service failure is returned.
func (i *Intent) Run(ctx context.Context, s *session.Session, message string) error {
	withImage := s.ImageText != ""
	if withImage {
		message = fmt.Sprintf("%s\n\n[Image Analysis: %s]", message, s.ImageText)
		s.ImageText = ""
	}
	s.Append(protocol.NewMessage(protocol.RoleUser, message))

	prompt := IntentPrompt(s.Page, i.Catalog.CatalogFor(s.Page), withImage)
	raw, err := i.Agent.Chat(ctx, protocol.WithSystem(prompt, s.History))
	if err != nil {
		return fmt.Errorf("intent classification: %w", err)
	}

	c, err := parseClassification(raw)
	if err != nil {
		emit(ctx, i.Observer, EventIntentParseFailed, observability.LevelWarning, map[string]any{
			"session_id": s.ID,
			"error":      err.Error(),
		})
	}

	s.Intent = stringOf(c.Intent)
	s.Operation = stringOf(c.ToolName)
	s.Params = c.Entities
	if s.Params == nil {
		s.Params = map[string]any{}
	}
	s.Append(protocol.NewMessage(protocol.RoleAssistant, raw))
	return nil
}

// IntentPrompt renders the classifier system prompt.
func IntentPrompt(page string, catalog []protocol.Tool, withImage bool) string {
	lines := make([]string, 0, len(catalog))
	for _, t := range catalog {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Description))
	}

	userNote, extra, entityNote := "", "", ""
	if withImage {
		userNote = " (includes image analysis)"
		extra = imageInstructions
		entityNote = " - prioritize highlighted/emphasized items from images"
	}
	return fmt.Sprintf(intentPrompt, userNote, extra, entityNote, page, strings.Join(lines, "\n"))
}

// parseClassification accepts bare JSON, fenced JSON, or JSON surrounded by
// prose. On failure the zero classification is returned with the error.
func parseClassification(raw string) (classification, error) {
	var c classification

	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return classification{}, fmt.Errorf("no JSON object in classifier output")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &c); err != nil {
		return classification{}, fmt.Errorf("decode classifier output: %w", err)
	}
	return c, nil
}

func stringOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
