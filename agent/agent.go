// Package agent provides the reasoning service the assistant pipeline talks
// to: a minimal chat interface, OpenAI and Anthropic providers, a scripted
// mock, and a named registry with lazy instantiation.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/movi/agent/mock"
	"github.com/tailored-agentic-units/movi/core/protocol"
)

var (
	ErrAgentNotFound   = errors.New("agent not found")
	ErrAgentExists     = errors.New("agent already registered")
	ErrEmptyAgentName  = errors.New("agent name is empty")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrEmptyCompletion = errors.New("model returned no choices")
)

// Agent is a chat-completion model.
type Agent interface {
	ID() string

	// Chat sends msgs and returns the full reply.
	Chat(ctx context.Context, msgs []protocol.Message) (string, error)

	// Stream sends msgs and calls onToken for each reply fragment as it
	// arrives. The concatenated reply is returned.
	Stream(ctx context.Context, msgs []protocol.Message, onToken func(string)) (string, error)
}

// Describer extracts a text description from a base64-encoded image.
type Describer interface {
	Describe(ctx context.Context, imageBase64 string) (string, error)
}

// VisionPrompt asks a vision model for text suited to intent classification,
// with emphasized items first.
const VisionPrompt = `Analyze this image carefully and extract ALL text and information visible.

Pay special attention to:
1. ANY highlighted, circled, or marked items (these are MOST IMPORTANT)
2. Trip names, IDs, and identifiers
3. Status indicators (SCHEDULED, IN-PROGRESS, UNKNOWN, etc.)
4. Booking percentages
5. Times and schedules
6. Any arrows or visual emphasis

Provide a detailed description focusing on what the user wants to highlight or draw attention to. If there are circles, arrows, or highlighting, mention those items FIRST and PROMINENTLY.`

// New creates an Agent for cfg. id names the instance in logs and traces.
func New(id string, cfg *Config) (Agent, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAI(id, cfg)
	case ProviderAnthropic:
		return newAnthropic(id, cfg)
	case ProviderMock:
		return mock.New(id), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
