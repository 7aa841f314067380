package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

const anthropicDefaultMaxTokens = 1024

type anthropicAgent struct {
	id     string
	cfg    Config
	client anthropic.Client
}

func newAnthropic(id string, cfg *Config) (*anthropicAgent, error) {
	timeout, err := cfg.timeout()
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if key := cfg.apiKey(); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &anthropicAgent{
		id:     id,
		cfg:    *cfg,
		client: anthropic.NewClient(opts...),
	}, nil
}

func (a *anthropicAgent) ID() string { return a.id }

// params hoists system turns into the system field; the Messages API only
// accepts user and assistant turns.
func (a *anthropicAgent) params(msgs []protocol.Message) anthropic.MessageNewParams {
	maxTokens := int64(a.cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	p := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(a.cfg.temperature()),
	}

	for _, m := range msgs {
		switch m.Role {
		case protocol.RoleSystem:
			p.System = append(p.System, anthropic.TextBlockParam{Text: m.Content})
		case protocol.RoleAssistant:
			p.Messages = append(p.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			p.Messages = append(p.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return p
}

func (a *anthropicAgent) Chat(ctx context.Context, msgs []protocol.Message) (string, error) {
	p := a.params(msgs)
	return retry(ctx, a.cfg.MaxRetries, func() (string, error) {
		resp, err := a.client.Messages.New(ctx, p)
		if err != nil {
			return "", classify(fmt.Errorf("anthropic %s: %w", a.cfg.Model, err), anthropicStatus(err))
		}

		var reply strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				reply.WriteString(block.Text)
			}
		}
		return reply.String(), nil
	})
}

func (a *anthropicAgent) Stream(ctx context.Context, msgs []protocol.Message, onToken func(string)) (string, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(msgs))
	defer stream.Close()

	var reply strings.Builder
	for stream.Next() {
		event := stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
		if !ok || text.Text == "" {
			continue
		}
		reply.WriteString(text.Text)
		if onToken != nil {
			onToken(text.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return reply.String(), fmt.Errorf("anthropic %s stream: %w", a.cfg.Model, err)
	}
	return reply.String(), nil
}

func anthropicStatus(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
