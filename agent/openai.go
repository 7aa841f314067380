package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

type openAIAgent struct {
	id     string
	cfg    Config
	client openai.Client
}

func newOpenAI(id string, cfg *Config) (*openAIAgent, error) {
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

	return &openAIAgent{
		id:     id,
		cfg:    *cfg,
		client: openai.NewClient(opts...),
	}, nil
}

func (a *openAIAgent) ID() string { return a.id }

func (a *openAIAgent) params(msgs []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	p := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.cfg.Model),
		Messages:    msgs,
		Temperature: openai.Float(a.cfg.temperature()),
	}
	if a.cfg.MaxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(a.cfg.MaxTokens))
	}
	return p
}

func (a *openAIAgent) complete(ctx context.Context, p openai.ChatCompletionNewParams) (string, error) {
	return retry(ctx, a.cfg.MaxRetries, func() (string, error) {
		resp, err := a.client.Chat.Completions.New(ctx, p)
		if err != nil {
			return "", classify(fmt.Errorf("openai %s: %w", a.cfg.Model, err), openAIStatus(err))
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("openai %s: %w", a.cfg.Model, ErrEmptyCompletion)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func (a *openAIAgent) Chat(ctx context.Context, msgs []protocol.Message) (string, error) {
	return a.complete(ctx, a.params(openAIMessages(msgs)))
}

func (a *openAIAgent) Stream(ctx context.Context, msgs []protocol.Message, onToken func(string)) (string, error) {
	stream := a.client.Chat.Completions.NewStreaming(ctx, a.params(openAIMessages(msgs)))
	defer stream.Close()

	var reply strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if token := chunk.Choices[0].Delta.Content; token != "" {
			reply.WriteString(token)
			if onToken != nil {
				onToken(token)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return reply.String(), fmt.Errorf("openai %s stream: %w", a.cfg.Model, err)
	}
	return reply.String(), nil
}

// Describe sends the image with VisionPrompt to the configured model, which
// must accept image input.
func (a *openAIAgent) Describe(ctx context.Context, imageBase64 string) (string, error) {
	msg := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(VisionPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + imageBase64,
		}),
	})
	return a.complete(ctx, a.params([]openai.ChatCompletionMessageParamUnion{msg}))
}

func openAIMessages(msgs []protocol.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case protocol.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case protocol.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func openAIStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
