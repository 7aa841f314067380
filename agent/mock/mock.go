// Package mock provides a scripted agent for tests and offline runs.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

// Responder computes a reply from the messages of a call.
type Responder func(msgs []protocol.Message) (string, error)

// Agent replays queued replies in order. When the queue is empty it falls
// back to its Responder, which by default echoes the last user turn.
type Agent struct {
	mu        sync.Mutex
	id        string
	replies   []string
	responder Responder
	calls     [][]protocol.Message
}

// New returns an Agent that answers with replies, in order.
func New(id string, replies ...string) *Agent {
	return &Agent{id: id, replies: replies, responder: echo}
}

func (a *Agent) ID() string { return a.id }

// Queue appends replies to the script.
func (a *Agent) Queue(replies ...string) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies = append(a.replies, replies...)
	return a
}

// RespondWith sets the fallback used once the script is exhausted.
func (a *Agent) RespondWith(r Responder) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responder = r
	return a
}

// Calls returns a copy of the message lists received so far.
func (a *Agent) Calls() [][]protocol.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([][]protocol.Message, len(a.calls))
	for i, c := range a.calls {
		out[i] = append([]protocol.Message(nil), c...)
	}
	return out
}

func (a *Agent) Chat(ctx context.Context, msgs []protocol.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.calls = append(a.calls, append([]protocol.Message(nil), msgs...))
	if len(a.replies) > 0 {
		reply := a.replies[0]
		a.replies = a.replies[1:]
		a.mu.Unlock()
		return reply, nil
	}
	responder := a.responder
	a.mu.Unlock()

	return responder(msgs)
}

// Stream emits the reply word by word.
func (a *Agent) Stream(ctx context.Context, msgs []protocol.Message, onToken func(string)) (string, error) {
	reply, err := a.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}
	if onToken != nil {
		for _, token := range strings.SplitAfter(reply, " ") {
			if token != "" {
				onToken(token)
			}
		}
	}
	return reply, nil
}

// Describe answers like Chat, with the image as the only user turn.
func (a *Agent) Describe(ctx context.Context, imageBase64 string) (string, error) {
	return a.Chat(ctx, []protocol.Message{protocol.NewMessage(protocol.RoleUser, imageBase64)})
}

func echo(msgs []protocol.Message) (string, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == protocol.RoleUser {
			return msgs[i].Content, nil
		}
	}
	return "", nil
}
