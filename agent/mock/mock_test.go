package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/movi/agent/mock"
	"github.com/tailored-agentic-units/movi/core/protocol"
)

func TestAgent_ScriptThenEcho(t *testing.T) {
	a := mock.New("m", "first").Queue("second")
	ctx := context.Background()
	msgs := protocol.InitMessages(protocol.RoleUser, "hello")

	for _, want := range []string{"first", "second", "hello"} {
		got, err := a.Chat(ctx, msgs)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Len(t, a.Calls(), 3)
}

func TestAgent_StreamSplitsWords(t *testing.T) {
	a := mock.New("m", "two words")

	var tokens []string
	reply, err := a.Stream(context.Background(), nil, func(s string) { tokens = append(tokens, s) })
	require.NoError(t, err)
	assert.Equal(t, "two words", reply)
	assert.Equal(t, []string{"two ", "words"}, tokens)
}

func TestAgent_Responder(t *testing.T) {
	boom := errors.New("boom")
	a := mock.New("m").RespondWith(func([]protocol.Message) (string, error) { return "", boom })

	_, err := a.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestAgent_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.New("m", "never").Chat(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
