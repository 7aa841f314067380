package kernel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tailored-agentic-units/movi/agent/mock"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
)

func TestParseDecision(t *testing.T) {
	for _, in := range []string{"yes", "Y", " Proceed ", "ok.", "Sure!", "yep", "APPROVE"} {
		assert.True(t, kernel.ParseDecision(in), in)
	}
	for _, in := range []string{"", "no", "nope", "yes please", "maybe", "cancel"} {
		assert.False(t, kernel.ParseDecision(in), in)
	}
}

func TestFallbackConfirmation(t *testing.T) {
	assert.Equal(t, "You are about to execute: delete_trip\n\nDo you want to proceed? (yes/no)",
		kernel.FallbackConfirmation(&session.Consequence{Operation: "delete_trip"}))
	assert.Contains(t, kernel.FallbackConfirmation(nil), "this action")
}

func TestAgentConfirmer(t *testing.T) {
	c := &session.Consequence{
		HasEffects: true,
		Details:    "Trip has 4 bookings",
		Operation:  "delete_trip",
		Entity:     "Path-1 - 08:00",
	}

	t.Run("effects use the agent", func(t *testing.T) {
		llm := mock.New("confirm", "Deleting Path-1 - 08:00 cancels 4 bookings. Continue?")
		got := kernel.AgentConfirmer{Agent: llm}.Confirm(context.Background(), c)

		assert.Equal(t, "Deleting Path-1 - 08:00 cancels 4 bookings. Continue?", got)
		calls := llm.Calls()
		if assert.Len(t, calls, 1) {
			assert.Contains(t, calls[0][0].Content, "Trip has 4 bookings")
		}
	})

	t.Run("no effects skip the agent", func(t *testing.T) {
		llm := mock.New("confirm")
		got := kernel.AgentConfirmer{Agent: llm}.Confirm(context.Background(), &session.Consequence{Operation: "delete_trip"})

		assert.Equal(t, kernel.FallbackConfirmation(&session.Consequence{Operation: "delete_trip"}), got)
		assert.Empty(t, llm.Calls())
	})

	t.Run("agent failure falls back", func(t *testing.T) {
		rec := &observability.Recorder{}
		llm := mock.New("confirm").RespondWith(func([]protocol.Message) (string, error) {
			return "", errors.New("rate limited")
		})
		got := kernel.AgentConfirmer{Agent: llm, Observer: rec}.Confirm(context.Background(), c)

		assert.Equal(t, kernel.FallbackConfirmation(c), got)
		assert.Equal(t, 1, rec.Count(kernel.EventConfirmFallback))
	})
}
