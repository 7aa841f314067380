package protocol_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

func TestWithSystem(t *testing.T) {
	history := []protocol.Message{
		protocol.NewMessage(protocol.RoleUser, "hi"),
		protocol.NewMessage(protocol.RoleAssistant, "hello"),
	}

	msgs := protocol.WithSystem("be brief", history)

	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[0].Role != protocol.RoleSystem || msgs[0].Content != "be brief" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if len(history) != 2 {
		t.Error("history was modified")
	}
}

func TestTail(t *testing.T) {
	var history []protocol.Message
	for i := 0; i < 12; i++ {
		history = append(history, protocol.NewMessage(protocol.RoleUser, string(rune('a'+i))))
	}

	tests := []struct {
		name  string
		n     int
		want  int
		first string
	}{
		{name: "trims to last ten", n: 10, want: 10, first: "c"},
		{name: "zero keeps all", n: 0, want: 12, first: "a"},
		{name: "larger than history", n: 20, want: 12, first: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := protocol.Tail(history, tt.n)
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			if got[0].Content != tt.first {
				t.Errorf("first = %q, want %q", got[0].Content, tt.first)
			}
		})
	}
}

func TestTool_VisibleIn(t *testing.T) {
	global := protocol.Tool{Name: "ping"}
	scoped := protocol.Tool{Name: "delete_trip", Contexts: []string{"busDashboard", "vehicles"}}

	if !global.VisibleIn("routes") {
		t.Error("tool without contexts should be visible everywhere")
	}
	if !scoped.VisibleIn("vehicles") {
		t.Error("scoped tool should be visible in vehicles")
	}
	if scoped.VisibleIn("routes") {
		t.Error("scoped tool should not be visible in routes")
	}
}

func TestTool_Declares(t *testing.T) {
	tool := protocol.Tool{
		Name:       "delete_trip",
		Parameters: protocol.Schema(map[string]string{"trip_display_name": "string"}, "trip_display_name"),
	}

	if !tool.Declares("trip_display_name") {
		t.Error("Declares(trip_display_name) = false")
	}
	if tool.Declares("route_display_name") {
		t.Error("Declares(route_display_name) = true")
	}
	if (protocol.Tool{}).Declares("x") {
		t.Error("tool without schema should declare nothing")
	}
}

func TestEvent_JSON(t *testing.T) {
	tests := []struct {
		name  string
		event protocol.Event
		want  string
	}{
		{
			name:  "token",
			event: protocol.TokenEvent("Hel"),
			want:  `{"type":"token","content":"Hel"}`,
		},
		{
			name:  "confirmation",
			event: protocol.ConfirmationEvent("Proceed?"),
			want:  `{"type":"confirmation","payload":{"requires_confirmation":true,"message":"Proceed?"}}`,
		},
		{
			name:  "error",
			event: protocol.ErrorEvent(errors.New("store unavailable")),
			want:  `{"type":"error","content":"store unavailable"}`,
		},
		{
			name:  "done",
			event: protocol.DoneEvent(),
			want:  `{"type":"done"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}
