package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/agent/mock"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/fleet"
	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/server"
	"github.com/tailored-agentic-units/movi/session"
	"github.com/tailored-agentic-units/movi/tools"
)

type fixture struct {
	srv      *httptest.Server
	intent   *mock.Agent
	response *mock.Agent
	vision   *mock.Agent
	rec      *observability.Recorder
}

func classify(op string, params map[string]any) string {
	out, _ := json.Marshal(map[string]any{"intent": op, "tool_name": op, "entities": params})
	return string(out)
}

func newFixture(t *testing.T, opts ...kernel.Option) *fixture {
	t.Helper()

	data, err := fleet.Seed()
	require.NoError(t, err)
	reg := tools.NewRegistry(fleet.PageBusDashboard)
	require.NoError(t, fleet.Register(reg, data))

	f := &fixture{
		intent:   mock.New("intent"),
		response: mock.New("response"),
		vision:   mock.New("vision"),
		rec:      &observability.Recorder{},
	}

	agents := agent.NewRegistry()
	require.NoError(t, agents.Set(kernel.RoleIntent, f.intent))
	require.NoError(t, agents.Set(kernel.RoleResponse, f.response))
	require.NoError(t, agents.Set(kernel.RoleConfirmation, mock.New("confirmation")))

	cfg := kernel.DefaultConfig()
	base := []kernel.Option{
		kernel.WithStore(session.NewMemoryStore()),
		kernel.WithAgents(agents),
		kernel.WithOperations(reg),
		kernel.WithChecker(fleet.Checker{Store: data}),
	}
	k, err := kernel.New(context.Background(), &cfg, append(base, opts...)...)
	require.NoError(t, err)

	s := server.New(k, server.WithDescriber(f.vision), server.WithObserver(f.rec))
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) chat(t *testing.T, req server.ChatRequest) []protocol.Event {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+"/movi/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	var events []protocol.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev protocol.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func tokens(events []protocol.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == protocol.EventToken {
			b.WriteString(ev.Content)
		}
	}
	return b.String()
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/movi/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"status": "healthy", "service": "Movi AI Assistant"}, body)
}

func TestChat_StreamsTokens(t *testing.T) {
	f := newFixture(t)
	f.intent.Queue(classify("get_all_trips", map[string]any{}))
	f.response.Queue("There are four trips today.")

	events := f.chat(t, server.ChatRequest{SessionID: "s1", Message: "list trips", ContextPage: "busDashboard"})

	require.NotEmpty(t, events)
	assert.Equal(t, "There are four trips today.", tokens(events))
	for _, ev := range events {
		assert.Equal(t, protocol.EventToken, ev.Type)
	}
	assert.Equal(t, 1, f.rec.Count(server.EventRequest))
}

func TestChat_ConfirmationFlow(t *testing.T) {
	f := newFixture(t)
	f.intent.Queue(classify("remove_vehicle_from_trip", map[string]any{"trip_name": "Bulk - 00:01"}))
	f.response.Queue("The vehicle was removed.")

	events := f.chat(t, server.ChatRequest{SessionID: "s1", Message: "remove the bus from Bulk - 00:01"})
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventConfirmation, events[0].Type)
	require.NotNil(t, events[0].Payload)
	assert.True(t, events[0].Payload.RequiresConfirmation)
	assert.NotEmpty(t, events[0].Payload.Message)

	events = f.chat(t, server.ChatRequest{SessionID: "s1", Message: "Yes!"})
	assert.Equal(t, "The vehicle was removed.", tokens(events))
	assert.Len(t, f.intent.Calls(), 1, "the decision is not classified")

	resp, err := http.Get(f.srv.URL + "/movi/sessions/s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored session.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.False(t, stored.Suspended)
	require.Len(t, stored.Decisions, 1)
	assert.True(t, stored.Decisions[0].Approved)
}

func TestChat_ExplicitRejection(t *testing.T) {
	f := newFixture(t)
	f.intent.Queue(classify("delete_trip", map[string]any{"trip_display_name": "Bulk - 00:01"}))
	f.response.Queue("Nothing was deleted.")

	f.chat(t, server.ChatRequest{SessionID: "s1", Message: "delete Bulk - 00:01"})

	rejected := false
	events := f.chat(t, server.ChatRequest{SessionID: "s1", Message: "yes", ResumeDecision: &rejected})
	assert.Equal(t, "Nothing was deleted.", tokens(events))

	events = f.chat(t, server.ChatRequest{SessionID: "s1", ResumeDecision: &rejected})
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventError, events[0].Type)
	assert.Contains(t, events[0].Content, kernel.ErrNotSuspended.Error())
}

func TestChat_TurnErrorIsAnEvent(t *testing.T) {
	f := newFixture(t)

	events := f.chat(t, server.ChatRequest{SessionID: "s1", Message: ""})
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventError, events[0].Type)
	assert.Equal(t, kernel.ErrEmptyMessage.Error(), events[0].Content)
}

// readOnlyStore rejects every write.
type readOnlyStore struct {
	session.Store
}

func (readOnlyStore) Put(context.Context, *session.Session) error {
	return errors.New("read-only file system")
}

func TestChat_StoreFailureIsAnEvent(t *testing.T) {
	f := newFixture(t, kernel.WithStore(readOnlyStore{session.NewMemoryStore()}))
	f.intent.Queue(classify("get_all_trips", map[string]any{}))

	events := f.chat(t, server.ChatRequest{SessionID: "s1", Message: "list trips"})

	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventError, events[0].Type)
	assert.Contains(t, events[0].Content, kernel.ErrStore.Error())
	assert.Contains(t, events[0].Content, "read-only file system")
	assert.Empty(t, f.response.Calls())
}

func TestChat_DescribesImages(t *testing.T) {
	f := newFixture(t)
	f.vision.Queue("A bus labelled Bulk - 00:01")
	f.intent.Queue(classify("get_trip_status", map[string]any{"trip_display_name": "Bulk - 00:01"}))
	f.response.Queue("It is scheduled.")

	f.chat(t, server.ChatRequest{SessionID: "s1", Message: "what about this one?", ImageBase64: "aGVsbG8="})

	require.Len(t, f.vision.Calls(), 1)
	assert.Equal(t, "aGVsbG8=", f.vision.Calls()[0][0].Content)

	calls := f.intent.Calls()
	require.Len(t, calls, 1)
	last := calls[0][len(calls[0])-1]
	assert.Contains(t, last.Content, "[Image Analysis: A bus labelled Bulk - 00:01]")
}

func TestChat_ProvidedDescriptionSkipsVision(t *testing.T) {
	f := newFixture(t)
	f.intent.Queue(classify("get_all_trips", map[string]any{}))
	f.response.Queue("ok")

	f.chat(t, server.ChatRequest{
		SessionID: "s1", Message: "this", ImageBase64: "aGVsbG8=", ImageDescription: "a route map",
	})
	assert.Empty(t, f.vision.Calls())
}

func TestChat_BadRequests(t *testing.T) {
	f := newFixture(t)

	for name, body := range map[string]string{
		"malformed":  "{",
		"invalid id": `{"session_id": "../etc", "message": "hi"}`,
		"missing id": `{"message": "hi"}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(f.srv.URL+"/movi/chat", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestSession_NotFound(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/movi/sessions/ghost")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t)
	f.intent.Queue(
		classify("get_all_trips", map[string]any{}),
		classify("list_all_vehicles", map[string]any{}),
	)
	f.response.Queue("Four trips.", "Four vehicles.")

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/movi/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readTurn := func() []protocol.Event {
		var events []protocol.Event
		for {
			var ev protocol.Event
			require.NoError(t, conn.ReadJSON(&ev))
			if ev.Type == protocol.EventDone {
				return events
			}
			events = append(events, ev)
		}
	}

	require.NoError(t, conn.WriteJSON(server.ChatRequest{SessionID: "ws1", Message: "trips?"}))
	assert.Equal(t, "Four trips.", tokens(readTurn()))

	require.NoError(t, conn.WriteJSON(server.ChatRequest{SessionID: "ws1", Message: "vehicles?"}))
	assert.Equal(t, "Four vehicles.", tokens(readTurn()))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	events := readTurn()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventError, events[0].Type)
}

func TestConnect(t *testing.T) {
	f := newFixture(t)
	f.intent.Queue(classify("get_all_trips", map[string]any{}))
	f.response.Queue("Four trips today.")

	client := connect.NewClient[structpb.Struct, structpb.Struct](f.srv.Client(), f.srv.URL+server.ChatProcedure)

	req, err := structpb.NewStruct(map[string]any{"session_id": "c1", "message": "list trips"})
	require.NoError(t, err)

	stream, err := client.CallServerStream(context.Background(), connect.NewRequest(req))
	require.NoError(t, err)
	defer stream.Close()

	var b strings.Builder
	for stream.Receive() {
		msg := stream.Msg().AsMap()
		assert.Equal(t, "token", msg["type"])
		b.WriteString(msg["content"].(string))
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, "Four trips today.", b.String())
}

func TestConnect_InvalidArgument(t *testing.T) {
	f := newFixture(t)
	client := connect.NewClient[structpb.Struct, structpb.Struct](f.srv.Client(), f.srv.URL+server.ChatProcedure)

	req, err := structpb.NewStruct(map[string]any{"message": "hi"})
	require.NoError(t, err)

	stream, err := client.CallServerStream(context.Background(), connect.NewRequest(req))
	require.NoError(t, err)
	defer stream.Close()

	assert.False(t, stream.Receive())
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(stream.Err()))
}
