package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 8 << 20
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket serves turns sequentially on one connection. Each turn's
// events end with a done event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)

	write := func(ev protocol.Event) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if write(protocol.Event{Type: protocol.EventError, Content: "invalid request: " + err.Error()}) != nil {
				return
			}
		} else if err := req.validate(); err != nil {
			if write(protocol.ErrorEvent(err)) != nil {
				return
			}
		} else if err := s.turn(r.Context(), req, write); err != nil {
			return
		}

		if write(protocol.DoneEvent()) != nil {
			return
		}
	}
}
