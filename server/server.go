// Package server exposes the assistant over HTTP. Every transport carries the
// same turn request and streams the same events:
//
//   - POST {base}/chat streams newline-delimited JSON
//   - GET {base}/ws accepts one turn request per text frame
//   - /movi.v1.AssistantService/Chat is a Connect server stream of
//     google.protobuf.Struct messages
//
// A message sent to a session that is awaiting a decision is read as the
// decision, so a client can answer a confirmation with "yes".
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tailored-agentic-units/movi/agent"
	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/observability"
	"github.com/tailored-agentic-units/movi/session"
)

const (
	EventRequest      observability.EventType = "server.request"
	EventVisionFailed observability.EventType = "server.vision_failed"
)

const defaultBasePath = "/movi"

// ChatRequest is a turn request on every transport.
type ChatRequest struct {
	Message          string `json:"message"`
	SessionID        string `json:"session_id"`
	ContextPage      string `json:"context_page,omitempty"`
	ImageBase64      string `json:"image_base64,omitempty"`
	ImageDescription string `json:"image_description,omitempty"`
	ResumeDecision   *bool  `json:"resume_decision,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithDescriber sets the image describer used for requests that carry an
// image but no description.
func WithDescriber(d agent.Describer) Option {
	return func(s *Server) { s.describer = d }
}

// WithObserver sets the observer for request events.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithBasePath mounts the HTTP routes under path.
func WithBasePath(path string) Option {
	return func(s *Server) { s.basePath = strings.TrimRight(path, "/") }
}

// Server adapts a kernel to HTTP transports.
type Server struct {
	kernel    *kernel.Kernel
	describer agent.Describer
	observer  observability.Observer
	basePath  string
}

// New creates a Server for k.
func New(k *kernel.Kernel, opts ...Option) *Server {
	s := &Server{
		kernel:   k,
		observer: observability.NoOpObserver{},
		basePath: defaultBasePath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns a mux with every route mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.basePath+"/chat", s.handleChat)
	mux.HandleFunc("GET "+s.basePath+"/health", s.handleHealth)
	mux.HandleFunc("GET "+s.basePath+"/sessions/{id}", s.handleSession)
	mux.HandleFunc("GET "+s.basePath+"/ws", s.handleWebSocket)

	path, handler := s.ConnectHandler()
	mux.Handle(path, handler)
	return mux
}

func (r *ChatRequest) validate() error {
	if err := session.ValidateID(r.SessionID); err != nil {
		return err
	}
	return nil
}

// emitter writes one event to the client.
type emitter func(protocol.Event) error

// turn runs a request to completion, streaming its events through emit.
// Turn failures are reported as error events; the returned error is a
// failure to write to the client.
func (s *Server) turn(ctx context.Context, req ChatRequest, emit emitter) error {
	start := time.Now()

	var writeErr error
	send := func(ev protocol.Event) {
		if writeErr == nil {
			writeErr = emit(ev)
		}
	}

	kreq, err := s.request(ctx, req)
	if err == nil {
		var res *kernel.Result
		res, err = s.kernel.Turn(ctx, kreq, func(token string) {
			send(protocol.TokenEvent(token))
		})
		if err == nil && res.Suspended {
			send(protocol.ConfirmationEvent(res.Confirmation))
		}
	}
	if err != nil {
		send(protocol.ErrorEvent(err))
	}

	s.observer.OnEvent(ctx, observability.Event{
		Type:      EventRequest,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "server",
		Data: map[string]any{
			"session_id": req.SessionID,
			"page":       req.ContextPage,
			"decision":   kreq.Decision != nil,
			"image":      req.ImageBase64 != "" || req.ImageDescription != "",
			"duration":   time.Since(start).String(),
			"error":      err != nil,
		},
	})
	return writeErr
}

// request maps a transport request onto a kernel request. A message to a
// suspended session becomes its decision.
func (s *Server) request(ctx context.Context, req ChatRequest) (kernel.Request, error) {
	kreq := kernel.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
		Page:      req.ContextPage,
		ImageText: req.ImageDescription,
		Decision:  req.ResumeDecision,
	}

	if kreq.Decision == nil {
		stored, err := s.kernel.Store().Get(ctx, req.SessionID)
		switch {
		case errors.Is(err, session.ErrNotFound):
		case err != nil:
			return kreq, fmt.Errorf("%w: %w", kernel.ErrStore, err)
		case stored.Suspended:
			approved := kernel.ParseDecision(req.Message)
			kreq.Decision = &approved
			return kreq, nil
		}
	}

	if kreq.Decision == nil && kreq.ImageText == "" && req.ImageBase64 != "" && s.describer != nil {
		text, err := s.describer.Describe(ctx, req.ImageBase64)
		if err != nil {
			s.observer.OnEvent(ctx, observability.Event{
				Type:      EventVisionFailed,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    "server",
				Data:      map[string]any{"session_id": req.SessionID, "error": err.Error()},
			})
		} else {
			kreq.ImageText = text
		}
	}
	return kreq, nil
}
