package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

// Handler executes an operation with JSON-encoded parameters.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Result is the output of an operation. IsError marks a result that
// describes a failure the operation detected itself (a missing record, a
// rejected update) rather than a transport or programming error.
type Result struct {
	Content string
	IsError bool
}

type entry struct {
	tool    protocol.Tool
	handler Handler
}

// Registry maps operation names to handlers. Descriptors are immutable once
// registered; Replace swaps the whole entry. Safe for concurrent use.
type Registry struct {
	entries  map[string]entry
	order    []string
	fallback string
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry. Catalog requests for a context no
// registered tool names are answered with the fallback context's catalog.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		entries:  make(map[string]entry),
		fallback: fallback,
	}
}

// Register adds a tool. Returns ErrAlreadyExists for a duplicate name.
func (r *Registry) Register(tool protocol.Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	r.order = append(r.order, tool.Name)
	return nil
}

// Lookup finds a tool by exact name.
func (r *Registry) Lookup(name string) (Handler, protocol.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, protocol.Tool{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.handler, e.tool, nil
}

// List returns every descriptor in registration order.
func (r *Registry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.entries[name].tool)
	}
	return tools
}

// CatalogFor returns the descriptors visible in a UI context, in
// registration order. A context that no tool names explicitly falls back to
// the registry's fallback context.
func (r *Registry) CatalogFor(context string) []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.known(context) {
		context = r.fallback
	}

	var tools []protocol.Tool
	for _, name := range r.order {
		if t := r.entries[name].tool; t.VisibleIn(context) {
			tools = append(tools, t)
		}
	}
	return tools
}

func (r *Registry) known(context string) bool {
	for _, e := range r.entries {
		for _, c := range e.tool.Contexts {
			if c == context {
				return true
			}
		}
	}
	return false
}

// Execute runs a tool by name. Returns ErrNotFound for unknown names;
// handler errors are returned as *ExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	handler, _, err := r.Lookup(name)
	if err != nil {
		return Result{}, err
	}

	result, err := handler(ctx, args)
	if err != nil {
		return Result{}, &ExecutionError{Tool: name, Err: err}
	}

	return result, nil
}
