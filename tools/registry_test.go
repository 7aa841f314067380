package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/movi/core/protocol"
	"github.com/tailored-agentic-units/movi/tools"
)

func testTool(name string, contexts ...string) protocol.Tool {
	return protocol.Tool{
		Name:        name,
		Description: "test tool: " + name,
		Parameters:  protocol.Schema(map[string]string{"input": "string"}),
		Contexts:    contexts,
	}
}

func echoHandler(_ context.Context, args json.RawMessage) (tools.Result, error) {
	return tools.Result{Content: string(args)}, nil
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		tool    protocol.Tool
		handler tools.Handler
		wantErr error
	}{
		{name: "valid tool", tool: testTool("valid"), handler: echoHandler},
		{name: "empty name", tool: protocol.Tool{}, handler: echoHandler, wantErr: tools.ErrEmptyName},
		{name: "nil handler", tool: testTool("nil"), wantErr: tools.ErrNilHandler},
		{name: "duplicate", tool: testTool("dup"), handler: echoHandler, wantErr: tools.ErrAlreadyExists},
	}

	r := tools.NewRegistry("")
	if err := r.Register(testTool("dup"), echoHandler); err != nil {
		t.Fatalf("seed Register() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.tool, tt.handler)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Register() unexpected error: %v", err)
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := tools.NewRegistry("")
	r.Register(testTool("get_all_trips"), echoHandler)

	handler, tool, err := r.Lookup("get_all_trips")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if handler == nil || tool.Name != "get_all_trips" {
		t.Errorf("Lookup() = %v, %+v", handler, tool)
	}

	if _, _, err := r.Lookup("Get_All_Trips"); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Lookup is not exact-match: error = %v", err)
	}
}

func TestRegistry_CatalogFor(t *testing.T) {
	r := tools.NewRegistry("busDashboard")
	r.Register(testTool("get_all_trips", "busDashboard", "vehicles"), echoHandler)
	r.Register(testTool("list_all_stops", "stops_paths"), echoHandler)
	r.Register(testTool("list_all_routes", "routes"), echoHandler)
	r.Register(testTool("help"), echoHandler)

	tests := []struct {
		page string
		want []string
	}{
		{page: "busDashboard", want: []string{"get_all_trips", "help"}},
		{page: "vehicles", want: []string{"get_all_trips", "help"}},
		{page: "stops_paths", want: []string{"list_all_stops", "help"}},
		{page: "routes", want: []string{"list_all_routes", "help"}},
		{page: "unknown", want: []string{"get_all_trips", "help"}},
		{page: "", want: []string{"get_all_trips", "help"}},
	}

	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			catalog := r.CatalogFor(tt.page)
			if len(catalog) != len(tt.want) {
				t.Fatalf("CatalogFor(%q) = %d tools, want %d", tt.page, len(catalog), len(tt.want))
			}
			for i, tool := range catalog {
				if tool.Name != tt.want[i] {
					t.Errorf("catalog[%d] = %s, want %s", i, tool.Name, tt.want[i])
				}
			}
		})
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := tools.NewRegistry("")
	r.Register(testTool("echo"), echoHandler)
	r.Register(testTool("fail"), func(context.Context, json.RawMessage) (tools.Result, error) {
		return tools.Result{}, errors.New("database offline")
	})

	ctx := context.Background()

	result, err := r.Execute(ctx, "echo", json.RawMessage(`{"input":"x"}`))
	if err != nil {
		t.Fatalf("Execute(echo) error = %v", err)
	}
	if result.Content != `{"input":"x"}` {
		t.Errorf("Content = %q", result.Content)
	}

	if _, err := r.Execute(ctx, "missing", nil); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Execute(missing) error = %v, want ErrNotFound", err)
	}

	_, err = r.Execute(ctx, "fail", nil)
	if err == nil || err.Error() != "tool fail execution failed: database offline" {
		t.Errorf("Execute(fail) error = %v", err)
	}
	var execErr *tools.ExecutionError
	if !errors.As(err, &execErr) || execErr.Tool != "fail" || execErr.Err.Error() != "database offline" {
		t.Errorf("Execute(fail) error = %#v, want *ExecutionError", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := tools.NewRegistry("")
	for _, name := range []string{"c", "a", "b"} {
		r.Register(testTool(name), echoHandler)
	}

	list := r.List()
	if len(list) != 3 || list[0].Name != "c" || list[1].Name != "a" || list[2].Name != "b" {
		t.Errorf("List() not in registration order: %v", list)
	}
}
