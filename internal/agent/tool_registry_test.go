package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type echoTool struct{ n string }

func (t echoTool) Name() string { return t.n }

func (t echoTool) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	return &ToolResult{Content: string(params)}, nil
}

func TestToolRegistryExecuteDispatchesRegisteredTool(t *testing.T) {
	r := NewToolRegistry()
	if err := r.Register(echoTool{n: "echo"}, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != `{"x":1}` || res.IsError {
		t.Errorf("res = %+v", res)
	}
}

func TestToolRegistryExecuteUnknownToolIsErrorResult(t *testing.T) {
	r := NewToolRegistry()
	res, err := r.Execute(context.Background(), "missing", nil)
	if err != nil {
		t.Fatalf("Execute returned Go error, want error result: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content, "not found") {
		t.Errorf("res = %+v", res)
	}
}

func TestToolRegistryExecuteValidatesSchema(t *testing.T) {
	r := NewToolRegistry()
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`)
	if err := r.Register(echoTool{n: "search"}, schema); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := r.Execute(context.Background(), "search", json.RawMessage(`{"query":"hello"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Errorf("valid params rejected: %+v", res)
	}

	res, err = r.Execute(context.Background(), "search", json.RawMessage(`{"limit":5}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content, "schema validation") {
		t.Errorf("missing required field not rejected: %+v", res)
	}
}

func TestToolRegistryExecuteRejectsOversizedName(t *testing.T) {
	r := NewToolRegistry()
	longName := strings.Repeat("a", MaxToolNameLength+1)
	res, err := r.Execute(context.Background(), longName, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content, "maximum length") {
		t.Errorf("res = %+v", res)
	}
}

func TestToolRegistryUnregisterRemovesToolAndSchema(t *testing.T) {
	r := NewToolRegistry()
	r.Register(echoTool{n: "echo"}, json.RawMessage(`{"type":"object"}`))
	r.Unregister("echo")
	if _, ok := r.Get("echo"); ok {
		t.Errorf("echo still registered after Unregister")
	}
	res, err := r.Execute(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Errorf("res = %+v, want not-found error", res)
	}
}

func TestToolRegistryNames(t *testing.T) {
	r := NewToolRegistry()
	r.Register(echoTool{n: "a"}, nil)
	r.Register(echoTool{n: "b"}, nil)
	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
}
