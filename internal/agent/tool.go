// Package agent implements the conversation loop: AgentMind sets up a
// conversation turn and hands it to AgentHands, which drives the
// ask-model / dispatch-tools-in-parallel / persist cycle until the model
// stops, a safety cap is hit, or the request is cancelled (spec §4.5/§4.6).
// The package follows the teacher repo's internal/agent layout
// (tool_registry.go, tool_exec.go, provider_types.go) trimmed to the
// planner-free loop this runtime actually specifies.
package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/nexus/pkg/identifier"
)

// Tool is anything the registry can dispatch a call to. Name must match
// the ToolFunction identifier's Name the agent declared.
type Tool interface {
	Name() string
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is a tool's raw output before executeToolCall's
// normalization (spec §4.5). A tool that resolves other resources (a
// search tool, say) sets Identifiers instead of Content; a nil
// Identifiers means "plain content", a non-nil empty slice means "no
// results found", matching executeToolCall's three-way rule.
type ToolResult struct {
	Content     string
	IsError     bool
	Identifiers []identifier.Identifier
}

// ToolFunc adapts a plain function to the Tool interface, the way small
// built-in tools are usually registered.
type ToolFunc struct {
	FuncName string
	Fn       func(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

func (f ToolFunc) Name() string { return f.FuncName }

func (f ToolFunc) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	return f.Fn(ctx, params)
}
