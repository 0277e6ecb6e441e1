package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool parameter limits to prevent resource exhaustion, matching the
// teacher's internal/agent/tool_registry.go constants.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// ToolRegistry manages available tools with thread-safe registration and
// lookup, keyed by the name the model sees in its tool_calls (spec §4.5).
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	schema map[string]*jsonschema.Schema
}

// NewToolRegistry returns an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:  make(map[string]Tool),
		schema: make(map[string]*jsonschema.Schema),
	}
}

// Register adds tool under name, replacing any prior registration.
// schemaJSON is optional; when present it validates each call's
// parameters before dispatch, per SPEC_FULL.md's jsonschema/v5 wiring.
func (r *ToolRegistry) Register(tool Tool, schemaJSON json.RawMessage) error {
	var compiled *jsonschema.Schema
	if len(schemaJSON) > 0 {
		c := jsonschema.NewCompiler()
		const resourceURL = "tool-schema.json"
		if err := c.AddResource(resourceURL, bytes.NewReader(schemaJSON)); err != nil {
			return fmt.Errorf("agent: compile schema for %q: %w", tool.Name(), err)
		}
		sch, err := c.Compile(resourceURL)
		if err != nil {
			return fmt.Errorf("agent: compile schema for %q: %w", tool.Name(), err)
		}
		compiled = sch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	if compiled != nil {
		r.schema[tool.Name()] = compiled
	} else {
		delete(r.schema, tool.Name())
	}
	return nil
}

// Unregister removes a tool by name.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schema, name)
}

// Get returns a tool by name and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs the named tool against params, validating params against
// the tool's declared schema (if any) first. A missing tool or a schema
// violation is reported as an error *result*, not a Go error, matching
// executeToolCall's "any thrown error becomes a tool message" contract
// (spec §4.5) — the caller (Hands) wraps Go errors separately.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	if len(name) > MaxToolNameLength {
		return &ToolResult{Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength), IsError: true}, nil
	}
	if len(params) > MaxToolParamsSize {
		return &ToolResult{Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize), IsError: true}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	sch := r.schema[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{Content: "tool not found: " + name, IsError: true}, nil
	}

	if sch != nil {
		var v any
		if len(params) == 0 {
			params = json.RawMessage("{}")
		}
		if err := json.Unmarshal(params, &v); err != nil {
			return &ToolResult{Content: fmt.Sprintf("invalid parameters JSON: %v", err), IsError: true}, nil
		}
		if err := sch.Validate(v); err != nil {
			return &ToolResult{Content: fmt.Sprintf("parameters failed schema validation: %v", err), IsError: true}, nil
		}
	}

	return tool.Execute(ctx, params)
}

// Names returns every registered tool's name.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	return out
}
