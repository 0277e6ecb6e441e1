// Package memorywindow assembles the model-facing prompt for one
// conversation: the greedy newest-to-oldest token-budget walk over a
// conversation's MemoryIndex, the tool-call-integrity sweep that
// follows it, and hydration through ResourceIndex (spec §4.4).
package memorywindow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/nexus/pkg/identifier"
	"github.com/haasonsaas/nexus/pkg/resource"
)

// NotFoundError reports a missing conversation or agent (spec §7,
// NotFound).
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("memorywindow: %s not found: %s", e.Kind, e.ID)
}

// MissingTokensError reports an identifier lacking a tokens field
// during the budget walk (spec §7, BudgetMissingTokens).
type MissingTokensError struct{ ID string }

func (e *MissingTokensError) Error() string {
	return fmt.Sprintf("memorywindow: identifier %q has no tokens field", e.ID)
}

// ToolDeclaration is the normalized shape a tool function is presented
// to the model in, guaranteeing a JSON-schema-object parameters field
// even when the source ToolFunction carried none (spec §4.4 step 6).
type ToolDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Window is MemoryWindow.build's result: the assembled message list
// (system prompt first) and the normalized tool declarations.
type Window struct {
	Messages []resource.Resource
	Tools    []ToolDeclaration
}

// ResourceReader is the subset of ResourceIndex the window needs.
type ResourceReader interface {
	Get(ctx context.Context, ids []string) ([]resource.Resource, error)
}

// MemoryReader is the subset of MemoryIndex the window needs.
type MemoryReader interface {
	FindAll(ctx context.Context) ([]identifier.Identifier, error)
}

// Builder assembles Windows against one ResourceIndex. Each
// conversation's MemoryIndex is supplied per call since every
// conversation owns its own memory JSONL object (spec §5, "each index
// instance is bound to one conversation").
type Builder struct {
	Resources ResourceReader
}

// NewBuilder returns a Builder reading resources through resources.
func NewBuilder(resources ResourceReader) *Builder {
	return &Builder{Resources: resources}
}

// Build implements spec §4.4's algorithm for one turn: resourceID names
// the conversation, memory is that conversation's MemoryIndex, model
// and maxTokens size the available history budget.
func (b *Builder) Build(ctx context.Context, resourceID string, memory MemoryReader, model string, maxTokens int) (*Window, error) {
	convResources, err := b.Resources.Get(ctx, []string{resourceID})
	if err != nil {
		return nil, err
	}
	if len(convResources) == 0 {
		return nil, &NotFoundError{Kind: "conversation", ID: resourceID}
	}
	conv, ok := convResources[0].(*resource.Conversation)
	if !ok {
		return nil, &NotFoundError{Kind: "conversation", ID: resourceID}
	}

	agentResources, err := b.Resources.Get(ctx, []string{conv.AgentID})
	if err != nil {
		return nil, err
	}
	if len(agentResources) == 0 {
		return nil, &NotFoundError{Kind: "agent", ID: conv.AgentID}
	}
	agent, ok := agentResources[0].(*resource.Agent)
	if !ok {
		return nil, &NotFoundError{Kind: "agent", ID: conv.AgentID}
	}

	toolIDs := make([]string, len(agent.Tools))
	for i, name := range agent.Tools {
		toolIDs[i] = agent.Identifier.Child("tool_function", name).String()
	}
	toolResources, err := b.Resources.Get(ctx, toolIDs)
	if err != nil {
		return nil, err
	}

	overhead := agent.Tokens()
	for _, t := range toolResources {
		overhead += t.Tokens()
	}

	total := ContextWindowFor(model)
	historyBudget := total - overhead - maxTokens
	if historyBudget < 0 {
		historyBudget = 0
	}

	memIDs, err := memory.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	accepted, err := acceptWithinBudget(memIDs, historyBudget)
	if err != nil {
		return nil, err
	}
	accepted = dropLeadingToolResults(accepted)

	acceptedStrings := make([]string, len(accepted))
	for i, id := range accepted {
		acceptedStrings[i] = id.String()
	}
	hydrated, err := b.Resources.Get(ctx, acceptedStrings)
	if err != nil {
		return nil, err
	}

	messages := make([]resource.Resource, 0, len(hydrated)+1)
	messages = append(messages, agent)
	messages = append(messages, hydrated...)

	return &Window{
		Messages: messages,
		Tools:    normalizeTools(toolResources),
	}, nil
}

// acceptWithinBudget walks memIDs (oldest first, newest last) from the
// end backward, accepting each while the running token sum stays <=
// budget, and returns the accepted suffix in original (chronological)
// order — spec §4.4 step 3 / testable property #4 ("retains the
// longest suffix whose sum <= b").
func acceptWithinBudget(memIDs []identifier.Identifier, budget int) ([]identifier.Identifier, error) {
	var sum int
	cut := len(memIDs)
	for i := len(memIDs) - 1; i >= 0; i-- {
		id := memIDs[i]
		if id.Tokens <= 0 {
			return nil, &MissingTokensError{ID: id.String()}
		}
		if sum+id.Tokens > budget {
			break
		}
		sum += id.Tokens
		cut = i
	}
	return memIDs[cut:], nil
}

// dropLeadingToolResults implements the tool-call-integrity sweep
// (spec §4.4 step 4): discard leading tool-result identifiers until
// the first retained entry is not a tool message.
func dropLeadingToolResults(ids []identifier.Identifier) []identifier.Identifier {
	start := 0
	for start < len(ids) && ids[start].Type == "tool_call_message" {
		start++
	}
	return ids[start:]
}

// normalizeTools guarantees every declaration has a JSON-schema object
// shape for parameters, even when the source ToolFunction carried none
// (spec §4.4 step 6).
func normalizeTools(tools []resource.Resource) []ToolDeclaration {
	out := make([]ToolDeclaration, 0, len(tools))
	for _, t := range tools {
		fn, ok := t.(*resource.ToolFunction)
		if !ok {
			continue
		}
		params := fn.Schema
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)
		}
		out = append(out, ToolDeclaration{Name: fn.Name, Description: fn.Description, Parameters: params})
	}
	return out
}
