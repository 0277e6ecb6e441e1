package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/haasonsaas/nexus/pkg/identifier"
	"github.com/haasonsaas/nexus/pkg/resource"
)

// delayTool sleeps for d before returning content equal to its own name,
// the fixture Scenario C (spec.md §8) uses to prove ordered output
// survives out-of-order completion.
type delayTool struct {
	name  string
	delay time.Duration
	fail  bool
}

func (t delayTool) Name() string { return t.name }

func (t delayTool) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	time.Sleep(t.delay)
	if t.fail {
		return nil, fmt.Errorf("boom")
	}
	return &ToolResult{Content: t.name}, nil
}

type fakeResources struct{ resources map[string]resource.Resource }

func (f *fakeResources) Get(ctx context.Context, ids []string) ([]resource.Resource, error) {
	out := make([]resource.Resource, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// TestDispatchParallelPreservesRequestOrder is Scenario C: dispatch
// [call1, call2, call3] with delays [30ms, 10ms, 50ms]; completion order
// is [call2, call1, call3] but returned messages must be [call1, call2, call3].
func TestDispatchParallelPreservesRequestOrder(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(delayTool{name: "call1", delay: 30 * time.Millisecond}, nil); err != nil {
		t.Fatalf("register call1: %v", err)
	}
	if err := registry.Register(delayTool{name: "call2", delay: 10 * time.Millisecond}, nil); err != nil {
		t.Fatalf("register call2: %v", err)
	}
	if err := registry.Register(delayTool{name: "call3", delay: 50 * time.Millisecond}, nil); err != nil {
		t.Fatalf("register call3: %v", err)
	}

	h := NewHands(nil, registry, &fakeResources{})
	calls := []ToolCallRequest{
		{ID: "id1", Name: "call1"},
		{ID: "id2", Name: "call2"},
		{ID: "id3", Name: "call3"},
	}

	results := h.dispatchParallel(context.Background(), "agent.a1/conversation.c1", calls)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, want := range []string{"call1", "call2", "call3"} {
		if results[i].message.Text != want {
			t.Errorf("results[%d].message.Text = %q, want %q", i, results[i].message.Text, want)
		}
	}
}

// TestDispatchParallelErrorIsolation: one failing tool call does not
// affect the outputs of its siblings (testable property #5).
func TestDispatchParallelErrorIsolation(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(delayTool{name: "ok1"}, nil)
	registry.Register(delayTool{name: "broken", fail: true}, nil)
	registry.Register(delayTool{name: "ok2"}, nil)

	h := NewHands(nil, registry, &fakeResources{})
	calls := []ToolCallRequest{
		{ID: "id1", Name: "ok1"},
		{ID: "id2", Name: "broken"},
		{ID: "id3", Name: "ok2"},
	}

	results := h.dispatchParallel(context.Background(), "agent.a1/conversation.c1", calls)
	if results[0].message.Text != "ok1" || results[0].message.IsError {
		t.Errorf("results[0] = %+v, want ok1 success", results[0].message)
	}
	if !results[1].message.IsError {
		t.Errorf("results[1].IsError = false, want true")
	}
	if results[2].message.Text != "ok2" || results[2].message.IsError {
		t.Errorf("results[2] = %+v, want ok2 success", results[2].message)
	}
}

// TestNormalizeToolResultEmptyIdentifiers covers the "identifiers[]
// present and empty" branch of executeToolCall's normalization.
func TestNormalizeToolResultEmptyIdentifiers(t *testing.T) {
	h := NewHands(nil, NewToolRegistry(), &fakeResources{})
	content, subjects := h.normalizeToolResult(context.Background(), &ToolResult{Identifiers: []identifier.Identifier{}})
	if content != "No results found." {
		t.Errorf("content = %q, want %q", content, "No results found.")
	}
	if subjects != nil {
		t.Errorf("subjects = %v, want nil", subjects)
	}
}

// TestNormalizeToolResultResolvesIdentifiers covers the non-empty
// identifiers[] branch: subjects flatten and contents concatenate
// separated by a blank line.
func TestNormalizeToolResultResolvesIdentifiers(t *testing.T) {
	id1 := identifier.New("message", "m1", "agent.a1/conversation.c1").WithSubjects([]string{"urn:subj:1"})
	id2 := identifier.New("message", "m2", "agent.a1/conversation.c1").WithSubjects([]string{"urn:subj:2"})
	fr := &fakeResources{resources: map[string]resource.Resource{
		id1.String(): &resource.Message{Identifier: id1, Text: "first"},
		id2.String(): &resource.Message{Identifier: id2, Text: "second"},
	}}

	h := NewHands(nil, NewToolRegistry(), fr)
	content, subjects := h.normalizeToolResult(context.Background(), &ToolResult{Identifiers: []identifier.Identifier{id1, id2}})
	if content != "first\n\nsecond" {
		t.Errorf("content = %q", content)
	}
	if len(subjects) != 2 {
		t.Errorf("subjects = %v, want 2 entries", subjects)
	}
}

// fakeProvider returns a fixed sequence of responses, one per call.
type fakeProvider struct {
	responses []*CompletionResponse
	calls     int
}

func (p *fakeProvider) CreateCompletions(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if p.calls >= len(p.responses) {
		return &CompletionResponse{}, nil
	}
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}

// TestExecuteToolLoopHandoffInjectsUserMessage: a run_handoff tool call
// results in a synthesized user message as a separate batch write.
func TestExecuteToolLoopHandoffInjectsUserMessage(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(ToolFunc{FuncName: HandoffToolName, Fn: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
		return &ToolResult{Content: `{"prompt":"continue as billing agent"}`}, nil
	}}, nil)

	provider := &fakeProvider{responses: []*CompletionResponse{
		{Choices: []CompletionChoice{{
			FinishReason: FinishToolCalls,
			ToolCalls:    []ToolCallRequest{{ID: "tc1", Name: HandoffToolName}},
		}}},
		{Choices: []CompletionChoice{{FinishReason: FinishStop, Text: "done"}}},
	}}

	h := NewHands(provider, registry, &fakeResources{})

	var batches [][]resource.Resource
	save := func(ctx context.Context, messages []resource.Resource) error {
		batches = append(batches, messages)
		return nil
	}

	err := h.ExecuteToolLoop(context.Background(), "agent.a1/conversation.c1", save, nil, "", "")
	if err != nil {
		t.Fatalf("ExecuteToolLoop: %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3 (assistant+tool, handoff, final assistant)", len(batches))
	}
	if len(batches[1]) != 1 {
		t.Fatalf("batches[1] = %d messages, want 1 synthesized handoff message", len(batches[1]))
	}
	handoffMsg, ok := batches[1][0].(*resource.Message)
	if !ok || handoffMsg.Role != resource.RoleUser || handoffMsg.Text != "continue as billing agent" {
		t.Errorf("handoff message = %+v", batches[1][0])
	}
}

// TestExecuteToolLoopTerminatesOnStop ends the loop at the first "stop"
// finish reason without dispatching any tools.
func TestExecuteToolLoopTerminatesOnStop(t *testing.T) {
	provider := &fakeProvider{responses: []*CompletionResponse{
		{Choices: []CompletionChoice{{FinishReason: FinishStop, Text: "done"}}},
	}}
	h := NewHands(provider, NewToolRegistry(), &fakeResources{})

	var batches [][]resource.Resource
	save := func(ctx context.Context, messages []resource.Resource) error {
		batches = append(batches, messages)
		return nil
	}
	if err := h.ExecuteToolLoop(context.Background(), "agent.a1/conversation.c1", save, nil, "", ""); err != nil {
		t.Fatalf("ExecuteToolLoop: %v", err)
	}
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %+v, want one single-message batch", batches)
	}
}

// TestExecuteToolLoopNoChoicesTerminates covers spec §4.5 step 2.
func TestExecuteToolLoopNoChoicesTerminates(t *testing.T) {
	provider := &fakeProvider{responses: []*CompletionResponse{{Choices: nil}}}
	h := NewHands(provider, NewToolRegistry(), &fakeResources{})
	called := false
	save := func(ctx context.Context, messages []resource.Resource) error {
		called = true
		return nil
	}
	if err := h.ExecuteToolLoop(context.Background(), "agent.a1/conversation.c1", save, nil, "", ""); err != nil {
		t.Fatalf("ExecuteToolLoop: %v", err)
	}
	if called {
		t.Errorf("save was called, want no-op termination on empty choices")
	}
}
