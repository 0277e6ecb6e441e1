package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/tokenizer"
	"github.com/haasonsaas/nexus/pkg/identifier"
	"github.com/haasonsaas/nexus/pkg/resource"
)

// MaxIterations is the safety cap on one ExecuteToolLoop invocation
// (spec §4.5, "at most 100 iterations per invocation").
const MaxIterations = 100

// HandoffToolName is the function name AgentHands treats as a handoff
// request rather than an ordinary tool (spec §4.5, §9 Glossary).
const HandoffToolName = "run_handoff"

// ToolCallResultSource resolves identifiers[]-shaped tool results back
// into full resources (spec §4.5, executeToolCall's ResourceIndex
// resolution step).
type ToolCallResultSource interface {
	Get(ctx context.Context, ids []string) ([]resource.Resource, error)
}

// IterationCapExceededError reports that ExecuteToolLoop hit MaxIterations
// without the model reaching a terminal finish reason.
type IterationCapExceededError struct{ ResourceID string }

func (e *IterationCapExceededError) Error() string {
	return fmt.Sprintf("agent: %d-iteration safety cap exceeded for %s", MaxIterations, e.ResourceID)
}

// SaveFunc persists a batch of messages atomically: parallel writes to
// ResourceIndex, followed by one ordered MemoryIndex append (spec §4.5,
// "Persistence contract between Mind and Hands").
type SaveFunc func(ctx context.Context, messages []resource.Resource) error

// StreamFunc is a fire-and-forget progress callback for non-tool
// messages (spec §4.5).
type StreamFunc func(message resource.Resource)

// Hands is the planner-free tool execution loop (spec §4.5).
type Hands struct {
	Provider  LLMProvider
	Tools     *ToolRegistry
	Resources ToolCallResultSource
}

// NewHands returns a Hands driving provider and dispatching through tools,
// resolving identifiers[]-shaped tool results through resources.
func NewHands(provider LLMProvider, tools *ToolRegistry, resources ToolCallResultSource) *Hands {
	return &Hands{Provider: provider, Tools: tools, Resources: resources}
}

// ExecuteToolLoop drives the ask-model / dispatch-tools / persist cycle
// for one conversation until the model stops, the iteration cap is hit,
// or ctx is cancelled.
func (h *Hands) ExecuteToolLoop(ctx context.Context, resourceID string, save SaveFunc, stream StreamFunc, llmToken, model string) error {
	for i := 0; i < MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := h.Provider.CreateCompletions(ctx, CompletionRequest{
			ResourceID: resourceID,
			LLMToken:   llmToken,
			Model:      model,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return nil
		}
		choice := resp.Choices[0]

		assistant := newAssistantMessage(resourceID, choice)
		if stream != nil {
			stream(assistant)
		}

		if len(choice.ToolCalls) > 0 {
			results := h.dispatchParallel(ctx, resourceID, choice.ToolCalls)
			batch := make([]resource.Resource, 0, len(results)+1)
			batch = append(batch, assistant)
			for _, r := range results {
				batch = append(batch, r.message)
			}
			if err := save(ctx, batch); err != nil {
				return err
			}

			if prompt, ok := handoffPrompt(results); ok {
				handoff := newHandoffMessage(resourceID, prompt)
				if err := save(ctx, []resource.Resource{handoff}); err != nil {
					return err
				}
			}
			continue
		}

		// Malformed output (empty tool_calls array) or truncation: give
		// the model another turn (spec §4.5 step 3).
		if choice.FinishReason == FinishToolCalls || choice.FinishReason == FinishLength {
			if err := save(ctx, []resource.Resource{assistant}); err != nil {
				return err
			}
			continue
		}

		// "stop" or unknown: persist and terminate.
		if err := save(ctx, []resource.Resource{assistant}); err != nil {
			return err
		}
		return nil
	}
	return &IterationCapExceededError{ResourceID: resourceID}
}

func newAssistantMessage(conversationID string, choice CompletionChoice) *resource.Message {
	calls := make([]resource.ToolCall, len(choice.ToolCalls))
	for i, tc := range choice.ToolCalls {
		calls[i] = resource.ToolCall{ID: tc.ID, Name: tc.Name, Input: tc.Input}
	}
	convID, _ := identifier.Parse(conversationID)
	id := convID.Child("message", uuid.NewString())
	msg := &resource.Message{
		Identifier: id,
		Role:       resource.RoleAssistant,
		Text:       choice.Text,
		ToolCalls:  calls,
		CreatedAt:  time.Now(),
	}
	msg.Identifier = resource.WithIdentifier(msg)
	return msg
}

func newHandoffMessage(conversationID, prompt string) *resource.Message {
	convID, _ := identifier.Parse(conversationID)
	id := convID.Child("message", uuid.NewString())
	msg := &resource.Message{
		Identifier: id,
		Role:       resource.RoleUser,
		Text:       prompt,
		CreatedAt:  time.Now(),
	}
	msg.Identifier = resource.WithIdentifier(msg)
	return msg
}

type dispatchResult struct {
	index   int
	message *resource.ToolCallMessage
	call    ToolCallRequest
}

// dispatchParallel executes every tool call concurrently and returns the
// results re-sorted into original request-submission order, independent
// of completion order (spec §4.5/§5).
func (h *Hands) dispatchParallel(ctx context.Context, resourceID string, calls []ToolCallRequest) []dispatchResult {
	results := make([]dispatchResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc ToolCallRequest) {
			defer wg.Done()
			results[idx] = dispatchResult{
				index:   idx,
				message: h.executeToolCall(ctx, resourceID, tc),
				call:    tc,
			}
		}(i, call)
	}
	wg.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	return results
}

// executeToolCall runs one tool call and normalizes its result into a
// ToolCallMessage per spec §4.5's executeToolCall contract. Any error or
// panic from the tool is converted into an error tool message rather than
// propagated, so a single failing tool never aborts its siblings.
func (h *Hands) executeToolCall(ctx context.Context, resourceID string, call ToolCallRequest) (out *resource.ToolCallMessage) {
	convID, _ := identifier.Parse(resourceID)
	defer func() {
		if rec := recover(); rec != nil {
			out = errorToolMessage(convID, call.ID, fmt.Errorf("tool %s panicked: %v", call.Name, rec))
		}
	}()

	raw, err := h.Tools.Execute(ctx, call.Name, call.Input)
	if err != nil {
		return errorToolMessage(convID, call.ID, err)
	}
	if raw.IsError {
		return errorToolMessage(convID, call.ID, fmt.Errorf("%s", raw.Content))
	}

	content, subjects := h.normalizeToolResult(ctx, raw)

	id := convID.Child("tool_call_message", uuid.NewString()).WithSubjects(subjects)
	msg := &resource.ToolCallMessage{
		Identifier: id,
		ToolCallID: call.ID,
		Text:       content,
		CreatedAt:  time.Now(),
	}
	msg.Identifier = msg.Identifier.WithTokens(tokenizer.Count(content))
	return msg
}

// normalizeToolResult implements spec §4.5's three-way normalization:
// plain content, an empty identifiers[] result set, or a non-empty one
// resolved and concatenated via ResourceIndex.
func (h *Hands) normalizeToolResult(ctx context.Context, raw *ToolResult) (content string, subjects []string) {
	if raw.Identifiers == nil {
		return raw.Content, nil
	}
	if len(raw.Identifiers) == 0 {
		return "No results found.", nil
	}

	ids := make([]string, len(raw.Identifiers))
	for i, id := range raw.Identifiers {
		ids[i] = id.String()
		subjects = append(subjects, id.Subjects...)
	}

	resolved, err := h.Resources.Get(ctx, ids)
	if err != nil {
		return fmt.Sprintf("error resolving tool result identifiers: %v", err), subjects
	}

	var parts []string
	for _, r := range resolved {
		if c := r.Content(); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n\n"), subjects
}

func errorToolMessage(convID identifier.Identifier, toolCallID string, err error) *resource.ToolCallMessage {
	payload, _ := json.Marshal(map[string]any{
		"error": map[string]string{
			"type":    "tool_execution_error",
			"message": err.Error(),
			"code":    "tool_execution_error",
		},
	})
	content := string(payload)
	id := convID.Child("tool_call_message", uuid.NewString()).WithTokens(tokenizer.Count(content))
	return &resource.ToolCallMessage{
		Identifier: id,
		ToolCallID: toolCallID,
		Text:       content,
		IsError:    true,
		CreatedAt:  time.Now(),
	}
}

// handoffPrompt inspects the dispatched results for a run_handoff call
// and returns its content as the synthesized next user directive (spec
// §4.5, §9 Glossary "Handoff").
func handoffPrompt(results []dispatchResult) (string, bool) {
	for _, r := range results {
		if r.call.Name != HandoffToolName {
			continue
		}
		var parsed struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal([]byte(r.message.Text), &parsed); err == nil && parsed.Prompt != "" {
			return parsed.Prompt, true
		}
	}
	return "", false
}
