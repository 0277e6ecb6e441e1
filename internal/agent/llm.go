package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/nexus/internal/memorywindow"
	"github.com/haasonsaas/nexus/pkg/resource"
)

// FinishReason mirrors the values spec §4.5 inspects on choice 0.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// CompletionRequest is what AgentHands passes to LLMProvider.CreateCompletions;
// the window is assembled internally by the provider from ResourceID, matching
// spec §4.5's "the LLM service is responsible for assembling the window from
// resource_id internally; this call is opaque here."
type CompletionRequest struct {
	ResourceID string
	LLMToken   string
	Model      string
	MaxTokens  int
}

// CompletionChoice is the subset of a completion response AgentHands acts on.
type CompletionChoice struct {
	FinishReason FinishReason
	Text         string
	ToolCalls    []ToolCallRequest
}

// ToolCallRequest is one tool invocation the model requested, preserving
// the order it appeared in the response (spec §5, "original request order").
type ToolCallRequest struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// CompletionResponse wraps the choices AgentHands examines; an empty
// Choices slice means "no response" (spec §4.5 step 2 — terminate).
type CompletionResponse struct {
	Choices []CompletionChoice
}

// LLMProvider is the opaque external boundary spec §4.5 treats AgentHands
// as calling through — a single CreateCompletions RPC per iteration.
type LLMProvider interface {
	CreateCompletions(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// WindowSource supplies the memorywindow.Window a provider assembles a
// request from, the seam CreateCompletions hides behind its opaque call.
type WindowSource interface {
	Window(ctx context.Context, resourceID, model string, maxTokens int) (*memorywindow.Window, error)
}

// AnthropicProvider implements LLMProvider against Anthropic's Messages
// API, grounded on the teacher's internal/agent/providers/anthropic.go
// (client construction, message/tool conversion) collapsed to a single
// non-streaming call since spec §4.5's loop consumes one choice at a time
// rather than a token stream.
type AnthropicProvider struct {
	client       anthropic.Client
	windows      WindowSource
	defaultModel string
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Windows      WindowSource
}

// NewAnthropicProvider returns an AnthropicProvider backed by cfg.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.Windows == nil {
		return nil, fmt.Errorf("agent: AnthropicConfig.Windows is required")
	}
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		windows:      cfg.Windows,
		defaultModel: model,
	}, nil
}

// CreateCompletions assembles the memory window for req.ResourceID, sends
// one non-streaming Messages request, and projects the first choice into
// the shape AgentHands understands.
func (p *AnthropicProvider) CreateCompletions(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	win, err := p.windows.Window(ctx, req.ResourceID, model, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("agent: assemble window for %s: %w", req.ResourceID, err)
	}

	system, messages, tools := convertWindow(win)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System:    system,
		Messages:  messages,
		Tools:     tools,
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("agent: anthropic completion: %w", err)
	}

	choice := projectMessage(msg)
	return &CompletionResponse{Choices: []CompletionChoice{choice}}, nil
}

func convertWindow(win *memorywindow.Window) ([]anthropic.TextBlockParam, []anthropic.MessageParam, []anthropic.ToolUnionParam) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	// win.Messages[0] is always the agent's system prompt (spec §4.4 step
	// 6); everything after it is conversation history to convert in order.
	for i, m := range win.Messages {
		if i == 0 {
			if a, ok := m.(*resource.Agent); ok {
				system = append(system, anthropic.TextBlockParam{Type: "text", Text: a.SystemPrompt})
			}
			continue
		}
		messages = append(messages, messageParamFor(m))
	}

	tools := make([]anthropic.ToolUnionParam, 0, len(win.Tools))
	for _, t := range win.Tools {
		var schema anthropic.ToolInputSchemaParam
		_ = schema.UnmarshalJSON(t.Parameters)
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return system, messages, tools
}

// messageParamFor converts one hydrated conversation-history resource
// into an Anthropic message param. Message carries role + text (and any
// assistant tool_calls); ToolCallMessage is always a tool-result turn
// addressed back at its owning ToolCallID (spec §3 tagged variant).
func messageParamFor(m resource.Resource) anthropic.MessageParam {
	switch v := m.(type) {
	case *resource.Message:
		if v.Role == resource.RoleAssistant {
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(v.ToolCalls)+1)
			if v.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(v.Text))
			}
			for _, tc := range v.ToolCalls {
				var input any
				_ = json.Unmarshal(tc.Input, &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			return anthropic.NewAssistantMessage(blocks...)
		}
		return anthropic.NewUserMessage(anthropic.NewTextBlock(v.Text))
	case *resource.ToolCallMessage:
		return anthropic.NewUserMessage(anthropic.NewToolResultBlock(v.ToolCallID, v.Text, v.IsError))
	default:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content()))
	}
}

func projectMessage(msg *anthropic.Message) CompletionChoice {
	choice := CompletionChoice{FinishReason: FinishStop}
	var text string
	var calls []ToolCallRequest

	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += v.Text
		case anthropic.ToolUseBlock:
			calls = append(calls, ToolCallRequest{ID: v.ID, Name: v.Name, Input: json.RawMessage(v.Input)})
		}
	}

	choice.Text = text
	choice.ToolCalls = calls

	switch msg.StopReason {
	case anthropic.StopReasonToolUse:
		choice.FinishReason = FinishToolCalls
	case anthropic.StopReasonMaxTokens:
		choice.FinishReason = FinishLength
	default:
		choice.FinishReason = FinishStop
	}
	return choice
}
