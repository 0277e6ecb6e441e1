// Package resource defines the tagged-variant resource model the runtime
// persists: Agent, Conversation, Message, ToolCallMessage, and
// ToolFunction. All five share the subset consumed by the ontology and
// tool machinery — {id, content?, tokens} — exposed through the Resource
// interface (spec §9, "polymorphic resource with differently-shaped
// payloads"). The per-type operations (identifier generation, token
// counting) that the original source monkey-patches onto objects are
// modeled here as explicit methods instead, matching the teacher repo's
// style of a small interface plus concrete struct types
// (pkg/models/message.go).
package resource

import (
	"encoding/json"
	"time"

	"github.com/haasonsaas/nexus/internal/tokenizer"
	"github.com/haasonsaas/nexus/pkg/identifier"
)

// Kind discriminates the tagged variant.
type Kind string

const (
	KindAgent            Kind = "agent"
	KindConversation     Kind = "conversation"
	KindMessage          Kind = "message"
	KindToolCallMessage  Kind = "tool_call_message"
	KindToolFunction     Kind = "tool_function"
)

// Role is a Message's speaker role, mirroring the teacher's
// pkg/models.Role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Resource is the shared surface every variant implements.
type Resource interface {
	// ID returns the resource's own identifier.
	ID() identifier.Identifier

	// Content is the resource's textual payload, or "" if it has none
	// (e.g. a ToolFunction declaration).
	Content() string

	// Tokens computes the token count for Content.
	// Callers that need a persistable identifier call WithIdentifier
	// first to stamp Tokens onto the Identifier itself.
	Tokens() int
}

// WithIdentifier returns r's identifier with Tokens populated from
// r.Tokens(), satisfying the "tokens must be set before persistence"
// invariant (spec §3).
func WithIdentifier(r Resource) identifier.Identifier {
	return r.ID().WithTokens(r.Tokens())
}

// ToolCall mirrors pkg/models.ToolCall — an LLM's request to invoke a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Agent is the system prompt + declared tool list + handoff table.
type Agent struct {
	Identifier   identifier.Identifier `json:"id"`
	Name         string                `json:"name"`
	SystemPrompt string                `json:"system_prompt"`
	Model        string                `json:"model"`
	Provider     string                `json:"provider"`

	// Tools lists ToolFunction names only (spec §3 invariant).
	Tools []string `json:"tools"`

	// Infer carries the agent file's infer flag. Nothing in this module
	// reads it; the declared Tools list is always used as written.
	Infer bool `json:"infer,omitempty"`

	Handoffs []AgentHandoff `json:"handoffs,omitempty"`
}

// AgentHandoff is one entry of an agent's declared handoff table, parsed
// from *.agent.md frontmatter (spec §6).
type AgentHandoff struct {
	Label  string `json:"label"`
	Agent  string `json:"agent,omitempty"`
	Prompt string `json:"prompt"`
	Send   bool   `json:"send,omitempty"`
}

func (a *Agent) ID() identifier.Identifier { return a.Identifier }
func (a *Agent) Content() string           { return a.SystemPrompt }
func (a *Agent) Tokens() int                { return tokenizer.Count(a.SystemPrompt) }

// Conversation anchors a dialogue. It has exactly one AgentID and is
// owned by one actor; Messages point back at it by identifier only.
type Conversation struct {
	Identifier identifier.Identifier `json:"id"`
	AgentID    string                `json:"agent_id"`
	Actor      string                `json:"actor"`
	CreatedAt  time.Time             `json:"created_at"`
}

func (c *Conversation) ID() identifier.Identifier { return c.Identifier }
func (c *Conversation) Content() string           { return "" }
func (c *Conversation) Tokens() int                { return 0 }

// Message is one turn item. Assistant messages may carry ToolCalls.
type Message struct {
	Identifier identifier.Identifier `json:"id"`
	Role       Role                  `json:"role"`
	Text       string                `json:"content"`
	ToolCalls  []ToolCall            `json:"tool_calls,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

func (m *Message) ID() identifier.Identifier { return m.Identifier }
func (m *Message) Content() string           { return m.Text }
func (m *Message) Tokens() int                { return tokenizer.Count(m.Text) }

// ToolCallMessage is a tool result. ToolCallID links back to the owning
// assistant message's tool_call entry.
type ToolCallMessage struct {
	Identifier identifier.Identifier `json:"id"`
	ToolCallID string                `json:"tool_call_id"`
	Text       string                `json:"content"`
	IsError    bool                  `json:"is_error,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

func (t *ToolCallMessage) ID() identifier.Identifier { return t.Identifier }
func (t *ToolCallMessage) Content() string           { return t.Text }
func (t *ToolCallMessage) Tokens() int                { return tokenizer.Count(t.Text) }

// ToolFunction is a declared tool the model may call. Schema is the
// JSON-schema input shape before normalization by MemoryWindow.
type ToolFunction struct {
	Identifier  identifier.Identifier `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Schema      json.RawMessage       `json:"schema,omitempty"`
}

func (f *ToolFunction) ID() identifier.Identifier { return f.Identifier }
func (f *ToolFunction) Content() string           { return f.Description }
func (f *ToolFunction) Tokens() int                { return tokenizer.Count(f.Description) }
