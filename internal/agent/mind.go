package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/index"
	"github.com/haasonsaas/nexus/pkg/identifier"
	"github.com/haasonsaas/nexus/pkg/resource"
)

// NoUserMessageError reports that setupConversation could not find a
// user message in the incoming request (spec §4.6, "fatal if none").
type NoUserMessageError struct{}

func (e *NoUserMessageError) Error() string {
	return "agent: request has no user message to anchor a conversation turn"
}

// Request is one inbound turn AgentMind processes: an optional existing
// conversation, the configured agent, and the new messages the caller
// is appending (only the most recent user message is used to anchor the
// turn, per spec §4.6).
type Request struct {
	ResourceID string // existing conversation identifier string, if any
	AgentID    string
	Actor      string
	Messages   []resource.Message
	LLMToken   string
	Model      string
}

// SetupResult is setupConversation's return value.
type SetupResult struct {
	Conversation *resource.Conversation
	Message      *resource.Message
}

// Mind sets up conversations and drives one turn through Hands (spec §4.6).
type Mind struct {
	Resources *index.ResourceIndex
	Hands     *Hands
}

// NewMind returns a Mind persisting through resources and dispatching
// tool loops through hands.
func NewMind(resources *index.ResourceIndex, hands *Hands) *Mind {
	return &Mind{Resources: resources, Hands: hands}
}

// setupConversation implements spec §4.6: fetch or create the
// conversation, locate the most recent user message in req.Messages,
// attach it as the conversation's child, and persist it.
func (m *Mind) setupConversation(ctx context.Context, req Request) (*SetupResult, error) {
	conv, err := m.loadOrCreateConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	userMsg := mostRecentUserMessage(req.Messages)
	if userMsg == nil {
		return nil, &NoUserMessageError{}
	}

	child := *userMsg
	child.Identifier = conv.Identifier.Child("message", uuid.NewString())
	if child.CreatedAt.IsZero() {
		child.CreatedAt = time.Now()
	}
	child.Identifier = resource.WithIdentifier(&child)

	if err := m.Resources.Add(ctx, &child); err != nil {
		return nil, fmt.Errorf("agent: persist user message: %w", err)
	}

	return &SetupResult{Conversation: conv, Message: &child}, nil
}

func (m *Mind) loadOrCreateConversation(ctx context.Context, req Request) (*resource.Conversation, error) {
	if req.ResourceID != "" {
		found, err := m.Resources.Get(ctx, []string{req.ResourceID})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("agent: conversation not found: %s", req.ResourceID)
		}
		conv, ok := found[0].(*resource.Conversation)
		if !ok {
			return nil, fmt.Errorf("agent: resource %s is not a conversation", req.ResourceID)
		}
		return conv, nil
	}

	agentID, err := identifier.Parse(req.AgentID)
	if err != nil {
		return nil, fmt.Errorf("agent: invalid agent id %q: %w", req.AgentID, err)
	}
	conv := &resource.Conversation{
		Identifier: agentID.Child("conversation", uuid.NewString()),
		AgentID:    req.AgentID,
		Actor:      req.Actor,
		CreatedAt:  time.Now(),
	}
	if err := m.Resources.Add(ctx, conv); err != nil {
		return nil, fmt.Errorf("agent: create conversation: %w", err)
	}
	return conv, nil
}

func mostRecentUserMessage(messages []resource.Message) *resource.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == resource.RoleUser {
			m := messages[i]
			return &m
		}
	}
	return nil
}

// Process implements spec §4.6's process(req): setupConversation, append
// the user message's identifier as the turn's first memory write, then
// invoke Hands.ExecuteToolLoop. onProgress suppresses emission for
// ToolCallMessage entries since tool chatter is not client-facing.
func (m *Mind) Process(ctx context.Context, req Request, memory *index.MemoryIndex, onProgress func(resource.Resource)) (*SetupResult, error) {
	setup, err := m.setupConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := memory.Add(ctx, setup.Message.Identifier); err != nil {
		return nil, fmt.Errorf("agent: append user message to memory: %w", err)
	}

	save := func(ctx context.Context, messages []resource.Resource) error {
		return m.saveToServer(ctx, memory, messages)
	}
	stream := func(message resource.Resource) {
		if onProgress == nil {
			return
		}
		if _, isTool := message.(*resource.ToolCallMessage); isTool {
			return
		}
		onProgress(message)
	}

	if err := m.Hands.ExecuteToolLoop(ctx, setup.Conversation.Identifier.String(), save, stream, req.LLMToken, req.Model); err != nil {
		return nil, err
	}
	return setup, nil
}

// saveToServer implements the atomic batch write Hands depends on:
// parallel ResourceIndex writes, then one ordered MemoryIndex append
// carrying the batch's identifiers in conversation order (spec §4.5/§5).
func (m *Mind) saveToServer(ctx context.Context, memory *index.MemoryIndex, messages []resource.Resource) error {
	type writeErr struct {
		err error
	}
	errs := make(chan writeErr, len(messages))
	for _, msg := range messages {
		go func(r resource.Resource) {
			errs <- writeErr{err: m.Resources.Add(ctx, r)}
		}(msg)
	}
	var firstErr error
	for range messages {
		if e := <-errs; e.err != nil && firstErr == nil {
			firstErr = e.err
		}
	}
	if firstErr != nil {
		return firstErr
	}

	ids := make([]identifier.Identifier, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID()
	}
	return memory.AddBatch(ctx, ids)
}
