package index

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/objectstore"
	"github.com/haasonsaas/nexus/pkg/identifier"
	"github.com/haasonsaas/nexus/pkg/resource"
)

func TestResourceIndexRoundTripsAgentAndMessage(t *testing.T) {
	ctx := context.Background()
	ri := NewResourceIndex(objectstore.NewMemoryStore(), "resources.jsonl")

	agentID := identifier.New("agent", "triage", "")
	agent := &resource.Agent{Identifier: agentID, Name: "triage", SystemPrompt: "You triage tickets."}
	if err := ri.Add(ctx, agent); err != nil {
		t.Fatalf("Add agent: %v", err)
	}

	msgID := agentID.Child("message", "m1")
	msg := &resource.Message{Identifier: msgID, Role: resource.RoleUser, Text: "hello"}
	if err := ri.Add(ctx, msg); err != nil {
		t.Fatalf("Add message: %v", err)
	}

	got, err := ri.Get(ctx, []string{agentID.String(), msgID.String()})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Get returned %d resources, want 2", len(got))
	}

	gotAgent, ok := got[0].(*resource.Agent)
	if !ok || gotAgent.Name != "triage" {
		t.Errorf("got[0] = %+v, want hydrated Agent", got[0])
	}
	gotMsg, ok := got[1].(*resource.Message)
	if !ok || gotMsg.Text != "hello" {
		t.Errorf("got[1] = %+v, want hydrated Message", got[1])
	}
}

func TestResourceIndexLatestWins(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	ri := NewResourceIndex(store, "resources.jsonl")

	id := identifier.New("message", "m1", "")
	if err := ri.Add(ctx, &resource.Message{Identifier: id, Text: "v1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ri.Add(ctx, &resource.Message{Identifier: id, Text: "v2"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reloaded := NewResourceIndex(store, "resources.jsonl")
	got, err := reloaded.Get(ctx, []string{id.String()})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 || got[0].Content() != "v2" {
		t.Errorf("Get = %+v, want content v2", got)
	}
}
