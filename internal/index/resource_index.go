package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/nexus/internal/objectstore"
	"github.com/haasonsaas/nexus/pkg/resource"
)

// ResourceRecord is the JSONL envelope ResourceIndex persists: the full
// serialized resource plus the discriminator needed to hydrate it back
// into the right Go type (spec §6, "ResourceIndex: a serialized entity
// with an id field").
type ResourceRecord struct {
	IDField     string          `json:"id"`
	Kind        resource.Kind   `json:"kind"`
	TokensField int             `json:"tokens"`
	Payload     json.RawMessage `json:"payload"`
}

func (r ResourceRecord) RecordID() string { return r.IDField }

func (r ResourceRecord) RecordTokens() (int, bool) { return r.TokensField, true }

func (r ResourceRecord) MatchesPrefix(prefix string) bool {
	return strings.HasPrefix(r.IDField, prefix)
}

// Hydrate decodes r.Payload back into its concrete resource type.
func (r ResourceRecord) Hydrate() (resource.Resource, error) {
	switch r.Kind {
	case resource.KindAgent:
		var v resource.Agent
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case resource.KindConversation:
		var v resource.Conversation
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case resource.KindMessage:
		var v resource.Message
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case resource.KindToolCallMessage:
		var v resource.ToolCallMessage
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case resource.KindToolFunction:
		var v resource.ToolFunction
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("index: unknown resource kind %q", r.Kind)
	}
}

// ResourceIndex is the authoritative read path for hydration: it stores
// full serialized entities keyed by identifier string (spec §4.1).
type ResourceIndex struct {
	base *IndexBase[ResourceRecord]
}

// NewResourceIndex returns a ResourceIndex persisted at indexKey.
func NewResourceIndex(store objectstore.Store, indexKey string) *ResourceIndex {
	return &ResourceIndex{base: New[ResourceRecord](store, indexKey, nil)}
}

func recordKind(r resource.Resource) (resource.Kind, error) {
	switch r.(type) {
	case *resource.Agent:
		return resource.KindAgent, nil
	case *resource.Conversation:
		return resource.KindConversation, nil
	case *resource.Message:
		return resource.KindMessage, nil
	case *resource.ToolCallMessage:
		return resource.KindToolCallMessage, nil
	case *resource.ToolFunction:
		return resource.KindToolFunction, nil
	default:
		return "", fmt.Errorf("index: unsupported resource type %T", r)
	}
}

// Add persists r, recording its tagged kind for later hydration.
func (ri *ResourceIndex) Add(ctx context.Context, r resource.Resource) error {
	kind, err := recordKind(r)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("index: marshal resource: %w", err)
	}
	rec := ResourceRecord{
		IDField:     r.ID().String(),
		Kind:        kind,
		TokensField: r.Tokens(),
		Payload:     payload,
	}
	return ri.base.Add(ctx, rec)
}

// Has reports whether a resource with id is present.
func (ri *ResourceIndex) Has(ctx context.Context, id string) (bool, error) {
	return ri.base.Has(ctx, id)
}

// Get hydrates the resources for ids, in order, silently dropping
// missing ids.
func (ri *ResourceIndex) Get(ctx context.Context, ids []string) ([]resource.Resource, error) {
	recs, err := ri.base.Get(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]resource.Resource, 0, len(recs))
	for _, rec := range recs {
		v, err := rec.Hydrate()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindAll hydrates every surviving resource in append order.
func (ri *ResourceIndex) FindAll(ctx context.Context) ([]resource.Resource, error) {
	recs, err := ri.base.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]resource.Resource, 0, len(recs))
	for _, rec := range recs {
		v, err := rec.Hydrate()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// QueryItems applies f and hydrates the surviving records.
func (ri *ResourceIndex) QueryItems(ctx context.Context, f Filter) ([]resource.Resource, error) {
	recs, err := ri.base.QueryItems(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]resource.Resource, 0, len(recs))
	for _, rec := range recs {
		v, err := rec.Hydrate()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
