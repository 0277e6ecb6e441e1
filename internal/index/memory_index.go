package index

import (
	"context"
	"strings"

	"github.com/haasonsaas/nexus/internal/objectstore"
	"github.com/haasonsaas/nexus/pkg/identifier"
)

// MemoryRecord is the JSONL envelope MemoryIndex persists: an identifier
// stub only, not the resource's full content (spec §6, "MemoryIndex:
// {id, identifier} with identifier.tokens: int"). Full content lives in
// ResourceIndex; MemoryWindow's budget filter consumes only Identifier.Tokens.
type MemoryRecord struct {
	IDField    string                `json:"id"`
	Identifier identifier.Identifier `json:"identifier"`
}

func (r MemoryRecord) RecordID() string { return r.IDField }

func (r MemoryRecord) RecordTokens() (int, bool) {
	if r.Identifier.Tokens <= 0 {
		return 0, false
	}
	return r.Identifier.Tokens, true
}

func (r MemoryRecord) MatchesPrefix(prefix string) bool {
	return strings.HasPrefix(r.Identifier.String(), prefix)
}

// MemoryIndex tracks conversation turn order via identifier stubs,
// keyed by the stub's own id but read back in JSONL append order — the
// canonical turn order MemoryWindow.build walks (spec §5).
type MemoryIndex struct {
	base *IndexBase[MemoryRecord]
}

// NewMemoryIndex returns a MemoryIndex persisted at indexKey.
func NewMemoryIndex(store objectstore.Store, indexKey string) *MemoryIndex {
	return &MemoryIndex{base: New[MemoryRecord](store, indexKey, nil)}
}

// Add records id's identifier stub. id.Tokens must already be set by
// the caller (resource.WithIdentifier) before persistence.
func (mi *MemoryIndex) Add(ctx context.Context, id identifier.Identifier) error {
	return mi.base.Add(ctx, MemoryRecord{IDField: id.String(), Identifier: id})
}

// AddBatch appends ids in order as a single ordered pass over the
// backing JSONL object (spec §5, "a single ordered append to the
// MemoryIndex carrying the identifiers in conversation order").
func (mi *MemoryIndex) AddBatch(ctx context.Context, ids []identifier.Identifier) error {
	for _, id := range ids {
		if err := mi.Add(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether id is present.
func (mi *MemoryIndex) Has(ctx context.Context, id string) (bool, error) {
	return mi.base.Has(ctx, id)
}

// FindAll returns every surviving identifier stub in turn order.
func (mi *MemoryIndex) FindAll(ctx context.Context) ([]identifier.Identifier, error) {
	recs, err := mi.base.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]identifier.Identifier, len(recs))
	for i, rec := range recs {
		out[i] = rec.Identifier
	}
	return out, nil
}

// QueryItems applies f and returns the surviving identifier stubs.
func (mi *MemoryIndex) QueryItems(ctx context.Context, f Filter) ([]identifier.Identifier, error) {
	recs, err := mi.base.QueryItems(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]identifier.Identifier, len(recs))
	for i, rec := range recs {
		out[i] = rec.Identifier
	}
	return out, nil
}
