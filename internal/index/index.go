// Package index implements the append-only, deduplicated JSONL index
// substrate every resource/memory/graph/trace index is built on, per
// spec §4.1. It generalizes the teacher's internal/artifacts local/S3
// stores (single-object persistence, index reload) into a typed,
// ObjectStore-backed key→record map.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/nexus/internal/objectstore"
)

// Entry is the minimal shape every IndexBase record must expose: a
// dedup key and the token count the budget filter consumes.
type Entry interface {
	RecordID() string
	RecordTokens() (int, bool)
}

// Filter selects a subset of a query over IndexBase.findAll/queryItems.
type Filter struct {
	// Prefix matches against the record's identifier string. Only record
	// types that implement PrefixMatcher can match; when Prefix is set,
	// records of other types are excluded.
	Prefix string
	// Limit truncates the result to the first N entries (in JSONL
	// append order) when > 0.
	Limit int
	// MaxTokens greedily accumulates entries from the front while the
	// running token sum stays <= MaxTokens, when > 0.
	MaxTokens int
}

// PrefixMatcher reports whether an entry's canonical identifier string
// starts with prefix; indices whose records carry an identifier
// implement this to support Filter.Prefix.
type PrefixMatcher interface {
	MatchesPrefix(prefix string) bool
}

// IndexBase is a persistent, append-only, deduplicated key→record map
// over an ObjectStore (spec §4.1). T is the JSONL record shape for one
// specialization (ResourceIndex, MemoryIndex, GraphIndex, TraceIndex).
type IndexBase[T Entry] struct {
	mu       sync.Mutex
	store    objectstore.Store
	key      string
	loaded   bool
	order    []string
	byID     map[string]T
	onLoaded func(T) // replays each deduplicated record on load and each added record; used by GraphIndex
}

// New returns an IndexBase persisted at indexKey within store. onLoaded,
// if non-nil, is invoked once per surviving (latest-wins) record each
// time loadData runs, and once per record passed to Add — GraphIndex
// uses this hook to feed quads into its triple store.
func New[T Entry](store objectstore.Store, indexKey string, onLoaded func(T)) *IndexBase[T] {
	return &IndexBase[T]{
		store:    store,
		key:      indexKey,
		byID:     map[string]T{},
		onLoaded: onLoaded,
	}
}

// loadData reads the backing object once, parsing each JSONL line and
// overwriting any prior in-memory entry sharing the same id
// (latest-wins deduplication). Idempotent after the first call.
func (ix *IndexBase[T]) loadData(ctx context.Context) error {
	if ix.loaded {
		return nil
	}

	raw, err := ix.store.Get(ctx, ix.key)
	if err != nil {
		if _, ok := err.(*objectstore.ErrNotExist); ok {
			ix.loaded = true
			return nil
		}
		return fmt.Errorf("index: load %s: %w", ix.key, err)
	}

	lines := splitLines(raw)
	order := make([]string, 0, len(lines))
	byID := make(map[string]T, len(lines))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("index: parse %s: %w", ix.key, err)
		}
		id := rec.RecordID()
		if _, exists := byID[id]; !exists {
			order = append(order, id)
		}
		byID[id] = rec
	}

	ix.order = order
	ix.byID = byID
	ix.loaded = true

	if ix.onLoaded != nil {
		for _, id := range order {
			ix.onLoaded(byID[id])
		}
	}
	return nil
}

func splitLines(raw []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range raw {
		if b == '\n' {
			lines = append(lines, raw[start:i])
			start = i + 1
		}
	}
	if start < len(raw) {
		lines = append(lines, raw[start:])
	}
	return lines
}

// Add appends item as a new JSONL line and updates the in-memory
// projection, triggering a latest-wins overwrite of any prior entry
// with the same id.
func (ix *IndexBase[T]) Add(ctx context.Context, item T) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.loadData(ctx); err != nil {
		return err
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("index: encode: %w", err)
	}
	if err := ix.store.Append(ctx, ix.key, string(encoded)); err != nil {
		return fmt.Errorf("index: append %s: %w", ix.key, err)
	}

	id := item.RecordID()
	if _, exists := ix.byID[id]; !exists {
		ix.order = append(ix.order, id)
	}
	ix.byID[id] = item

	if ix.onLoaded != nil {
		ix.onLoaded(item)
	}
	return nil
}

// Has reports whether id is present.
func (ix *IndexBase[T]) Has(ctx context.Context, id string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.loadData(ctx); err != nil {
		return false, err
	}
	_, ok := ix.byID[id]
	return ok, nil
}

// Get returns the records for ids, in the same order, silently dropping
// any id that is not present.
func (ix *IndexBase[T]) Get(ctx context.Context, ids []string) ([]T, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.loadData(ctx); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if rec, ok := ix.byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FindAll returns every surviving record in append order.
func (ix *IndexBase[T]) FindAll(ctx context.Context) ([]T, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.loadData(ctx); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id])
	}
	return out, nil
}

// BudgetMissingTokensError reports an entry lacking a tokens field
// during Filter.MaxTokens filtering (spec §7, BudgetMissingTokens).
type BudgetMissingTokensError struct{ ID string }

func (e *BudgetMissingTokensError) Error() string {
	return fmt.Sprintf("index: entry %q has no tokens field, required for max_tokens filter", e.ID)
}

// QueryItems applies f over the index's surviving records, in append
// order: Prefix (requires T implement PrefixMatcher), then Limit, then
// MaxTokens (a greedy from-the-front accumulation).
func (ix *IndexBase[T]) QueryItems(ctx context.Context, f Filter) ([]T, error) {
	all, err := ix.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	if f.Prefix != "" {
		filtered := all[:0:0]
		for _, rec := range all {
			if pm, ok := any(rec).(PrefixMatcher); ok && pm.MatchesPrefix(f.Prefix) {
				filtered = append(filtered, rec)
			}
		}
		all = filtered
	}

	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}

	if f.MaxTokens > 0 {
		var sum int
		out := all[:0:0]
		for _, rec := range all {
			tokens, ok := rec.RecordTokens()
			if !ok {
				return nil, &BudgetMissingTokensError{ID: rec.RecordID()}
			}
			if sum+tokens > f.MaxTokens {
				break
			}
			sum += tokens
			out = append(out, rec)
		}
		all = out
	}

	return all, nil
}
