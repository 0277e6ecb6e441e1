package index

import (
	"context"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/objectstore"
)

// SpanKind discriminates a Span's role in an RPC pair (spec §4.8).
type SpanKind string

const (
	SpanKindClient SpanKind = "CLIENT"
	SpanKindServer SpanKind = "SERVER"
)

// SpanStatus is the outcome recorded on a SERVER span's close.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

// SpanEvent is one timestamped annotation on a Span (before-send,
// after-receive, …), carrying the extractAttributes projection of the
// associated request or response.
type SpanEvent struct {
	Name       string         `json:"name"`
	Time       time.Time      `json:"time"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Span is the JSONL record TraceIndex persists (spec §6, "a serialized
// Span").
type Span struct {
	SpanIDField   string     `json:"span_id"`
	TraceID       string     `json:"trace_id"`
	ParentSpanID  string     `json:"parent_span_id,omitempty"`
	Kind          SpanKind   `json:"kind"`
	Name          string     `json:"name"`
	Participant   string     `json:"participant"`
	ResourceID    string     `json:"resource_id,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time,omitempty"`
	Status        SpanStatus `json:"status,omitempty"`
	StatusMessage string     `json:"status_message,omitempty"`
	Events        []SpanEvent `json:"events,omitempty"`
	Tokens        int        `json:"tokens,omitempty"`
}

func (s Span) RecordID() string { return s.SpanIDField }

func (s Span) RecordTokens() (int, bool) { return s.Tokens, true }

func (s Span) MatchesPrefix(prefix string) bool { return strings.HasPrefix(s.SpanIDField, prefix) }

// TraceQuery extends Filter with the two trace-specific restrictions
// spec §4.8 names.
type TraceQuery struct {
	Filter
	TraceID    string
	ResourceID string
}

// TraceIndex stores spans keyed by span_id (spec §4.1, §4.8).
type TraceIndex struct {
	base *IndexBase[Span]
}

// NewTraceIndex returns a TraceIndex persisted at indexKey.
func NewTraceIndex(store objectstore.Store, indexKey string) *TraceIndex {
	return &TraceIndex{base: New[Span](store, indexKey, nil)}
}

// Add persists span.
func (ti *TraceIndex) Add(ctx context.Context, span Span) error {
	return ti.base.Add(ctx, span)
}

// FindAll returns every surviving span.
func (ti *TraceIndex) FindAll(ctx context.Context) ([]Span, error) {
	return ti.base.FindAll(ctx)
}

// QueryItems applies q: first the TraceID/ResourceID trace-completion
// extensions, then the inherited Filter (prefix/limit/max_tokens).
func (ti *TraceIndex) QueryItems(ctx context.Context, q TraceQuery) ([]Span, error) {
	all, err := ti.base.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case q.TraceID != "" && q.ResourceID != "":
		traceIDs := tracesContaining(all, q.ResourceID)
		all = filterSpans(all, func(s Span) bool {
			return s.TraceID == q.TraceID && traceIDs[s.TraceID]
		})
	case q.ResourceID != "":
		traceIDs := tracesContaining(all, q.ResourceID)
		all = filterSpans(all, func(s Span) bool { return traceIDs[s.TraceID] })
	case q.TraceID != "":
		all = filterSpans(all, func(s Span) bool { return s.TraceID == q.TraceID })
	}

	return applyFilter(all, q.Filter)
}

func tracesContaining(spans []Span, resourceID string) map[string]bool {
	traces := map[string]bool{}
	for _, s := range spans {
		if s.ResourceID == resourceID {
			traces[s.TraceID] = true
		}
	}
	return traces
}

func filterSpans(spans []Span, keep func(Span) bool) []Span {
	out := spans[:0:0]
	for _, s := range spans {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// applyFilter reapplies the generic prefix/limit/max_tokens filter over
// a span slice that TraceIndex has already restricted with its own
// trace-level filters.
func applyFilter(spans []Span, f Filter) ([]Span, error) {
	if f.Prefix != "" {
		spans = filterSpans(spans, func(s Span) bool { return s.MatchesPrefix(f.Prefix) })
	}
	if f.Limit > 0 && len(spans) > f.Limit {
		spans = spans[:f.Limit]
	}
	if f.MaxTokens > 0 {
		var sum int
		out := spans[:0:0]
		for _, s := range spans {
			tokens, _ := s.RecordTokens()
			if sum+tokens > f.MaxTokens {
				break
			}
			sum += tokens
			out = append(out, s)
		}
		spans = out
	}
	return spans, nil
}
