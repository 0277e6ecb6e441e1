package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/index"
)

// participantRank is the fixed architectural order spec §4.8 names for
// Mermaid sequence diagram participants.
var participantRank = []string{"cli", "agent", "memory", "llm", "tool", "graph", "vector"}

// TraceVisualizer renders TraceIndex spans as Mermaid sequence diagrams.
type TraceVisualizer struct{}

// NewTraceVisualizer returns a TraceVisualizer.
func NewTraceVisualizer() *TraceVisualizer { return &TraceVisualizer{} }

func presentParticipants(spans []index.Span) []string {
	present := map[string]bool{}
	for _, s := range spans {
		present[s.Participant] = true
	}
	var ordered []string
	for _, p := range participantRank {
		if present[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func formatAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k]))
	}
	return strings.Join(parts, ", ")
}

func eventAttrs(s index.Span) map[string]any {
	if len(s.Events) == 0 {
		return nil
	}
	return s.Events[0].Attributes
}

// spanPair is a CLIENT span matched with the SERVER span whose
// parent_span_id is the client's span_id; hasSrv is false when the
// SERVER half hasn't arrived yet.
type spanPair struct {
	client index.Span
	server index.Span
	hasSrv bool
}

// Render builds a single Mermaid sequenceDiagram from spans, pairing
// each CLIENT span with the SERVER span parented under it (SERVER
// parent_span_id equal to the CLIENT span_id) and emitting a forward
// arrow and, when the SERVER half is present, a return arrow per pair.
// Pairs are ordered by CLIENT start time, ties broken by span_id; each
// return arrow directly follows its own forward arrow, so the arrows of
// nested calls are not interleaved by end time.
func (v *TraceVisualizer) Render(spans []index.Span) string {
	clients := map[string]index.Span{}
	servers := map[string]index.Span{}
	for _, s := range spans {
		switch s.Kind {
		case index.SpanKindClient:
			clients[s.SpanIDField] = s
		case index.SpanKindServer:
			servers[s.ParentSpanID] = s
		}
	}

	var pairs []spanPair
	for id, c := range clients {
		if srv, ok := servers[id]; ok {
			pairs = append(pairs, spanPair{client: c, server: srv, hasSrv: true})
		} else {
			pairs = append(pairs, spanPair{client: c})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ti, tj := pairs[i].client.StartTime, pairs[j].client.StartTime
		if ti.Equal(tj) {
			return pairs[i].client.SpanIDField < pairs[j].client.SpanIDField
		}
		return ti.Before(tj)
	})

	var b strings.Builder
	b.WriteString("sequenceDiagram\n")
	for _, p := range presentParticipants(allSpansOf(pairs)) {
		fmt.Fprintf(&b, "  participant %s\n", p)
	}

	for _, p := range pairs {
		from, to := p.client.Participant, resolveTarget(p)
		reqAttrs := formatAttrs(eventAttrs(p.client))
		label := p.client.Name
		if reqAttrs != "" {
			label = fmt.Sprintf("%s (time=%s, %s)", label, iso(p.client.StartTime), reqAttrs)
		} else {
			label = fmt.Sprintf("%s (time=%s)", label, iso(p.client.StartTime))
		}
		fmt.Fprintf(&b, "  %s->>+%s: %s\n", from, to, label)

		if !p.hasSrv {
			continue
		}
		respLabel := string(p.server.Status)
		if p.server.Status == index.SpanStatusError && p.server.StatusMessage != "" {
			respLabel = fmt.Sprintf("%s (%s)", respLabel, p.server.StatusMessage)
		} else if attrs := formatAttrs(eventAttrs(p.server)); attrs != "" {
			respLabel = fmt.Sprintf("%s (%s)", respLabel, attrs)
		}
		fmt.Fprintf(&b, "  %s-->>-%s: %s\n", to, from, respLabel)
	}

	return b.String()
}

func resolveTarget(p spanPair) string {
	if p.hasSrv {
		return p.server.Participant
	}
	return p.client.Participant
}

func allSpansOf(pairs []spanPair) []index.Span {
	var out []index.Span
	for _, p := range pairs {
		out = append(out, p.client)
		if p.hasSrv {
			out = append(out, p.server)
		}
	}
	return out
}

func iso(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// RenderByResource combines every trace containing resourceID into one
// diagram, separated by "Note over agent: Trace: <id>" blocks (spec
// §4.8).
func (v *TraceVisualizer) RenderByResource(resourceID string, tracesInOrder map[string][]index.Span, traceOrder []string) string {
	var b strings.Builder
	b.WriteString("sequenceDiagram\n")
	b.WriteString("  participant agent\n")
	for i, traceID := range traceOrder {
		fmt.Fprintf(&b, "  Note over agent: Trace: %s\n", traceID)
		body := v.Render(tracesInOrder[traceID])
		lines := strings.SplitN(body, "\n", 2)
		if len(lines) == 2 {
			b.WriteString(lines[1])
		}
		if i < len(traceOrder)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
