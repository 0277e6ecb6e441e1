package observability

import (
	"context"
	"time"

	"github.com/haasonsaas/nexus/internal/index"
)

// SpanRecorder persists application-level CLIENT/SERVER span pairs into
// a TraceIndex (spec §4.8, "TraceIndex + Tracer + TraceVisualizer").
// The OTel Tracer above drives distributed-tracing export; this is the
// parallel, lightweight record the runtime's own TraceVisualizer reads
// back, since extracting structured attributes from an already-ended
// OTel SDK span requires the exporter pipeline rather than a public
// read API.
type SpanRecorder struct {
	traces *index.TraceIndex
}

// NewSpanRecorder returns a SpanRecorder writing into traces.
func NewSpanRecorder(traces *index.TraceIndex) *SpanRecorder {
	return &SpanRecorder{traces: traces}
}

// RecordClient persists a CLIENT span for an outgoing call.
func (r *SpanRecorder) RecordClient(ctx context.Context, spanID, traceID, parentSpanID, participant, name, resourceID string, start, end time.Time, attrs map[string]any) error {
	return r.traces.Add(ctx, index.Span{
		SpanIDField:  spanID,
		TraceID:      traceID,
		ParentSpanID: parentSpanID,
		Kind:         index.SpanKindClient,
		Name:         name,
		Participant:  participant,
		ResourceID:   resourceID,
		StartTime:    start,
		EndTime:      end,
		Status:       index.SpanStatusOK,
		Events:       []index.SpanEvent{{Name: "before-send", Time: start, Attributes: attrs}},
	})
}

// RecordServer persists the mirror SERVER span for an incoming handler.
func (r *SpanRecorder) RecordServer(ctx context.Context, spanID, traceID, parentSpanID, participant, name, resourceID string, start, end time.Time, status index.SpanStatus, statusMessage string, attrs map[string]any) error {
	return r.traces.Add(ctx, index.Span{
		SpanIDField:   spanID,
		TraceID:       traceID,
		ParentSpanID:  parentSpanID,
		Kind:          index.SpanKindServer,
		Name:          name,
		Participant:   participant,
		ResourceID:    resourceID,
		StartTime:     start,
		EndTime:       end,
		Status:        status,
		StatusMessage: statusMessage,
		Events:        []index.SpanEvent{{Name: "after-receive", Time: end, Attributes: attrs}},
	})
}
