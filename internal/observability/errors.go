package observability

import "context"

// TracedError decorates an error with trace_id/span_id/service_name
// side-channel fields without altering its original message (spec §7,
// "Errors that pass through the tracer carry trace context as
// side-channel fields for the logger").
type TracedError struct {
	Err         error
	TraceID     string
	SpanID      string
	ServiceName string
}

// WrapWithTrace decorates err with the trace context carried on ctx via
// GetTraceID/GetSpanID, a no-op if err is nil.
func WrapWithTrace(ctx context.Context, err error, serviceName string) error {
	if err == nil {
		return nil
	}
	return &TracedError{
		Err:         err,
		TraceID:     GetTraceID(ctx),
		SpanID:      GetSpanID(ctx),
		ServiceName: serviceName,
	}
}

func (e *TracedError) Error() string { return e.Err.Error() }

func (e *TracedError) Unwrap() error { return e.Err }

// TraceFields implements the tracedError interface Logger.Error and
// Logger.Exception use to merge trace context into structured fields.
func (e *TracedError) TraceFields() map[string]string {
	return map[string]string{
		"trace_id":     e.TraceID,
		"span_id":      e.SpanID,
		"service_name": e.ServiceName,
	}
}
