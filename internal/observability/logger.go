package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger emits RFC 5424-shaped single-line records (spec §4.9):
// "LEVEL ts domain appId procId msgIdNNN [k=\"v\" ...] message". It
// wraps slog.Logger the way the teacher's internal/observability
// logging.go does (a thin domain-aware facade over a handler), but
// swaps slog's default JSON/text handlers for a handler emitting the
// fixed RFC 5424 shape instead.
type Logger struct {
	domain string
	appID  string
	procID string
	debug  bool
	slog   *slog.Logger
	seq    *atomic.Uint64
}

// Config configures a Logger's identity and DEBUG-gating.
type Config struct {
	Domain string
	AppID  string
	Writer io.Writer // defaults to os.Stderr
}

// debugPatterns is read once per logger at construction (spec §9,
// "global registries... replace with explicit logger/observer values";
// DEBUG is read once per logger, not globally re-polled).
func debugPatterns() []string {
	raw := os.Getenv("DEBUG")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func domainEnabled(domain string, patterns []string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(domain, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if p == domain {
			return true
		}
	}
	return false
}

// NewLogger returns a Logger for cfg.Domain, with debug output gated by
// the DEBUG environment variable read at construction time.
func NewLogger(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	appID := cfg.AppID
	if appID == "" {
		appID = "nexus"
	}

	var seq atomic.Uint64
	return &Logger{
		domain: cfg.Domain,
		appID:  appID,
		procID: strconv.Itoa(os.Getpid()),
		debug:  domainEnabled(cfg.Domain, debugPatterns()),
		slog:   slog.New(newRFC5424Handler(w)),
		seq:    &seq,
	}
}

// WithDomain returns a copy of l scoped to a child domain, with debug
// gating re-evaluated for that domain against DEBUG as read at the time
// of this call.
func (l *Logger) WithDomain(domain string) *Logger {
	cp := *l
	cp.domain = domain
	cp.debug = domainEnabled(domain, debugPatterns())
	return &cp
}

func (l *Logger) nextMsgID() string {
	return fmt.Sprintf("msgId%04d", l.seq.Add(1))
}

func (l *Logger) emit(ctx context.Context, level slog.Level, msg string, fields map[string]any) {
	attrs := make([]any, 0, len(fields)*2+8)
	attrs = append(attrs,
		"domain", l.domain,
		"app_id", l.appID,
		"proc_id", l.procID,
		"msg_id", l.nextMsgID(),
	)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, fields[k])
	}

	l.slog.Log(ctx, level, msg, attrs...)
}

// Debug emits msg only when the logger's domain is enabled via DEBUG.
func (l *Logger) Debug(ctx context.Context, msg string, fields map[string]any) {
	if !l.debug {
		return
	}
	l.emit(ctx, slog.LevelDebug, msg, fields)
}

// Info always emits.
func (l *Logger) Info(ctx context.Context, msg string, fields map[string]any) {
	l.emit(ctx, slog.LevelInfo, msg, fields)
}

// tracedError is satisfied by errors the tracer decorates with
// trace-context side-channel fields (spec §7, "Errors that pass
// through the tracer carry trace context as side-channel fields").
type tracedError interface {
	error
	TraceFields() map[string]string
}

func mergeTraceFields(fields map[string]any, err error) map[string]any {
	te, ok := err.(tracedError)
	if !ok {
		return fields
	}
	merged := make(map[string]any, len(fields)+len(te.TraceFields()))
	for k, v := range fields {
		merged[k] = v
	}
	for k, v := range te.TraceFields() {
		merged[k] = v
	}
	return merged
}

// Error always emits, merging trace_id/span_id/service_name from err
// when present.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields map[string]any) {
	merged := mergeTraceFields(fields, err)
	if merged == nil {
		merged = map[string]any{}
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	l.emit(ctx, slog.LevelError, msg, merged)
}

// Exception always emits and, when debug is enabled for this logger's
// domain, appends the current stack trace.
func (l *Logger) Exception(ctx context.Context, msg string, err error, fields map[string]any) {
	merged := mergeTraceFields(fields, err)
	if merged == nil {
		merged = map[string]any{}
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	if l.debug {
		merged["stack"] = string(debug.Stack())
	}
	l.emit(ctx, slog.LevelError, msg, merged)
}

// rfc5424Handler renders records in the fixed "LEVEL ts domain appId
// procId msgIdNNN [k=\"v\" ...] message" shape instead of slog's
// built-in JSON/text encodings.
type rfc5424Handler struct {
	mu sync.Mutex
	w  io.Writer
}

func newRFC5424Handler(w io.Writer) *rfc5424Handler { return &rfc5424Handler{w: w} }

func (h *rfc5424Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *rfc5424Handler) Handle(_ context.Context, r slog.Record) error {
	var domain, appID, procID, msgID string
	var rest []string

	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "domain":
			domain = a.Value.String()
		case "app_id":
			appID = a.Value.String()
		case "proc_id":
			procID = a.Value.String()
		case "msg_id":
			msgID = a.Value.String()
		default:
			rest = append(rest, fmt.Sprintf("%s=%q", a.Key, a.Value.String()))
		}
		return true
	})

	level := strings.ToUpper(r.Level.String())
	ts := r.Time.UTC().Format(time.RFC3339Nano)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s %s %s", level, ts, domain, appID, procID, msgID)
	if len(rest) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(rest, " "))
		b.WriteString("]")
	}
	fmt.Fprintf(&b, " %s\n", r.Message)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *rfc5424Handler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *rfc5424Handler) WithGroup(name string) slog.Handler { return h }
