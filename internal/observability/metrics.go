package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics registers process-supervision, tool-execution and LLM-request
// collectors on Prometheus's default registry (grounded on the teacher's
// internal/observability/metrics.go, scoped down to the subsystems this
// runtime has). SupervisionTree records process state, restarts and
// oneshot runs; nothing in this module calls RecordToolExecution or
// RecordLLMRequest.
type Metrics struct {
	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// LLMRequestDuration measures LLMProvider call latency in seconds.
	// Labels: model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLMProvider calls by model and status.
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption by model and type.
	// Labels: model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ProcessRestarts counts LongrunProcess restarts by process name.
	ProcessRestarts *prometheus.CounterVec

	// ProcessState is a gauge tracking 1 for running, 0 for stopped, per
	// supervised process name.
	ProcessState *prometheus.GaugeVec

	// OneshotRuns counts OneshotProcess runs by name and status
	// (success|error), including cron-triggered runs from §4.7a.
	OneshotRuns *prometheus.CounterVec

	// ErrorCounter tracks errors by component and error type.
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics registers and returns Metrics. Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_tool_executions_total",
				Help: "Total tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_llm_request_duration_seconds",
				Help:    "Duration of LLM provider requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_llm_requests_total",
				Help: "Total LLM provider requests by model and status",
			},
			[]string{"model", "status"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_llm_tokens_total",
				Help: "Total tokens used by model and type",
			},
			[]string{"model", "type"},
		),
		ProcessRestarts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_process_restarts_total",
				Help: "Total supervised process restarts by process name",
			},
			[]string{"process"},
		),
		ProcessState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nexus_process_state",
				Help: "1 if the supervised process is running, 0 otherwise",
			},
			[]string{"process"},
		),
		OneshotRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_oneshot_runs_total",
				Help: "Total oneshot process runs by name and status",
			},
			[]string{"name", "status"},
		),
		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_errors_total",
				Help: "Total errors by component and error type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// RecordToolExecution records a single tool invocation's outcome and
// latency.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordLLMRequest records an LLMProvider call's outcome, latency, and
// token usage.
func (m *Metrics) RecordLLMRequest(model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordProcessRestart increments the restart counter for a supervised
// process.
func (m *Metrics) RecordProcessRestart(process string) {
	m.ProcessRestarts.WithLabelValues(process).Inc()
}

// SetProcessRunning sets the running-state gauge for a supervised process.
func (m *Metrics) SetProcessRunning(process string, running bool) {
	v := 0.0
	if running {
		v = 1.0
	}
	m.ProcessState.WithLabelValues(process).Set(v)
}

// RecordOneshotRun records a OneshotProcess run's outcome.
func (m *Metrics) RecordOneshotRun(name, status string) {
	m.OneshotRuns.WithLabelValues(name, status).Inc()
}

// RecordError increments the error counter for a component/error-type pair.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
