package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/internal/observability"
)

// logReaderRestartDelay is the short pause before re-piping a dead log
// reader goroutine, avoiding tight respawn storms (spec §4.7/§5).
const logReaderRestartDelay = 100 * time.Millisecond

// LongrunSpec describes one supervised longrun and its log destination.
type LongrunSpec struct {
	Name            string
	Command         string
	LogDir          string
	MinRestartDelay time.Duration
	MaxRestartDelay time.Duration
}

type processEntry struct {
	longrun      *LongrunProcess
	stdoutWriter *LogWriter
	stderrWriter *LogWriter
	stdoutPipeW  *io.PipeWriter
	stderrPipeW  *io.PipeWriter
}

// SupervisionTree holds one entry per supervised name: its
// LongrunProcess plus a separately supervised log writer for stdout and
// stderr each, connected by long-lived pipes (spec §4.7).
type SupervisionTree struct {
	mu      sync.Mutex
	entries map[string]*processEntry

	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewSupervisionTree returns an empty tree. metrics and logger are
// optional; either may be nil.
func NewSupervisionTree(metrics *observability.Metrics, logger *observability.Logger) *SupervisionTree {
	return &SupervisionTree{entries: make(map[string]*processEntry), metrics: metrics, logger: logger}
}

// StartLongrun wires a LogWriter for stdout and stderr, pipes the
// longrun's output into them, and starts it.
func (t *SupervisionTree) StartLongrun(ctx context.Context, spec LongrunSpec) error {
	stdoutWriter, err := NewLogWriter(LogWriterConfig{Dir: filepath.Join(spec.LogDir, "out")})
	if err != nil {
		return fmt.Errorf("supervisor: stdout log writer for %s: %w", spec.Name, err)
	}
	stderrWriter, err := NewLogWriter(LogWriterConfig{Dir: filepath.Join(spec.LogDir, "err")})
	if err != nil {
		stdoutWriter.Close()
		return fmt.Errorf("supervisor: stderr log writer for %s: %w", spec.Name, err)
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	longrun := NewLongrunProcess(LongrunConfig{
		Name:            spec.Name,
		Command:         spec.Command,
		Stdout:          stdoutW,
		Stderr:          stderrW,
		MinRestartDelay: spec.MinRestartDelay,
		MaxRestartDelay: spec.MaxRestartDelay,
		OnEvent:         t.onEvent,
	})

	t.mu.Lock()
	t.entries[spec.Name] = &processEntry{
		longrun:      longrun,
		stdoutWriter: stdoutWriter,
		stderrWriter: stderrWriter,
		stdoutPipeW:  stdoutW,
		stderrPipeW:  stderrW,
	}
	t.mu.Unlock()

	t.superviseReader(spec.Name, "stdout", stdoutR, stdoutWriter)
	t.superviseReader(spec.Name, "stderr", stderrR, stderrWriter)

	longrun.Start(ctx)
	return nil
}

// superviseReader runs a line reader over r into w, restarting it after
// logReaderRestartDelay if it panics — the "log writer dies, the tree
// respawns it after a short delay and re-pipes; the longrun is
// unaffected" behavior from spec §4.7, adapted to an in-process reader
// since this port has no separate logger subprocess.
func (t *SupervisionTree) superviseReader(name, stream string, r io.Reader, w *LogWriter) {
	go func() {
		for {
			if t.runReader(name, stream, r, w) {
				return
			}
			time.Sleep(logReaderRestartDelay)
		}
	}()
}

func (t *SupervisionTree) runReader(name, stream string, r io.Reader, w *LogWriter) (done bool) {
	defer func() {
		if rec := recover(); rec != nil {
			if t.logger != nil {
				t.logger.Error(context.Background(), "log reader panicked", fmt.Errorf("%v", rec),
					map[string]any{"process": name, "stream": stream})
			}
			done = false
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		w.Write(scanner.Text())
	}
	return true
}

func (t *SupervisionTree) onEvent(ev Event) {
	if t.logger != nil {
		t.logger.Info(context.Background(), "process state change", map[string]any{
			"process": ev.Name, "state": string(ev.State), "delay_ms": ev.Delay.Milliseconds(),
		})
	}
	if t.metrics != nil {
		t.metrics.SetProcessRunning(ev.Name, ev.State == StateUp)
		if ev.State == StateBackoff {
			t.metrics.RecordProcessRestart(ev.Name)
		}
	}
}

// Stop clears the named longrun's want-up latch and closes its log
// writers once it exits.
func (t *SupervisionTree) Stop(name string, timeout time.Duration) error {
	t.mu.Lock()
	entry, ok := t.entries[name]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("supervisor: unknown process %q", name)
	}

	err := entry.longrun.Stop(timeout)

	// Closing the pipe writers unblocks the stdout/stderr reader
	// goroutines (scanner.Scan returns on EOF) before the log writers
	// they feed are torn down.
	entry.stdoutPipeW.Close()
	entry.stderrPipeW.Close()
	entry.stdoutWriter.Close()
	entry.stderrWriter.Close()
	return err
}

// Record returns the named process's current state, if present.
func (t *SupervisionTree) Record(name string) (ProcessRecord, bool) {
	t.mu.Lock()
	entry, ok := t.entries[name]
	t.mu.Unlock()
	if !ok {
		return ProcessRecord{}, false
	}
	return entry.longrun.Record(), true
}

// RunOneshot runs spec to completion, recording its outcome in metrics
// when configured.
func (t *SupervisionTree) RunOneshot(ctx context.Context, spec OneshotSpec) (OneshotResult, error) {
	result, err := RunOneshot(ctx, spec)
	if t.metrics != nil {
		status := "success"
		if err != nil || result.Code != 0 {
			status = "error"
		}
		t.metrics.RecordOneshotRun(spec.Name, status)
	}
	return result, err
}
