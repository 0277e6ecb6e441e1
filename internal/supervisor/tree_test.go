package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSupervisionTreeStartLongrunWritesLogsAndStops(t *testing.T) {
	dir := t.TempDir()
	tree := NewSupervisionTree(nil, nil)

	err := tree.StartLongrun(context.Background(), LongrunSpec{
		Name:    "echoer",
		Command: "echo from-longrun; sleep 60",
		LogDir:  dir,
	})
	if err != nil {
		t.Fatalf("StartLongrun: %v", err)
	}

	deadline := time.After(2 * time.Second)
	outPath := filepath.Join(dir, "out", "current")
	for {
		data, readErr := os.ReadFile(outPath)
		if readErr == nil && len(data) > 0 {
			if string(data) != "from-longrun\n" {
				t.Errorf("out/current = %q, want %q", data, "from-longrun\n")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s to be written (last err: %v)", outPath, readErr)
		case <-time.After(10 * time.Millisecond):
		}
	}

	rec, ok := tree.Record("echoer")
	if !ok {
		t.Fatal("Record: not found")
	}
	if rec.State != StateUp {
		t.Errorf("state = %v, want up", rec.State)
	}

	if err := tree.Stop("echoer", 500*time.Millisecond); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	rec, _ = tree.Record("echoer")
	if rec.State != StateDown {
		t.Errorf("state after Stop = %v, want down", rec.State)
	}
}

func TestSupervisionTreeStopUnknownProcess(t *testing.T) {
	tree := NewSupervisionTree(nil, nil)
	if err := tree.Stop("nope", time.Second); err == nil {
		t.Fatal("Stop: expected error for unknown process")
	}
}

func TestSupervisionTreeRunOneshot(t *testing.T) {
	tree := NewSupervisionTree(nil, nil)
	result, err := tree.RunOneshot(context.Background(), OneshotSpec{
		Name:    "setup",
		Command: "exit 0",
	})
	if err != nil {
		t.Fatalf("RunOneshot: %v", err)
	}
	if result.Code != 0 {
		t.Errorf("Code = %d, want 0", result.Code)
	}
}

func TestSupervisionTreeScheduleOneshotAcceptsValidAndRejectsInvalidSpec(t *testing.T) {
	tree := NewSupervisionTree(nil, nil)
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	cancel, err := tree.ScheduleOneshot(context.Background(), "* * * * *", OneshotSpec{
		Name:    "marker",
		Command: "touch " + marker,
	})
	if err != nil {
		t.Fatalf("ScheduleOneshot: %v", err)
	}
	defer cancel()

	if _, parseErr := tree.ScheduleOneshot(context.Background(), "not a cron spec", OneshotSpec{Name: "bad"}); parseErr == nil {
		t.Error("ScheduleOneshot: expected error for invalid cron spec")
	}
}
