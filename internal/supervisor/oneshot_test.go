package supervisor

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunOneshotCleanExit(t *testing.T) {
	var out bytes.Buffer
	result, err := RunOneshot(context.Background(), OneshotSpec{
		Name:    "greet",
		Command: "echo hello",
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("RunOneshot: %v", err)
	}
	if result.Code != 0 {
		t.Errorf("Code = %d, want 0", result.Code)
	}
	if result.Signal != "" {
		t.Errorf("Signal = %q, want empty", result.Signal)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("stdout = %q, want hello", got)
	}
}

func TestRunOneshotNonZeroExit(t *testing.T) {
	result, err := RunOneshot(context.Background(), OneshotSpec{
		Name:    "fail",
		Command: "exit 17",
	})
	if err != nil {
		t.Fatalf("RunOneshot: %v", err)
	}
	if result.Code != 17 {
		t.Errorf("Code = %d, want 17", result.Code)
	}
}

func TestRunOneshotSignaled(t *testing.T) {
	result, err := RunOneshot(context.Background(), OneshotSpec{
		Name:    "selfkill",
		Command: "kill -TERM $$; sleep 1",
	})
	if err != nil {
		t.Fatalf("RunOneshot: %v", err)
	}
	if result.Signal == "" {
		t.Errorf("Signal = %q, want a terminating signal name", result.Signal)
	}
}
