package supervisor

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
)

// OneshotSpec describes an init/teardown command run to completion and
// not supervised (spec §4.7).
type OneshotSpec struct {
	Name    string
	Command string
	Stdout  io.Writer
	Stderr  io.Writer
}

// OneshotResult is what RunOneshot resolves with: the exit code, and the
// terminating signal name if the process was killed by one.
type OneshotResult struct {
	Code   int
	Signal string
}

// RunOneshot runs spec.Command to completion in its own process group
// and reports how it ended. A non-nil error means the command could not
// be started or waited on at all, distinct from a non-zero exit code.
func RunOneshot(ctx context.Context, spec OneshotSpec) (OneshotResult, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", spec.Command)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	err := cmd.Run()
	if err == nil {
		return OneshotResult{Code: 0}, nil
	}

	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return OneshotResult{}, err
	}

	result := OneshotResult{Code: ee.ExitCode()}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		result.Signal = ws.Signal().String()
	}
	return result, nil
}
