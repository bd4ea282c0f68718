// Package command executes shell commands with timeout handling and
// process-group teardown.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultKillGrace is how long a timed-out process group gets between SIGTERM
// and SIGKILL.
const DefaultKillGrace = 5 * time.Second

// Outcome classifies how an execution ended.
type Outcome int

const (
	// OutcomeCompleted means the process exited on its own, with any exit code.
	OutcomeCompleted Outcome = iota
	// OutcomeTimeout means the execution exceeded its timeout and the process
	// group was torn down.
	OutcomeTimeout
	// OutcomeCancelled means the wait was abandoned because its context was
	// cancelled.
	OutcomeCancelled
	// OutcomeError means the process could not be spawned.
	OutcomeError
)

// Result is the captured output of one execution. Stdout and Stderr are UTF-8
// with invalid bytes replaced. ExitCode is -1 unless the process exited on
// its own.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Outcome  Outcome
}

// Runner spawns commands through a shell in a new process group. A Runner is
// stateless and safe for concurrent use; each call owns its own process.
type Runner struct {
	Shell     string        // defaults to /bin/bash
	KillGrace time.Duration // defaults to DefaultKillGrace
}

// Execute runs command to completion or timeout and returns the captured
// output. Spawn failures and timeouts are reported in the Result, not as a
// crash.
func (r *Runner) Execute(ctx context.Context, command string, timeout time.Duration, dir string) Result {
	execution, err := r.Start(command, dir)
	if err != nil {
		return Result{
			Stderr:   fmt.Sprintf("Error executing command: %v", err),
			ExitCode: -1,
			Outcome:  OutcomeError,
		}
	}
	return execution.Wait(ctx, timeout)
}

// Start spawns command through the shell with stdin disconnected and both
// output pipes drained in the background. The returned Execution owns the
// process for its entire lifetime.
func (r *Runner) Start(command, dir string) (*Execution, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/bash"
	}
	grace := r.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	cmd := exec.Command(shell, "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	e := &Execution{
		handle:    &Handle{pid: cmd.Process.Pid, done: done},
		killGrace: grace,
		done:      done,
	}

	go e.collect(cmd, stdout, stderr, done)

	return e, nil
}

// Execution is one in-flight command. It must not be reused.
type Execution struct {
	handle    *Handle
	killGrace time.Duration
	done      chan struct{}

	// written by collect before done is closed
	stdout   string
	stderr   string
	exitCode int
}

// Handle returns the process-group handle for external cancellation.
func (e *Execution) Handle() *Handle {
	return e.handle
}

// collect drains both pipes to completion, reaps the process, and publishes
// the captured output.
func (e *Execution) collect(cmd *exec.Cmd, stdout, stderr io.Reader, done chan struct{}) {
	var outBuf, errBuf []byte

	var g errgroup.Group
	g.Go(func() error {
		b, err := io.ReadAll(stdout)
		outBuf = b
		return err
	})
	g.Go(func() error {
		b, err := io.ReadAll(stderr)
		errBuf = b
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Debug("Pipe drain interrupted", "error", err)
	}

	err := cmd.Wait()
	e.stdout = strings.ToValidUTF8(string(outBuf), "�")
	e.stderr = strings.ToValidUTF8(string(errBuf), "�")
	e.exitCode = cmd.ProcessState.ExitCode()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		slog.Debug("Process wait failed", "error", err)
	}

	close(done)
}

// Wait blocks until the process exits, the timeout elapses, or ctx is
// cancelled. On timeout the process group is terminated (SIGTERM, then
// SIGKILL after the kill grace) before returning. On context cancellation the
// wait is abandoned without signaling; callers that cancel are expected to
// tear the process group down through the Handle.
func (e *Execution) Wait(ctx context.Context, timeout time.Duration) Result {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
		return Result{
			Stdout:   e.stdout,
			Stderr:   e.stderr,
			ExitCode: e.exitCode,
			Outcome:  OutcomeCompleted,
		}
	case <-timer.C:
		e.handle.Shutdown(e.killGrace)
		return Result{
			Stderr:   fmt.Sprintf("Command timed out after %d seconds", int(timeout.Seconds())),
			ExitCode: -1,
			Outcome:  OutcomeTimeout,
		}
	case <-ctx.Done():
		return Result{
			Stderr:   "Command was cancelled",
			ExitCode: -1,
			Outcome:  OutcomeCancelled,
		}
	}
}
