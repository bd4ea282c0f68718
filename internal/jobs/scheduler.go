package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weirdmachine64/kali-docker-mcp/internal/apperrors"
	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
	"github.com/weirdmachine64/kali-docker-mcp/internal/observability"
)

const (
	// MaxTimeoutSeconds caps every submission at 10 hours.
	MaxTimeoutSeconds = 36000
	// backgroundThreshold is the timeout above which a submission runs as a
	// background job instead of blocking the caller.
	backgroundThreshold = 60
	// DefaultFastPathWait is the grace window letting quick background jobs
	// return synchronously without ever exposing a job ID.
	DefaultFastPathWait = 2 * time.Second
)

// Scheduler decides sync-vs-background execution and owns the background
// workers. Each background job runs as one goroutine multiplexed on the
// runtime scheduler; cancellation is cooperative through the job's context
// plus an explicit process-group signal.
type Scheduler struct {
	store   *Store
	runner  *command.Runner
	metrics *observability.Metrics

	// FastPathWait overrides DefaultFastPathWait, mainly for tests.
	FastPathWait time.Duration
}

// NewScheduler creates a scheduler. metrics may be nil.
func NewScheduler(store *Store, runner *command.Runner, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		store:        store,
		runner:       runner,
		metrics:      metrics,
		FastPathWait: DefaultFastPathWait,
	}
}

// Submission is the outcome of Submit: exactly one of Direct (sync or
// fast-path output) and Handle (background job reference) is non-nil.
type Submission struct {
	Direct *Direct
	Handle *Handle
}

// Submit validates and executes a command. Timeouts of 60 seconds or less run
// synchronously; longer timeouts start a background job, with a fast-path
// window that returns the output directly if the job finishes quickly.
func (s *Scheduler) Submit(ctx context.Context, cmd string, timeoutSeconds int, dir string) (*Submission, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, apperrors.Validation("command", "Command cannot be empty")
	}
	if timeoutSeconds < 1 || timeoutSeconds > MaxTimeoutSeconds {
		return nil, apperrors.Validation("timeout",
			fmt.Sprintf("timeout must be between 1 and %d seconds", MaxTimeoutSeconds))
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	background := timeoutSeconds > backgroundThreshold
	slog.Info("Executing command", "background", background, "timeout", timeoutSeconds, "command", preview(cmd))

	if !background {
		res := s.runner.Execute(ctx, cmd, timeout, dir)
		return &Submission{Direct: &Direct{
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
			ReturnCode: res.ExitCode,
		}}, nil
	}

	return s.submitBackground(ctx, cmd, timeout, timeoutSeconds, dir), nil
}

func (s *Scheduler) submitBackground(ctx context.Context, cmd string, timeout time.Duration, timeoutSeconds int, dir string) *Submission {
	id := newJobID()
	jobCtx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:             id,
		Command:        cmd,
		Dir:            dir,
		TimeoutSeconds: timeoutSeconds,
		Status:         StatusRunning,
		StartTime:      time.Now(),
		cancel:         cancel,
	}
	s.store.Add(job)

	if s.metrics != nil {
		s.metrics.RecordJobCreated(ctx)
	}

	done := make(chan struct{})
	go s.runBackground(jobCtx, id, cmd, timeout, dir, done)

	// Fast path: wait briefly for the job to finish so quick commands (and
	// immediate failures) return like a synchronous call. On expiry the
	// worker is detached, never cancelled.
	fastPath := s.FastPathWait
	if fastPath <= 0 {
		fastPath = DefaultFastPathWait
	}
	timer := time.NewTimer(fastPath)
	defer timer.Stop()

	select {
	case <-done:
		snap, ok := s.store.Snapshot(id)
		if !ok {
			// Reaped concurrently; treat as an already-delivered result.
			return &Submission{Direct: &Direct{ReturnCode: -1}}
		}
		s.store.Remove(id)
		code := -1
		if snap.ReturnCode != nil {
			code = *snap.ReturnCode
		}
		return &Submission{Direct: &Direct{
			Stdout:     snap.Stdout,
			Stderr:     snap.Stderr,
			ReturnCode: code,
		}}
	case <-timer.C:
		return &Submission{Handle: &Handle{
			JobID:   id,
			Command: cmd,
			Status:  StatusRunning,
			Timeout: timeoutSeconds,
			Message: "Background job started",
		}}
	}
}

// runBackground is the independent unit of concurrency owning one job. Any
// panic is caught at this boundary and recorded as job status error.
func (s *Scheduler) runBackground(ctx context.Context, id, cmd string, timeout time.Duration, dir string, done chan struct{}) {
	defer close(done)
	logger := slog.With("jobId", id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Background job panicked", "panic", r)
			s.finalize(ctx, id, StatusError, command.Result{
				Stderr:   fmt.Sprintf("Failed to start command: %v", r),
				ExitCode: -1,
			})
		}
	}()

	execution, err := s.runner.Start(cmd, dir)
	if err != nil {
		logger.Error("Background job failed to spawn", "error", err)
		s.finalize(ctx, id, StatusError, command.Result{
			Stderr:   fmt.Sprintf("Failed to start command: %v", err),
			ExitCode: -1,
		})
		return
	}

	if !s.store.Attach(id, execution.Handle()) {
		// Cancelled before the process handle landed in the store; the
		// controller could not signal it, so tear it down here.
		execution.Handle().Shutdown(command.DefaultKillGrace)
		logger.Info("Background job cancelled before attach")
		return
	}

	res := execution.Wait(ctx, timeout)

	switch res.Outcome {
	case command.OutcomeCompleted:
		s.finalize(ctx, id, StatusCompleted, res)
	case command.OutcomeTimeout:
		s.finalize(ctx, id, StatusTimeout, res)
	case command.OutcomeCancelled:
		// The controller performs the terminal write; this covers the case
		// where the context was cancelled without going through it.
		s.finalize(ctx, id, StatusCancelled, res)
	default:
		s.finalize(ctx, id, StatusError, res)
	}
	logger.Info("Background job finished", "outcome", res.Outcome, "exitCode", res.ExitCode)
}

func (s *Scheduler) finalize(ctx context.Context, id string, status Status, res command.Result) {
	if !s.store.Finalize(id, status, res) {
		return
	}
	if s.metrics != nil {
		var duration float64
		if snap, ok := s.store.Snapshot(id); ok {
			duration = snap.EndTime.Sub(snap.StartTime).Seconds()
		}
		s.metrics.RecordJobFinished(ctx, string(status), duration)
	}
}

// GetStatus implements the status query with read-and-reap semantics: a
// running job returns a StatusInfo and stays; a terminal job returns its full
// snapshot exactly once and is removed.
func (s *Scheduler) GetStatus(jobID string) (Snapshot, *StatusInfo, error) {
	snap, ok := s.store.Take(jobID)
	if !ok {
		return Snapshot{}, nil, apperrors.NotFound("Job ID", jobID)
	}
	if snap.Status == StatusRunning {
		return snap, &StatusInfo{
			JobID:          jobID,
			Status:         snap.Status,
			RuntimeSeconds: snap.RuntimeSeconds(time.Now()),
			Timeout:        snap.TimeoutSeconds,
			Message:        "Job is still running...",
		}, nil
	}
	return snap, nil, nil
}

// List summarizes all tracked jobs.
func (s *Scheduler) List() *ListResponse {
	now := time.Now()
	snaps := s.store.List()
	entries := make([]ListEntry, 0, len(snaps))
	for _, snap := range snaps {
		entries = append(entries, ListEntry{
			JobID:          snap.ID,
			Status:         snap.Status,
			RuntimeSeconds: snap.RuntimeSeconds(now),
			Timeout:        snap.TimeoutSeconds,
			CommandPreview: snap.CommandPreview(),
		})
	}
	return &ListResponse{Jobs: entries, TotalCount: len(entries)}
}

func newJobID() string {
	return uuid.NewString()[:8]
}

func preview(cmd string) string {
	if len(cmd) > 100 {
		return cmd[:100] + "..."
	}
	return cmd
}
