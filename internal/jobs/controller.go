package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/weirdmachine64/kali-docker-mcp/internal/apperrors"
	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
	"github.com/weirdmachine64/kali-docker-mcp/internal/observability"
)

// DefaultCancelGrace is how long a cancelled job's process group gets between
// SIGTERM and SIGKILL.
const DefaultCancelGrace = 3 * time.Second

// Controller cancels running jobs: it signals the owning worker to stop and
// tears down the job's process group, escalating to SIGKILL after the grace
// period.
type Controller struct {
	store   *Store
	metrics *observability.Metrics

	// KillGrace overrides DefaultCancelGrace, mainly for tests.
	KillGrace time.Duration
}

// NewController creates a cancellation controller. metrics may be nil.
func NewController(store *Store, metrics *observability.Metrics) *Controller {
	return &Controller{
		store:     store,
		metrics:   metrics,
		KillGrace: DefaultCancelGrace,
	}
}

// Cancel terminates a running job. Only running jobs are cancellable: absent
// IDs report not found, terminal jobs report a conflict. Process-already-gone
// errors during teardown are swallowed.
func (c *Controller) Cancel(ctx context.Context, jobID string) (*CancelAck, error) {
	handle, cancel, status, ok := c.store.control(jobID)
	if !ok {
		return nil, apperrors.NotFound("Job ID", jobID)
	}
	if status != StatusRunning {
		return nil, apperrors.Conflict("job", jobID,
			fmt.Sprintf("Cannot cancel job with status: %s", strings.ToUpper(string(status))))
	}

	logger := slog.With("jobId", jobID)

	// Cancelling the worker alone does not stop a spawned process, so the
	// process group is signaled explicitly regardless.
	if cancel != nil {
		cancel()
	}
	if handle != nil {
		grace := c.KillGrace
		if grace <= 0 {
			grace = DefaultCancelGrace
		}
		handle.Shutdown(grace)
	}

	if c.store.Finalize(jobID, StatusCancelled, command.Result{
		Stderr:   "Command was cancelled",
		ExitCode: -1,
	}) && c.metrics != nil {
		var duration float64
		if snap, ok := c.store.Snapshot(jobID); ok {
			duration = snap.EndTime.Sub(snap.StartTime).Seconds()
		}
		c.metrics.RecordJobFinished(ctx, string(StatusCancelled), duration)
	}
	logger.Info("Job cancelled")

	return &CancelAck{
		JobID:   jobID,
		Status:  StatusCancelled,
		Message: "Job cancelled successfully",
	}, nil
}
