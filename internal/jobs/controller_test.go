package jobs

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weirdmachine64/kali-docker-mcp/internal/apperrors"
	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
)

func TestCancel_RunningJob(t *testing.T) {
	store := NewStore()
	runner := &command.Runner{}
	ctl := NewController(store, nil)
	ctl.KillGrace = 100 * time.Millisecond

	execution, err := runner.Start("sleep 30", "")
	require.NoError(t, err)

	pid := execution.Handle().PID()
	job := newRunningJob("aaaa1111")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job.cancel = cancel
	store.Add(job)
	require.True(t, store.Attach("aaaa1111", execution.Handle()))

	ack, err := ctl.Cancel(context.Background(), "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, "aaaa1111", ack.JobID)
	assert.Equal(t, StatusCancelled, ack.Status)
	assert.Equal(t, "Job cancelled successfully", ack.Message)

	// The worker's context is cancelled and the process group is gone.
	assert.Error(t, ctx.Err())
	assert.Error(t, syscall.Kill(-pid, 0))

	snap, ok := store.Snapshot("aaaa1111")
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, "Command was cancelled", snap.Stderr)
	require.NotNil(t, snap.ReturnCode)
	assert.Equal(t, -1, *snap.ReturnCode)
}

func TestCancel_UnknownJob(t *testing.T) {
	ctl := NewController(NewStore(), nil)

	_, err := ctl.Cancel(context.Background(), "nope0000")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCancel_TerminalJob(t *testing.T) {
	store := NewStore()
	ctl := NewController(store, nil)

	store.Add(newRunningJob("aaaa1111"))
	require.True(t, store.Finalize("aaaa1111", StatusCompleted, command.Result{ExitCode: 0}))

	_, err := ctl.Cancel(context.Background(), "aaaa1111")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Contains(t, err.Error(), "COMPLETED")
}

func TestCancel_JobWithoutHandle(t *testing.T) {
	store := NewStore()
	ctl := NewController(store, nil)
	ctl.KillGrace = 100 * time.Millisecond

	// Running job whose process handle never attached.
	store.Add(newRunningJob("aaaa1111"))

	ack, err := ctl.Cancel(context.Background(), "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, ack.Status)

	snap, ok := store.Snapshot("aaaa1111")
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, snap.Status)
}
