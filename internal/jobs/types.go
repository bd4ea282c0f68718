// Package jobs tracks background command executions: a concurrent job store,
// a scheduler deciding sync-vs-background mode, and a cancellation controller.
package jobs

import (
	"context"
	"math"
	"time"

	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
)

// Status is the lifecycle state of a job. Every job starts running and makes
// exactly one transition to a terminal state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Job is one tracked background execution. Fields are guarded by the owning
// Store's mutex; external readers only ever see Snapshots.
type Job struct {
	ID             string
	Command        string
	Dir            string
	TimeoutSeconds int

	Status     Status
	StartTime  time.Time
	EndTime    time.Time // zero until terminal
	Stdout     string
	Stderr     string
	ReturnCode *int // nil until terminal; -1 for timeout/cancel/error

	// handle is non-nil iff the job is running with a live process.
	handle *command.Handle
	cancel context.CancelFunc
}

// Snapshot is an immutable copy of a job's state for external readers.
type Snapshot struct {
	ID             string
	Command        string
	TimeoutSeconds int
	Status         Status
	StartTime      time.Time
	EndTime        time.Time
	Stdout         string
	Stderr         string
	ReturnCode     *int
}

// RuntimeSeconds returns the job runtime rounded to 2 decimal places. For a
// running job the runtime is measured against now.
func (s Snapshot) RuntimeSeconds(now time.Time) float64 {
	end := s.EndTime
	if end.IsZero() {
		end = now
	}
	return math.Round(end.Sub(s.StartTime).Seconds()*100) / 100
}

// CommandPreview returns the command truncated to 50 characters.
func (s Snapshot) CommandPreview() string {
	if len(s.Command) > 50 {
		return s.Command[:50] + "..."
	}
	return s.Command
}

// Direct is the captured output of a synchronous or fast-path execution.
type Direct struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// Handle is returned to the caller when a submission stays in the background.
type Handle struct {
	JobID   string `json:"jobId"`
	Command string `json:"command"`
	Status  Status `json:"status"`
	Timeout int    `json:"timeout"`
	Message string `json:"message"`
}

// StatusInfo describes a still-running job to a status query.
type StatusInfo struct {
	JobID          string  `json:"jobId"`
	Status         Status  `json:"status"`
	RuntimeSeconds float64 `json:"runtimeSeconds"`
	Timeout        int     `json:"timeout"`
	Message        string  `json:"message"`
}

// ListEntry summarizes one job for list queries.
type ListEntry struct {
	JobID          string  `json:"jobId"`
	Status         Status  `json:"status"`
	RuntimeSeconds float64 `json:"runtimeSeconds"`
	Timeout        int     `json:"timeout"`
	CommandPreview string  `json:"commandPreview"`
}

// ListResponse is the response for listing jobs.
type ListResponse struct {
	Jobs       []ListEntry `json:"jobs"`
	TotalCount int         `json:"totalCount"`
}

// CancelAck acknowledges a successful cancellation.
type CancelAck struct {
	JobID   string `json:"jobId"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}
