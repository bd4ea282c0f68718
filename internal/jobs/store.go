package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
)

// Store is the single source of truth for job state. It maps job IDs to job
// records with thread-safe access; a given job is only ever mutated by its
// owning background worker or the cancellation controller.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
	}
}

// Add registers a new running job.
func (s *Store) Add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Snapshot returns a copy of the job's current state.
func (s *Store) Snapshot(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return snapshotLocked(j), true
}

// Take returns the job's state and, when the job is terminal, removes it from
// the store. Terminal output is delivered exactly once: a second Take for the
// same id reports not found.
func (s *Store) Take(id string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	snap := snapshotLocked(j)
	if snap.Status.Terminal() {
		delete(s.jobs, id)
	}
	return snap, true
}

// Remove deletes a job regardless of state. Used by the fast path once the
// output has been handed to the caller.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jobs[id]
	delete(s.jobs, id)
	return ok
}

// List returns snapshots of all jobs, oldest first.
func (s *Store) List() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]Snapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		snaps = append(snaps, snapshotLocked(j))
	}
	sort.Slice(snaps, func(i, k int) bool {
		return snaps[i].StartTime.Before(snaps[k].StartTime)
	})
	return snaps
}

// Attach records the live process handle for a running job. It reports false
// if the job is no longer running (cancelled before the process spawned), in
// which case the caller owns the teardown of the fresh process.
func (s *Store) Attach(id string, h *command.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status != StatusRunning {
		return false
	}
	j.handle = h
	return true
}

// Finalize applies the single terminal transition for a job. It is a no-op if
// the job is absent or already terminal, so a worker that loses the race to
// the cancellation controller never overwrites the controller's write.
func (s *Store) Finalize(id string, status Status, res command.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status != StatusRunning {
		return false
	}

	j.Status = status
	j.EndTime = time.Now()
	j.Stdout = res.Stdout
	j.Stderr = res.Stderr
	code := res.ExitCode
	if status != StatusCompleted {
		code = -1
	}
	j.ReturnCode = &code
	j.handle = nil
	j.cancel = nil
	return true
}

// control returns the handle and cancel function of a running job for the
// cancellation controller. ok is false when the job is absent; running is
// false when it exists but is already terminal.
func (s *Store) control(id string) (h *command.Handle, cancel context.CancelFunc, status Status, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, found := s.jobs[id]
	if !found {
		return nil, nil, "", false
	}
	return j.handle, j.cancel, j.Status, true
}

func snapshotLocked(j *Job) Snapshot {
	return Snapshot{
		ID:             j.ID,
		Command:        j.Command,
		TimeoutSeconds: j.TimeoutSeconds,
		Status:         j.Status,
		StartTime:      j.StartTime,
		EndTime:        j.EndTime,
		Stdout:         j.Stdout,
		Stderr:         j.Stderr,
		ReturnCode:     j.ReturnCode,
	}
}
