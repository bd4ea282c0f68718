// Package health provides health check functionality for liveness and readiness probes.
package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult contains the result of a health check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the health check response.
type Response struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies the execution environment is usable: the shell the runner
// spawns through exists and the workspace directory accepts writes.
type Checker struct {
	shell        string
	workspaceDir string

	mu           sync.RWMutex
	lastCheck    time.Time
	cachedReady  *Response
	shuttingDown bool
}

// NewChecker creates a health checker for the given shell and workspace.
func NewChecker(shell, workspaceDir string) *Checker {
	if shell == "" {
		shell = "/bin/bash"
	}
	return &Checker{
		shell:        shell,
		workspaceDir: workspaceDir,
	}
}

// Liveness returns true if the service is alive.
// This is a lightweight check with no filesystem dependencies.
func (c *Checker) Liveness(ctx context.Context) *Response {
	return &Response{
		Status: StatusHealthy,
	}
}

// Readiness checks if the service is ready to execute commands.
// Results are cached for one second to keep probe traffic off the filesystem.
func (c *Checker) Readiness(ctx context.Context) *Response {
	c.mu.RLock()
	if c.shuttingDown {
		c.mu.RUnlock()
		return &Response{
			Status: StatusUnhealthy,
			Checks: map[string]CheckResult{
				"shutdown": {Status: StatusUnhealthy, Message: "service is shutting down"},
			},
		}
	}

	if c.cachedReady != nil && time.Since(c.lastCheck) < time.Second {
		cached := c.cachedReady
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	checks := map[string]CheckResult{
		"shell":     c.checkShell(),
		"workspace": c.checkWorkspace(),
	}

	overallStatus := StatusHealthy
	for _, check := range checks {
		if check.Status != StatusHealthy {
			overallStatus = StatusUnhealthy
		}
	}

	response := &Response{
		Status: overallStatus,
		Checks: checks,
	}

	c.mu.Lock()
	c.cachedReady = response
	c.lastCheck = time.Now()
	c.mu.Unlock()

	return response
}

// checkShell verifies the configured shell exists and is a regular file.
func (c *Checker) checkShell() CheckResult {
	info, err := os.Stat(c.shell)
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("shell %s unavailable: %v", c.shell, err),
		}
	}
	if info.IsDir() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("shell %s is a directory", c.shell),
		}
	}
	return CheckResult{Status: StatusHealthy}
}

// checkWorkspace verifies the workspace directory accepts writes by creating
// and removing a probe file.
func (c *Checker) checkWorkspace() CheckResult {
	if c.workspaceDir == "" {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "workspace directory not configured",
		}
	}

	probe := filepath.Join(c.workspaceDir, ".health-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("workspace not writable: %v", err),
		}
	}
	_ = os.Remove(probe)

	return CheckResult{Status: StatusHealthy}
}

// IsHealthy returns true if the overall status is healthy.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// SetShuttingDown marks the service as shutting down.
// This causes readiness checks to return unhealthy.
func (c *Checker) SetShuttingDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuttingDown = true
	c.cachedReady = nil
}
