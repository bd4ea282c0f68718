package interactsh

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/weirdmachine64/kali-docker-mcp/pkg/retry"
)

// clientProcessName is the external binary the supervisor owns. Liveness and
// teardown match against the process table by name, which makes them robust
// to orphaned instances from a previous server run.
const clientProcessName = "interactsh-client"

// findClients returns every live process whose command line references the
// interactsh client binary.
func findClients(ctx context.Context) []*process.Process {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		slog.Warn("Process table scan failed", "error", err)
		return nil
	}

	var matches []*process.Process
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err == nil && name == clientProcessName {
			matches = append(matches, p)
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err == nil && strings.Contains(cmdline, clientProcessName) {
			matches = append(matches, p)
		}
	}
	return matches
}

// clientAlive reports whether any interactsh client process is running.
func clientAlive(ctx context.Context) bool {
	return len(findClients(ctx)) > 0
}

// killClients terminates every interactsh client process, escalating to
// SIGKILL for survivors after the grace period. Process-already-gone errors
// are swallowed.
func killClients(ctx context.Context, grace time.Duration) {
	clients := findClients(ctx)
	if len(clients) == 0 {
		return
	}

	for _, p := range clients {
		if err := p.TerminateWithContext(ctx); err != nil {
			slog.Debug("Terminate failed", "pid", p.Pid, "error", err)
		}
	}

	gone := retry.Poll(ctx, grace, &retry.Config{Initial: 50 * time.Millisecond, Max: time.Second}, func() bool {
		return !clientAlive(ctx)
	})
	if gone {
		return
	}

	for _, p := range findClients(ctx) {
		if err := p.KillWithContext(ctx); err != nil {
			slog.Debug("Kill failed", "pid", p.Pid, "error", err)
		}
	}
}
