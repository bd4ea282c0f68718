// Package interactsh supervises a long-lived interactsh-client process for
// out-of-band interaction detection: PTY-based startup, payload extraction
// from the banner, and incremental polling of its JSON-Lines output file.
package interactsh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/weirdmachine64/kali-docker-mcp/internal/apperrors"
	"github.com/weirdmachine64/kali-docker-mcp/internal/observability"
)

// Timing defaults. The client only prints its payload banner interactively,
// so startup waits a fixed warm-up before reading the PTY.
const (
	DefaultWarmup     = 10 * time.Second
	DefaultBannerWait = 5 * time.Second
	DefaultStopGrace  = 3 * time.Second
)

// Status of the supervised worker.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Config for the supervisor, normally derived from the [INTERACTSH] section
// of the TOML config file.
type Config struct {
	Enabled    bool
	Server     string // comma-separated server domains
	Token      string
	Number     int
	OutputFile string

	ClientPath string        // defaults to "interactsh-client"
	Warmup     time.Duration // defaults to DefaultWarmup
	BannerWait time.Duration // defaults to DefaultBannerWait
	StopGrace  time.Duration // defaults to DefaultStopGrace
}

func (c *Config) applyDefaults() {
	if c.ClientPath == "" {
		c.ClientPath = clientProcessName
	}
	if c.Number <= 0 {
		c.Number = 1
	}
	if c.Warmup <= 0 {
		c.Warmup = DefaultWarmup
	}
	if c.BannerWait <= 0 {
		c.BannerWait = DefaultBannerWait
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
}

// worker is the tracked state of the singleton external process.
type worker struct {
	status     Status
	startTime  time.Time
	server     string
	outputFile string
	payloads   []string
	command    string
}

// Supervisor owns the singleton interactsh worker. At most one active
// instance may exist at a time; starting while running is rejected.
type Supervisor struct {
	cfg     Config
	metrics *observability.Metrics

	mu       sync.Mutex
	worker   *worker
	starting bool
}

// NewSupervisor creates a supervisor. metrics may be nil.
func NewSupervisor(cfg Config, metrics *observability.Metrics) *Supervisor {
	cfg.applyDefaults()
	return &Supervisor{cfg: cfg, metrics: metrics}
}

// StartResult is the response of a successful start.
type StartResult struct {
	Status     Status   `json:"status"`
	Payloads   []string `json:"payloads"`
	Server     string   `json:"server"`
	OutputFile string   `json:"outputFile"`
	Message    string   `json:"message"`
}

// PollResult carries all interactions recorded so far.
type PollResult struct {
	Status       string           `json:"status"`
	Interactions []map[string]any `json:"interactions"`
	Count        int              `json:"count"`
	OutputFile   string           `json:"outputFile"`
	FileExists   bool             `json:"fileExists"`
	FileSize     int64            `json:"fileSize"`
	Message      string           `json:"message"`
}

// StatusResult describes the worker's liveness.
type StatusResult struct {
	Status         Status   `json:"status"`
	RuntimeSeconds float64  `json:"runtimeSeconds,omitempty"`
	Server         string   `json:"server,omitempty"`
	OutputFile     string   `json:"outputFile,omitempty"`
	PayloadCount   int      `json:"payloadCount"`
	Payloads       []string `json:"payloads,omitempty"`
	Message        string   `json:"message"`
}

// StopResult acknowledges a stop.
type StopResult struct {
	Status         Status  `json:"status"`
	Message        string  `json:"message"`
	RuntimeSeconds float64 `json:"runtimeSeconds"`
	PayloadCount   int     `json:"payloadCount"`
}

// Start spawns the client attached to a pseudo-terminal, waits the fixed
// warm-up, scrapes generated payloads from the banner, and records the
// worker. outputFileOverride, when non-empty, replaces the configured output
// file. If no payloads can be extracted the spawned process is killed and the
// start fails.
func (s *Supervisor) Start(ctx context.Context, outputFileOverride string) (*StartResult, error) {
	s.mu.Lock()
	if s.starting || (s.worker != nil && s.worker.status == StatusRunning) {
		s.mu.Unlock()
		return nil, apperrors.Conflict("interactsh", "", "Interactsh worker is already running")
	}
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return nil, apperrors.Disabled("Interactsh")
	}
	s.starting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	outputFile := outputFileOverride
	if outputFile == "" {
		outputFile = s.cfg.OutputFile
	}

	args := []string{"-s", s.cfg.Server, "-n", strconv.Itoa(s.cfg.Number)}
	if s.cfg.Token != "" {
		args = append(args, "-t", s.cfg.Token)
	}
	args = append(args, "-o", outputFile)

	// Clear any stale output file from a previous run.
	if err := os.Remove(outputFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not remove stale output file", "path", outputFile, "error", err)
	}

	cmd := exec.Command(s.cfg.ClientPath, args...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, apperrors.Internal("interactsh.start", err)
	}
	// Reap the client whenever it exits so it never lingers as a zombie.
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("Interactsh client exited", "error", err)
		}
	}()

	payloads := s.scrapeBanner(ctx, ptmx)

	if s.metrics != nil {
		s.metrics.RecordListenerStart(ctx, len(payloads))
	}

	if len(payloads) == 0 {
		killClients(ctx, s.cfg.StopGrace)
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, apperrors.NoPayloads("No payloads were generated from interactsh-client")
	}

	s.mu.Lock()
	s.worker = &worker{
		status:     StatusRunning,
		startTime:  time.Now(),
		server:     s.cfg.Server,
		outputFile: outputFile,
		payloads:   payloads,
		command:    s.cfg.ClientPath + " " + strings.Join(args, " "),
	}
	s.mu.Unlock()

	slog.Info("Interactsh worker started", "payloads", len(payloads), "server", s.cfg.Server)

	return &StartResult{
		Status:     StatusRunning,
		Payloads:   payloads,
		Server:     s.cfg.Server,
		OutputFile: outputFile,
		Message:    fmt.Sprintf("Interactsh worker started successfully with %d payload URLs", len(payloads)),
	}, nil
}

// scrapeBanner sleeps the fixed warm-up, then reads whatever banner output is
// available within the bounded banner wait.
func (s *Supervisor) scrapeBanner(ctx context.Context, ptmx *os.File) []string {
	defer ptmx.Close()

	warmup := time.NewTimer(s.cfg.Warmup)
	defer warmup.Stop()
	select {
	case <-warmup.C:
	case <-ctx.Done():
		return nil
	}

	if err := ptmx.SetReadDeadline(time.Now().Add(s.cfg.BannerWait)); err != nil {
		slog.Debug("PTY read deadline unsupported", "error", err)
	}
	buf := make([]byte, 4096)
	n, err := ptmx.Read(buf)
	if err != nil && n == 0 {
		slog.Warn("No banner output from interactsh client", "error", err)
		return nil
	}

	return ParsePayloads(string(buf[:n]), s.cfg.Server)
}

// Poll reads the output file in full, one JSON record per line. A missing
// file or unparsable lines degrade to zero records, never an error.
func (s *Supervisor) Poll(ctx context.Context) (*PollResult, error) {
	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()

	if w == nil {
		return nil, apperrors.Conflict("interactsh", "", "No interactsh worker is running")
	}
	if w.status != StatusRunning {
		return nil, apperrors.Conflict("interactsh", "", fmt.Sprintf("Interactsh worker is %s", w.status))
	}

	interactions := []map[string]any{}
	var fileSize int64
	fileExists := false

	if info, err := os.Stat(w.outputFile); err == nil {
		fileExists = true
		fileSize = info.Size()
	}

	if data, err := os.ReadFile(w.outputFile); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var record map[string]any
			if err := json.Unmarshal([]byte(line), &record); err != nil {
				slog.Warn("Skipping unparsable interaction line", "error", err)
				continue
			}
			interactions = append(interactions, record)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordInteractionsPolled(ctx, len(interactions))
	}

	return &PollResult{
		Status:       "success",
		Interactions: interactions,
		Count:        len(interactions),
		OutputFile:   w.outputFile,
		FileExists:   fileExists,
		FileSize:     fileSize,
		Message:      fmt.Sprintf("Retrieved %d interactions", len(interactions)),
	}, nil
}

// WorkerStatus reports the worker's state, verifying liveness against the
// live process table. A recorded running worker whose process is gone is
// transparently downgraded to stopped.
func (s *Supervisor) WorkerStatus(ctx context.Context) *StatusResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker == nil {
		return &StatusResult{
			Status:  StatusStopped,
			Message: "No interactsh worker has been started",
		}
	}

	alive := clientAlive(ctx)
	if !alive && s.worker.status == StatusRunning {
		s.worker.status = StatusStopped
	}

	message := "Worker has stopped"
	if alive {
		message = "Worker is running"
	}

	return &StatusResult{
		Status:         s.worker.status,
		RuntimeSeconds: roundedSince(s.worker.startTime),
		Server:         s.worker.server,
		OutputFile:     s.worker.outputFile,
		PayloadCount:   len(s.worker.payloads),
		Payloads:       s.worker.payloads,
		Message:        message,
	}
}

// Stop terminates the worker. The kill matches by process name rather than a
// stored handle, so it also cleans up orphans from previous instances.
func (s *Supervisor) Stop(ctx context.Context) (*StopResult, error) {
	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()

	if w == nil {
		return nil, apperrors.Conflict("interactsh", "", "No interactsh worker is running")
	}
	if w.status != StatusRunning {
		return nil, apperrors.Conflict("interactsh", "", fmt.Sprintf("Interactsh worker is already %s", w.status))
	}

	killClients(ctx, s.cfg.StopGrace)

	s.mu.Lock()
	w.status = StatusStopped
	s.mu.Unlock()

	slog.Info("Interactsh worker stopped")

	return &StopResult{
		Status:         StatusStopped,
		Message:        "Interactsh worker stopped successfully",
		RuntimeSeconds: roundedSince(w.startTime),
		PayloadCount:   len(w.payloads),
	}, nil
}

func roundedSince(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*100) / 100
}
