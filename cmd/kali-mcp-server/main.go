// kali-mcp-server is the MCP stdio server exposing command execution and
// interactsh supervision tools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
	"github.com/weirdmachine64/kali-docker-mcp/internal/config"
	"github.com/weirdmachine64/kali-docker-mcp/internal/health"
	"github.com/weirdmachine64/kali-docker-mcp/internal/interactsh"
	"github.com/weirdmachine64/kali-docker-mcp/internal/jobs"
	"github.com/weirdmachine64/kali-docker-mcp/internal/mcptools"
	"github.com/weirdmachine64/kali-docker-mcp/internal/observability"
	"github.com/weirdmachine64/kali-docker-mcp/internal/workspace"
)

const serverVersion = "1.0.0"

func main() {
	// Stdout belongs to the MCP stdio transport; all logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg := config.LoadServiceConfig()
	cfg, err := config.Load(svcCfg.ConfigPath)
	if err != nil {
		slog.Warn("Config file unavailable, using defaults", "path", svcCfg.ConfigPath, "error", err)
		cfg = config.Default()
	}

	// A mounted secret file takes precedence over the token in the TOML file.
	if svcCfg.InteractshTokenFile != "" {
		if token := config.GetSecretFile(svcCfg.InteractshTokenFile); token != "" {
			cfg.Interactsh.Token = token
		}
	}

	if err := workspace.EnsureDirs(cfg); err != nil {
		slog.Warn("Workspace bootstrap failed", "error", err)
	}

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Build the execution engine
	store := jobs.NewStore()
	runner := &command.Runner{}
	scheduler := jobs.NewScheduler(store, runner, metrics)
	controller := jobs.NewController(store, metrics)
	supervisor := interactsh.NewSupervisor(interactsh.Config{
		Enabled:    cfg.Interactsh.Enabled,
		Server:     cfg.Interactsh.Server,
		Token:      cfg.Interactsh.Token,
		Number:     cfg.Interactsh.Number,
		OutputFile: cfg.Interactsh.OutputFile,
	}, metrics)

	healthChecker := health.NewChecker("", cfg.Workspace.Directory)

	// Create the MCP server and register the tool surface
	mcpSrv := mcpserver.NewMCPServer("kali-mcp-server", serverVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	handlers := mcptools.NewHandlers(cfg, scheduler, controller, supervisor)
	mcptools.Register(mcpSrv, handlers, metrics)

	// Metrics and health probes on a side HTTP server
	sideMux := http.NewServeMux()
	sideMux.Handle("GET /metrics", metricsHandler)
	sideMux.HandleFunc("GET /livez", probeHandler(healthChecker.Liveness))
	sideMux.HandleFunc("GET /readyz", probeHandler(healthChecker.Readiness))
	sideServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      sideMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := sideServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ServeStdio returns once the client closes stdin.
	stdioDone := make(chan error, 1)
	go func() {
		slog.Info("Starting MCP stdio server", "version", serverVersion)
		stdioDone <- mcpserver.ServeStdio(mcpSrv)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-stdioDone:
		if err != nil {
			slog.Error("Stdio server stopped", "error", err)
		} else {
			slog.Info("Stdio transport closed")
		}
	case err := <-serverErr:
		slog.Error("Metrics server failed to start", "error", err)
	}

	healthChecker.SetShuttingDown()

	// Stop the interactsh worker if one is still running; conflicts just mean
	// there was nothing to stop.
	if _, err := supervisor.Stop(ctx); err == nil {
		slog.Info("Interactsh worker stopped during shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sideServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	// Background jobs hold no external state worth draining; their process
	// groups die with this process.
	slog.Info("Shutdown complete")
	return nil
}

func probeHandler(probe func(context.Context) *health.Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := probe(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !response.IsHealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("Probe response encoding failed", "error", err)
		}
	}
}
