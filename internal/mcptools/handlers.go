// Package mcptools exposes the execution engine as MCP tools over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/weirdmachine64/kali-docker-mcp/internal/config"
	"github.com/weirdmachine64/kali-docker-mcp/internal/interactsh"
	"github.com/weirdmachine64/kali-docker-mcp/internal/jobs"
	"github.com/weirdmachine64/kali-docker-mcp/internal/services"
	"github.com/weirdmachine64/kali-docker-mcp/internal/workspace"
)

// Handlers binds the tool surface to the engine components.
type Handlers struct {
	cfg        *config.Config
	scheduler  *jobs.Scheduler
	controller *jobs.Controller
	supervisor *interactsh.Supervisor
}

// NewHandlers wires the tool handlers.
func NewHandlers(cfg *config.Config, scheduler *jobs.Scheduler, controller *jobs.Controller, supervisor *interactsh.Supervisor) *Handlers {
	return &Handlers{
		cfg:        cfg,
		scheduler:  scheduler,
		controller: controller,
		supervisor: supervisor,
	}
}

// RunCommand executes a shell command, synchronously or as a background job
// depending on the timeout. Direct results come back as a formatted text
// block; background jobs come back as a JSON job handle.
func (h *Handlers) RunCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'command' argument"), nil
	}
	timeout, err := req.RequireInt("timeout")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'timeout' argument"), nil
	}
	cwd, err := req.RequireString("cwd")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'cwd' argument"), nil
	}

	sub, err := h.scheduler.Submit(ctx, command, timeout, cwd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sub.Direct != nil {
		return mcp.NewToolResultText(FormatOutput(sub.Direct.Stdout, sub.Direct.Stderr, sub.Direct.ReturnCode)), nil
	}
	return jsonResult(sub.Handle)
}

// GetJobStatus reports a running job's progress, or delivers (and reaps) a
// terminal job's output as a formatted text block.
func (h *Handlers) GetJobStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := req.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'job_id' argument"), nil
	}

	snap, info, err := h.scheduler.GetStatus(jobID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if info != nil {
		return jsonResult(info)
	}
	code := -1
	if snap.ReturnCode != nil {
		code = *snap.ReturnCode
	}
	return mcp.NewToolResultText(FormatOutput(snap.Stdout, snap.Stderr, code)), nil
}

// ListJobs summarizes all tracked background jobs.
func (h *Handlers) ListJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.scheduler.List())
}

// CancelJob terminates a running background job.
func (h *Handlers) CancelJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := req.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'job_id' argument"), nil
	}

	ack, err := h.controller.Cancel(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ack)
}

// StartListener starts the interactsh worker and returns its payload URLs.
func (h *Handlers) StartListener(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outputFile := req.GetString("output_file", "")

	res, err := h.supervisor.Start(ctx, outputFile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// PollInteractions retrieves all interactions recorded so far.
func (h *Handlers) PollInteractions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.supervisor.Poll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// GetListenerStatus reports the interactsh worker's liveness.
func (h *Handlers) GetListenerStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.supervisor.WorkerStatus(ctx))
}

// StopListener stops the interactsh worker.
func (h *Handlers) StopListener(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.supervisor.Stop(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// GetWorkspaceInfo returns the workspace directory and folder structure.
func (h *Handlers) GetWorkspaceInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(workspace.Describe(h.cfg))
}

// GetServiceTokens returns the raw config of every enabled service.
func (h *Handlers) GetServiceTokens(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled := services.AllEnabled(h.cfg)
	if len(enabled) == 0 {
		return mcp.NewToolResultError("No services configured"), nil
	}
	return jsonResult(enabled)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
