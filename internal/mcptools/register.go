package mcptools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/weirdmachine64/kali-docker-mcp/internal/jobs"
	"github.com/weirdmachine64/kali-docker-mcp/internal/observability"
)

// Register declares every tool on the MCP server, wrapping each handler with
// per-tool metrics. metrics may be nil.
func Register(s *server.MCPServer, h *Handlers, metrics *observability.Metrics) {
	add := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		s.AddTool(tool, instrument(tool.Name, handler, metrics))
	}

	add(mcp.NewTool("run_command",
		mcp.WithDescription("Execute a command in the Kali Linux environment. Automatically runs as a background job if timeout > 60 seconds, otherwise runs synchronously."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The command to execute in the Kali Linux environment"),
		),
		mcp.WithNumber("timeout",
			mcp.Required(),
			mcp.Description("Timeout in seconds"),
			mcp.Min(1),
			mcp.Max(jobs.MaxTimeoutSeconds),
		),
		mcp.WithString("cwd",
			mcp.Required(),
			mcp.Description("Working directory for the command"),
		),
	), h.RunCommand)

	add(mcp.NewTool("get_job_status",
		mcp.WithDescription("Check the status of a background job using its job ID"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by run_command when timeout > 60"),
		),
	), h.GetJobStatus)

	add(mcp.NewTool("list_jobs",
		mcp.WithDescription("List all background jobs and their current status"),
	), h.ListJobs)

	add(mcp.NewTool("cancel_job",
		mcp.WithDescription("Cancel a running background job using its job ID"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID of the command to cancel"),
		),
	), h.CancelJob)

	add(mcp.NewTool("start_interaction_listener",
		mcp.WithDescription("Start an interactsh-client worker in the background to monitor for out-of-band interactions. Returns generated payload URLs."),
		mcp.WithString("output_file",
			mcp.Description("Path to the output JSON file for interactions (overrides the configured path)"),
		),
	), h.StartListener)

	add(mcp.NewTool("poll_interactions",
		mcp.WithDescription("Poll and retrieve all recorded interactions from the interactsh output file"),
	), h.PollInteractions)

	add(mcp.NewTool("get_interaction_status",
		mcp.WithDescription("Get the current status of the interactsh worker (running/stopped, payloads, runtime)"),
	), h.GetListenerStatus)

	add(mcp.NewTool("stop_interaction_listener",
		mcp.WithDescription("Stop the running interactsh-client worker"),
	), h.StopListener)

	add(mcp.NewTool("get_workspace_info",
		mcp.WithDescription("Get the workspace directory path and folder structure configuration"),
	), h.GetWorkspaceInfo)

	add(mcp.NewTool("get_service_tokens",
		mcp.WithDescription("Get all configured service API tokens for reconnaissance and intelligence gathering (GitHub, Shodan, Censys, VirusTotal, etc.)"),
	), h.GetServiceTokens)
}

// instrument records call counts, error counts, and duration per tool.
func instrument(tool string, next server.ToolHandlerFunc, metrics *observability.Metrics) server.ToolHandlerFunc {
	if metrics == nil {
		return next
	}
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)
		isError := err != nil || (res != nil && res.IsError)
		metrics.RecordToolCall(ctx, tool, isError, time.Since(start).Seconds())
		return res, err
	}
}
