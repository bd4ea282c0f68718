package mcptools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weirdmachine64/kali-docker-mcp/internal/command"
	"github.com/weirdmachine64/kali-docker-mcp/internal/config"
	"github.com/weirdmachine64/kali-docker-mcp/internal/interactsh"
	"github.com/weirdmachine64/kali-docker-mcp/internal/jobs"
)

func newTestHandlers() *Handlers {
	cfg := &config.Config{
		Workspace: config.Workspace{
			Directory: "/app/workspace/default",
			Structure: []string{"recon", "scans"},
		},
		Services: map[string]config.Service{
			"shodan": {"enabled": true, "api_key": "key"},
		},
	}
	store := jobs.NewStore()
	runner := &command.Runner{KillGrace: 100 * time.Millisecond}
	scheduler := jobs.NewScheduler(store, runner, nil)
	scheduler.FastPathWait = 100 * time.Millisecond
	controller := jobs.NewController(store, nil)
	controller.KillGrace = 100 * time.Millisecond
	supervisor := interactsh.NewSupervisor(interactsh.Config{Enabled: false}, nil)
	return NewHandlers(cfg, scheduler, controller, supervisor)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestRunCommand_Sync(t *testing.T) {
	h := newTestHandlers()

	res, err := h.RunCommand(context.Background(), callRequest("run_command", map[string]any{
		"command": "echo hi",
		"timeout": 10,
		"cwd":     "/tmp",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := textOf(t, res)
	assert.Contains(t, text, "---- [stdout] ----\nhi\n")
	assert.Contains(t, text, "---- [stderr] ----\n(empty)\n")
	assert.Contains(t, text, "---- [return code] ----\n0\n")
}

func TestRunCommand_MissingArguments(t *testing.T) {
	h := newTestHandlers()

	res, err := h.RunCommand(context.Background(), callRequest("run_command", map[string]any{
		"timeout": 10,
		"cwd":     "/tmp",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "command")
}

func TestRunCommand_EmptyCommand(t *testing.T) {
	h := newTestHandlers()

	res, err := h.RunCommand(context.Background(), callRequest("run_command", map[string]any{
		"command": "   ",
		"timeout": 10,
		"cwd":     "/tmp",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "Command cannot be empty")
}

func TestRunCommand_BackgroundLifecycle(t *testing.T) {
	h := newTestHandlers()

	res, err := h.RunCommand(context.Background(), callRequest("run_command", map[string]any{
		"command": "sleep 120",
		"timeout": 300,
		"cwd":     "/tmp",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var handle jobs.Handle
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &handle))
	assert.Len(t, handle.JobID, 8)
	assert.Equal(t, jobs.StatusRunning, handle.Status)
	assert.Equal(t, 300, handle.Timeout)

	// Running job reports progress.
	res, err = h.GetJobStatus(context.Background(), callRequest("get_job_status", map[string]any{"job_id": handle.JobID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var info jobs.StatusInfo
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &info))
	assert.Equal(t, "Job is still running...", info.Message)

	// Cancel, then the terminal read reaps the job.
	res, err = h.CancelJob(context.Background(), callRequest("cancel_job", map[string]any{"job_id": handle.JobID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var ack jobs.CancelAck
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &ack))
	assert.Equal(t, jobs.StatusCancelled, ack.Status)

	res, err = h.GetJobStatus(context.Background(), callRequest("get_job_status", map[string]any{"job_id": handle.JobID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "Command was cancelled")

	res, err = h.GetJobStatus(context.Background(), callRequest("get_job_status", map[string]any{"job_id": handle.JobID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not found")
}

func TestGetJobStatus_Unknown(t *testing.T) {
	h := newTestHandlers()

	res, err := h.GetJobStatus(context.Background(), callRequest("get_job_status", map[string]any{"job_id": "nope0000"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "nope0000")
}

func TestListJobs_Empty(t *testing.T) {
	h := newTestHandlers()

	res, err := h.ListJobs(context.Background(), callRequest("list_jobs", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var list jobs.ListResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &list))
	assert.Equal(t, 0, list.TotalCount)
}

func TestStartListener_Disabled(t *testing.T) {
	h := newTestHandlers()

	res, err := h.StartListener(context.Background(), callRequest("start_interaction_listener", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "disabled")
}

func TestGetListenerStatus_NeverStarted(t *testing.T) {
	h := newTestHandlers()

	res, err := h.GetListenerStatus(context.Background(), callRequest("get_interaction_status", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var status interactsh.StatusResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &status))
	assert.Equal(t, interactsh.StatusStopped, status.Status)
}

func TestGetWorkspaceInfo(t *testing.T) {
	h := newTestHandlers()

	res, err := h.GetWorkspaceInfo(context.Background(), callRequest("get_workspace_info", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var info struct {
		Directory string   `json:"directory"`
		Structure []string `json:"structure"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &info))
	assert.Equal(t, "/app/workspace/default", info.Directory)
	assert.Equal(t, []string{"recon", "scans"}, info.Structure)
}

func TestGetServiceTokens(t *testing.T) {
	h := newTestHandlers()

	res, err := h.GetServiceTokens(context.Background(), callRequest("get_service_tokens", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var tokens map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &tokens))
	require.Contains(t, tokens, "shodan")
	assert.Equal(t, "key", tokens["shodan"]["api_key"])
}

func TestGetServiceTokens_NoneConfigured(t *testing.T) {
	h := newTestHandlers()
	h.cfg.Services = nil

	res, err := h.GetServiceTokens(context.Background(), callRequest("get_service_tokens", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "No services configured")
}
