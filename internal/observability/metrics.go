// Package observability provides metrics for the tool surface and job engine.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics:
// - Latency: tool call and job durations
// - Traffic: tool call and job throughput
// - Errors: failed tool calls and non-completed jobs
// - Saturation: currently running background jobs
type Metrics struct {
	meter metric.Meter

	// Tool metrics
	ToolCallDuration metric.Float64Histogram
	ToolCallsTotal   metric.Int64Counter
	ToolErrorsTotal  metric.Int64Counter

	// Job metrics
	JobDuration metric.Float64Histogram
	JobsTotal   metric.Int64Counter
	JobsActive  metric.Int64UpDownCounter

	// Interactsh metrics
	ListenerStartsTotal metric.Int64Counter
	InteractionsPolled  metric.Int64Counter
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("kali-mcp-server")
	m := &Metrics{meter: meter}

	m.ToolCallDuration, err = meter.Float64Histogram(
		"tool_call_duration_seconds",
		metric.WithDescription("Tool call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ToolCallsTotal, err = meter.Int64Counter(
		"tool_calls_total",
		metric.WithDescription("Total number of tool calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ToolErrorsTotal, err = meter.Int64Counter(
		"tool_errors_total",
		metric.WithDescription("Total number of tool calls that returned an error result"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobDuration, err = meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Background job duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsTotal, err = meter.Int64Counter(
		"jobs_total",
		metric.WithDescription("Total number of background jobs created"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of currently running background jobs (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ListenerStartsTotal, err = meter.Int64Counter(
		"interactsh_listener_starts_total",
		metric.WithDescription("Total number of interactsh listener starts"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.InteractionsPolled, err = meter.Int64Counter(
		"interactsh_interactions_polled_total",
		metric.WithDescription("Total number of interactions read from the output file"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, isError bool, durationSeconds float64) {
	attrs := metric.WithAttributes(toolAttr(tool))
	m.ToolCallDuration.Record(ctx, durationSeconds, attrs)
	m.ToolCallsTotal.Add(ctx, 1, attrs)
	if isError {
		m.ToolErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordJobCreated records a new background job being created.
func (m *Metrics) RecordJobCreated(ctx context.Context) {
	m.JobsTotal.Add(ctx, 1)
	m.JobsActive.Add(ctx, 1)
}

// RecordJobFinished records a background job reaching a terminal state.
func (m *Metrics) RecordJobFinished(ctx context.Context, status string, durationSeconds float64) {
	m.JobsActive.Add(ctx, -1)
	m.JobDuration.Record(ctx, durationSeconds, metric.WithAttributes(statusAttr(status)))
}

// RecordListenerStart records an interactsh listener start attempt.
func (m *Metrics) RecordListenerStart(ctx context.Context, payloads int) {
	m.ListenerStartsTotal.Add(ctx, 1, metric.WithAttributes(payloadCountAttr(payloads)))
}

// RecordInteractionsPolled records interactions read by a poll.
func (m *Metrics) RecordInteractionsPolled(ctx context.Context, count int) {
	m.InteractionsPolled.Add(ctx, int64(count))
}
