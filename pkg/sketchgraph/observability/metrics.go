package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStageExecution records a stage execution with its duration and error status.
	RecordStageExecution(ctx context.Context, stage string, duration time.Duration, err error)

	// RecordJobRun records a pipeline run reaching a terminal state.
	RecordJobRun(ctx context.Context, state string, duration time.Duration)

	// RecordRateLimitWait records a vision backend backoff wait.
	RecordRateLimitWait(ctx context.Context, wait time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stageExecutions metric.Int64Counter
	stageLatency    metric.Float64Histogram
	stageErrors     metric.Int64Counter
	jobRuns         metric.Int64Counter
	jobLatency      metric.Float64Histogram
	rateLimitWaits  metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("sketchgraph")

	stageExecutions, err := meter.Int64Counter("sketchgraph.stage.executions",
		metric.WithDescription("Number of stage executions"),
	)
	if err != nil {
		return nil, err
	}

	stageLatency, err := meter.Float64Histogram("sketchgraph.stage.latency_ms",
		metric.WithDescription("Stage execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter("sketchgraph.stage.errors",
		metric.WithDescription("Number of stage execution errors"),
	)
	if err != nil {
		return nil, err
	}

	jobRuns, err := meter.Int64Counter("sketchgraph.job.runs",
		metric.WithDescription("Number of pipeline runs by terminal state"),
	)
	if err != nil {
		return nil, err
	}

	jobLatency, err := meter.Float64Histogram("sketchgraph.job.latency_ms",
		metric.WithDescription("Pipeline run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitWaits, err := meter.Float64Histogram("sketchgraph.vision.rate_limit_wait_s",
		metric.WithDescription("Vision backend backoff wait in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stageExecutions: stageExecutions,
		stageLatency:    stageLatency,
		stageErrors:     stageErrors,
		jobRuns:         jobRuns,
		jobLatency:      jobLatency,
		rateLimitWaits:  rateLimitWaits,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		return NoopMetrics{}
	}
	return m
}

// RecordStageExecution implements MetricsRecorder.
func (m *otelMetrics) RecordStageExecution(ctx context.Context, stage string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", err == nil),
	)
	m.stageExecutions.Add(ctx, 1, attrs)
	m.stageLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.stageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordJobRun implements MetricsRecorder.
func (m *otelMetrics) RecordJobRun(ctx context.Context, state string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("state", state))
	m.jobRuns.Add(ctx, 1, attrs)
	m.jobLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordRateLimitWait implements MetricsRecorder.
func (m *otelMetrics) RecordRateLimitWait(ctx context.Context, wait time.Duration) {
	m.rateLimitWaits.Record(ctx, wait.Seconds())
}
