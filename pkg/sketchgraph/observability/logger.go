// Package observability provides structured logging, metrics, and
// tracing for the conversion pipeline.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger carrying job_id and stage fields.
func EnrichLogger(logger *slog.Logger, jobID, stage string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("job_id", jobID),
		slog.String("stage", stage),
	)
}

// LogJobStart logs the start of a pipeline run.
func LogJobStart(logger *slog.Logger, jobID string) {
	if logger == nil {
		return
	}
	logger.Info("pipeline starting",
		slog.String("job_id", jobID),
	)
}

// LogJobComplete logs a pipeline run reaching a terminal state.
func LogJobComplete(logger *slog.Logger, jobID, state string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("pipeline completed",
		slog.String("job_id", jobID),
		slog.String("state", state),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogJobError logs a pipeline failure.
func LogJobError(logger *slog.Logger, jobID string, err error, durationMs float64, lastStage string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline failed",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_stage", lastStage),
	)
}

// LogStageStart logs stage execution start.
func LogStageStart(logger *slog.Logger, stage string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting",
		slog.String("stage", stage),
	)
}

// LogStageComplete logs successful stage completion.
func LogStageComplete(logger *slog.Logger, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStageError logs stage execution failure.
func LogStageError(logger *slog.Logger, stage string, err error) {
	if logger == nil {
		return
	}
	logger.Error("stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// LogRenderDowngrade logs a render failure that downgrades the job
// instead of failing it.
func LogRenderDowngrade(logger *slog.Logger, jobID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("render failed, completing with warnings",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
