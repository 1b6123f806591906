package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoopMetrics_DoesNothing(t *testing.T) {
	m := NoopMetrics{}

	t.Run("stage execution does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStageExecution(context.Background(), "vision", 100*time.Millisecond, nil)
			m.RecordStageExecution(context.Background(), "render", 0, errors.New("test"))
		})
	})

	t.Run("job run does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordJobRun(context.Background(), "completed", 500*time.Millisecond)
			m.RecordJobRun(context.Background(), "failed", 0)
		})
	})

	t.Run("rate limit wait does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRateLimitWait(context.Background(), 11*time.Second)
		})
	})
}

func TestNoopSpanManager_StartJobSpan(t *testing.T) {
	sm := NoopSpanManager{}

	t.Run("returns same context", func(t *testing.T) {
		ctx := context.Background()
		newCtx, span := sm.StartJobSpan(ctx, "job-1")

		assert.Equal(t, ctx, newCtx, "Context should be unchanged")
		assert.NotNil(t, span, "Span should not be nil")
	})

	t.Run("span is valid noop span", func(t *testing.T) {
		_, span := sm.StartJobSpan(context.Background(), "job-1")
		assert.False(t, span.IsRecording())
	})
}

func TestNoopSpanManager_StartStageSpan(t *testing.T) {
	sm := NoopSpanManager{}

	ctx := context.Background()
	newCtx, span := sm.StartStageSpan(ctx, "infer")

	assert.Equal(t, ctx, newCtx, "Context should be unchanged")
	assert.False(t, span.IsRecording())
}

func TestNoopSpanManager_EndSpanWithError(t *testing.T) {
	sm := NoopSpanManager{}

	t.Run("does not panic with nil span", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, nil)
		})
	})

	t.Run("does not panic with error", func(t *testing.T) {
		_, span := sm.StartJobSpan(context.Background(), "job-1")
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(span, errors.New("test error"))
		})
	})
}

func TestNoopSpanManager_AddSpanEvent(t *testing.T) {
	sm := NoopSpanManager{}

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(context.Background(), "rate_limit_wait", attribute.Int("wait_s", 5))
		sm.AddSpanEvent(context.Background(), "")
	})
}

func TestNoopImplementations_FullRun(t *testing.T) {
	// Noop implementations must survive a realistic pipeline run untouched.
	metrics := NoopMetrics{}
	spans := NoopSpanManager{}

	ctx := context.Background()
	ctx, jobSpan := spans.StartJobSpan(ctx, "job-123")

	for i, stage := range []string{"preprocess", "vision", "generate"} {
		ctx, stageSpan := spans.StartStageSpan(ctx, stage)

		var err error
		if i == 1 {
			err = errors.New("simulated error")
			metrics.RecordRateLimitWait(ctx, 5*time.Second)
			spans.AddSpanEvent(ctx, "rate_limit_wait", attribute.Int64("wait_s", 5))
		}

		metrics.RecordStageExecution(ctx, stage, time.Millisecond, err)
		spans.EndSpanWithError(stageSpan, err)
	}

	metrics.RecordJobRun(ctx, "completed", 100*time.Millisecond)
	spans.EndSpanWithError(jobSpan, nil)
}
