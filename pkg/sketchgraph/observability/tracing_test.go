package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest swaps the package tracer for one backed by an in-memory
// exporter so tests can inspect finished spans.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	original := tracer
	tracer = provider.Tracer("sketchgraph")

	t.Cleanup(func() {
		tracer = original
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})

	return exporter
}

func TestStartJobSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	ctx, span := m.StartJobSpan(context.Background(), "job-42")
	require.NotNil(t, ctx)
	m.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sketchgraph.job", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("job.id", "job-42"))
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestStartStageSpan_IsChildOfJobSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	ctx, jobSpan := m.StartJobSpan(context.Background(), "job-1")
	_, stageSpan := m.StartStageSpan(ctx, "vision")

	m.EndSpanWithError(stageSpan, nil)
	m.EndSpanWithError(jobSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	// Stage span finishes first, so it comes out of the exporter first.
	assert.Equal(t, "sketchgraph.stage.vision", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func TestEndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	_, span := m.StartStageSpan(context.Background(), "render")
	m.EndSpanWithError(span, errors.New("mmdc exited with status 1"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestEndSpanWithError_NilSpan(t *testing.T) {
	m := NewSpanManager()

	// Must not panic.
	m.EndSpanWithError(nil, errors.New("ignored"))
}

func TestAddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	ctx, span := m.StartJobSpan(context.Background(), "job-1")
	m.AddSpanEvent(ctx, "rate_limit_wait", attribute.Int("wait_s", 11))
	m.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "rate_limit_wait", spans[0].Events[0].Name)
	assert.Contains(t, spans[0].Events[0].Attributes, attribute.Int("wait_s", 11))
}

func TestAddSpanEvent_NoSpanInContext(t *testing.T) {
	m := NewSpanManager()

	// No recording span in the context: silently dropped.
	m.AddSpanEvent(context.Background(), "orphan")
}
