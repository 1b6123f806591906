package job

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/graph"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/mermaid"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/observability"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/ocr"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/preprocess"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/vision"
)

// Coordinator owns job state and drives the six-stage pipeline.
//
// Each submitted job runs as one goroutine executing its stages strictly
// in order; concurrent jobs share only the Store. Submit is idempotent:
// at most one run per id is in flight, and resubmitting a processing or
// completed job reports the existing state without starting new work.
type Coordinator struct {
	store    Store
	provider vision.Provider
	extract  ocr.Extractor
	pre      preprocess.Preprocessor
	renderer *mermaid.Renderer
	engine   *graph.Engine
	jobsDir  string
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithStore sets the job status store.
func WithStore(store Store) CoordinatorOption {
	return func(c *Coordinator) { c.store = store }
}

// WithProvider sets the vision backend.
func WithProvider(p vision.Provider) CoordinatorOption {
	return func(c *Coordinator) { c.provider = p }
}

// WithExtractor sets the OCR collaborator.
func WithExtractor(e ocr.Extractor) CoordinatorOption {
	return func(c *Coordinator) { c.extract = e }
}

// WithPreprocessor sets the image preprocessing collaborator.
func WithPreprocessor(p preprocess.Preprocessor) CoordinatorOption {
	return func(c *Coordinator) { c.pre = p }
}

// WithRenderer sets the diagram renderer.
func WithRenderer(r *mermaid.Renderer) CoordinatorOption {
	return func(c *Coordinator) { c.renderer = r }
}

// WithEngine sets the inference engine.
func WithEngine(e *graph.Engine) CoordinatorOption {
	return func(c *Coordinator) { c.engine = e }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithSpans sets the trace span manager.
func WithSpans(s observability.SpanManager) CoordinatorOption {
	return func(c *Coordinator) { c.spans = s }
}

// NewCoordinator creates a coordinator over the given jobs directory.
// Each job owns the subdirectory named by its id.
func NewCoordinator(jobsDir string, opts ...CoordinatorOption) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:    NewMemoryStore(),
		provider: vision.Stub{},
		extract:  ocr.Noop{},
		pre:      preprocess.Passthrough{},
		renderer: mermaid.NewRenderer(),
		jobsDir:  jobsDir,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = graph.NewEngine(graph.WithLogger(c.logger))
	}
	return c
}

// JobDir returns the directory owned by a job id.
func (c *Coordinator) JobDir(id string) string {
	return filepath.Join(c.jobsDir, id)
}

// Submit queues the pipeline for a job id. If the job is in flight or
// completed it reports the existing state and starts nothing; otherwise
// the state becomes queued and the pipeline runs asynchronously.
//
// In-flight covers the transient wait/retry markers too: a run backing
// off on a rate limit still owns its job directory and store entry, so
// a resubmit mid-backoff must not start a second run.
func (c *Coordinator) Submit(id string) (string, bool, error) {
	prev, swapped, err := c.store.CompareAndSet(id, StateQueued, func(current string, exists bool) bool {
		return !exists || (!IsInFlight(current) && current != StateCompleted)
	})
	if err != nil {
		return "", false, err
	}
	if !swapped {
		return prev, false, nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(c.ctx, id)
	}()

	return StateQueued, true, nil
}

// Status returns the current state for a job id, or StateNotFound.
func (c *Coordinator) Status(id string) (string, error) {
	status, ok, err := c.store.Get(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return StateNotFound, nil
	}
	return status, nil
}

// Close cancels in-flight jobs at their next stage boundary and waits
// for their goroutines to finish.
func (c *Coordinator) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}

// run executes the pipeline for one job and records its terminal state.
func (c *Coordinator) run(ctx context.Context, id string) {
	start := time.Now()
	observability.LogJobStart(c.logger, id)

	ctx, jobSpan := c.spans.StartJobSpan(ctx, id)

	if err := c.store.Set(id, StateProcessing); err != nil {
		c.logger.Error("cannot mark job processing", slog.String("job_id", id), slog.String("error", err.Error()))
		c.spans.EndSpanWithError(jobSpan, err)
		return
	}

	// The vision adapter publishes wait/retry markers here; they
	// overwrite the status until the run reaches a terminal state.
	stream := progress.NewStream(16)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for evt := range stream.Events() {
			_ = c.store.Set(id, evt.Status)
			if evt.Wait > 0 {
				c.metrics.RecordRateLimitWait(ctx, evt.Wait)
			}
		}
	}()

	p := &pipeline{jobID: id, dir: c.JobDir(id), sink: stream}

	var failure error
	lastStage := ""
	warned := false

	for _, st := range c.stages() {
		if err := ctx.Err(); err != nil {
			failure = err
			break
		}

		lastStage = st.name
		logger := observability.EnrichLogger(c.logger, id, st.name)
		observability.LogStageStart(logger, st.name)

		stageCtx, stageSpan := c.spans.StartStageSpan(ctx, st.name)
		stageStart := time.Now()
		err := st.run(stageCtx, p)
		stageDur := time.Since(stageStart)

		c.metrics.RecordStageExecution(stageCtx, st.name, stageDur, err)
		c.spans.EndSpanWithError(stageSpan, err)

		if err != nil {
			if st.policy == downgradeOnFailure {
				observability.LogRenderDowngrade(c.logger, id, err)
				warned = true
				continue
			}
			observability.LogStageError(logger, st.name, err)
			failure = err
			break
		}

		observability.LogStageComplete(logger, st.name, float64(stageDur.Milliseconds()))
	}

	// Terminal state must not race with buffered transient events, so
	// drain the stream before the final write.
	stream.Close()
	<-consumed

	final := StateCompleted
	switch {
	case failure != nil:
		final = StateFailed(failure.Error())
	case warned:
		final = StateCompletedWithWarnings
	}
	_ = c.store.Set(id, final)

	// Metric label drops the failure detail to keep cardinality bounded.
	label := final
	if failure != nil {
		label = "failed"
	}

	elapsed := time.Since(start)
	c.metrics.RecordJobRun(ctx, label, elapsed)
	c.spans.EndSpanWithError(jobSpan, failure)

	if failure != nil {
		observability.LogJobError(c.logger, id, failure, float64(elapsed.Milliseconds()), lastStage)
		return
	}
	observability.LogJobComplete(c.logger, id, final, float64(elapsed.Milliseconds()))
}
