package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sgerrors "github.com/randalmurphal/sketchgraph/pkg/sketchgraph/errors"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/graph"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/mermaid"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/ocr"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/preprocess"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/vision"
)

// Reserved output names in a job directory. The input file is the one
// file whose name is none of these and lacks the debug prefix.
const (
	DiagramCodeFile   = "diagram.mmd"
	DiagramRasterFile = "diagram.png"
	DiagramVectorFile = "diagram.svg"

	debugPrefix = "debug_"
)

// failurePolicy decides what a stage error does to the job.
type failurePolicy int

const (
	// abortOnFailure halts remaining stages and fails the job.
	abortOnFailure failurePolicy = iota

	// downgradeOnFailure records a warning and lets the job complete,
	// used when the primary artifact already exists.
	downgradeOnFailure
)

// stage is one typed, fallible step of the pipeline.
type stage struct {
	name   string
	policy failurePolicy
	run    func(ctx context.Context, p *pipeline) error
}

// pipeline carries per-job state between stages. Each job owns exactly
// one pipeline; nothing here is shared across jobs.
type pipeline struct {
	jobID     string
	dir       string
	inputPath string
	image     []byte
	hints     []ocr.TextItem
	payload   map[string]any
	diagram   *graph.Diagram
	code      string
	sink      progress.Sink
}

// stages assembles the ordered stage list. Stage order is the pipeline
// contract: preprocessing, extraction, vision, inference, codegen, render.
func (c *Coordinator) stages() []stage {
	return []stage{
		{name: "preprocess", run: c.stagePreprocess},
		{name: "extract", run: c.stageExtract},
		{name: "vision", run: c.stageVision},
		{name: "infer", run: c.stageInfer},
		{name: "generate", run: c.stageGenerate},
		{name: "render", policy: downgradeOnFailure, run: c.stageRender},
	}
}

func (c *Coordinator) stagePreprocess(ctx context.Context, p *pipeline) error {
	input, err := findInput(p.dir)
	if err != nil {
		return &sgerrors.InputError{JobID: p.jobID}
	}
	p.inputPath = input

	img, err := preprocess.Load(input)
	if err != nil {
		return err
	}

	p.image, err = c.pre.Preprocess(ctx, img, p.dir)
	return err
}

func (c *Coordinator) stageExtract(ctx context.Context, p *pipeline) error {
	hints, err := c.extract.Extract(ctx, p.image)
	if err != nil {
		return err
	}
	p.hints = hints
	return nil
}

func (c *Coordinator) stageVision(ctx context.Context, p *pipeline) error {
	payload, err := c.provider.Analyze(ctx, p.image, vision.FlowchartPrompt, p.sink)
	if err != nil {
		return err
	}
	p.payload = payload
	return nil
}

func (c *Coordinator) stageInfer(_ context.Context, p *pipeline) error {
	diagram, err := c.engine.Infer(p.payload, p.hints)
	if err != nil {
		return err
	}
	p.diagram = diagram
	return nil
}

func (c *Coordinator) stageGenerate(_ context.Context, p *pipeline) error {
	p.code = mermaid.Generate(p.diagram)
	return os.WriteFile(filepath.Join(p.dir, DiagramCodeFile), []byte(p.code), 0o644)
}

func (c *Coordinator) stageRender(ctx context.Context, p *pipeline) error {
	return c.renderer.Render(ctx, p.code, filepath.Join(p.dir, DiagramRasterFile))
}

// findInput selects the input file from a job directory: the first
// regular file that is not a reserved output and not a debug artifact.
func findInput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == DiagramCodeFile || name == DiagramRasterFile || name == DiagramVectorFile {
			continue
		}
		if strings.HasPrefix(name, debugPrefix) {
			continue
		}
		return filepath.Join(dir, name), nil
	}

	return "", os.ErrNotExist
}
