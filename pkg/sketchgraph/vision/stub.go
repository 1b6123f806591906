package vision

import (
	"context"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
)

// Stub is a Provider returning a fixed three-node flowchart. It keeps
// the pipeline runnable without an API key or network access.
type Stub struct{}

// Analyze implements Provider.
func (Stub) Analyze(_ context.Context, _ []byte, _ string, _ progress.Sink) (map[string]any, error) {
	return map[string]any{
		"diagram_type": "flowchart",
		"nodes": []any{
			map[string]any{"id": "start", "label": "Start", "shape": "circle"},
			map[string]any{"id": "check", "label": "Input valid?", "shape": "diamond"},
			map[string]any{"id": "done", "label": "Done", "shape": "rectangle"},
		},
		"edges": []any{
			map[string]any{"from": "start", "to": "check"},
			map[string]any{"from": "check", "to": "done", "label": "yes"},
		},
	}, nil
}
