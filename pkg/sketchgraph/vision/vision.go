// Package vision defines the recognition backend contract and the
// resilience layer every backend call goes through: rate-limit retry
// with backoff, and JSON extraction from free-form model replies.
package vision

import (
	"context"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/progress"
)

// Provider is the capability a recognition backend offers: given an
// image and a prompt, return a structured guess at the diagram.
//
// The returned payload is untrusted; the inference engine validates it.
// Implementations surface throttling as a RateLimitError-categorized
// error and everything else as a TransportError, and publish wait/resume
// events to the sink while backing off.
type Provider interface {
	Analyze(ctx context.Context, image []byte, prompt string, sink progress.Sink) (map[string]any, error)
}

// FlowchartPrompt instructs the backend to describe the flowchart as a
// JSON node/edge structure the inference engine understands.
const FlowchartPrompt = `You are given a photo of a hand-drawn or printed flowchart.
Identify every node and every connection between nodes.

Respond with a single JSON object, no commentary:
{
  "diagram_type": "flowchart",
  "nodes": [
    {"id": "<id as written, or a short unique id>",
     "label": "<text inside the node>",
     "shape": "rectangle|diamond|circle|cylinder|parallelogram",
     "bbox": [x, y, w, h]}
  ],
  "edges": [
    {"from": "<source node id>", "to": "<target node id>",
     "label": "<text on the arrow, if any>",
     "type": "arrow|dotted|thick"}
  ]
}

Use "diamond" for decision shapes, "cylinder" for data stores, and
"parallelogram" for input/output. Omit "label" on unlabeled edges.`
