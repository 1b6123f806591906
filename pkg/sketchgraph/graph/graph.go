// Package graph defines the canonical diagram model and the inference
// engine that builds it from untrusted vision output.
package graph

import "fmt"

// Node shapes recognized by the generator. Unknown shapes fall back to
// the rectangle form.
const (
	ShapeRectangle     = "rectangle"
	ShapeDiamond       = "diamond"
	ShapeDecision      = "decision"
	ShapeCircle        = "circle"
	ShapeCylinder      = "cylinder"
	ShapeParallelogram = "parallelogram"
)

// Edge types recognized by the generator. Unknown types render as the
// plain solid connector.
const (
	EdgeArrow  = "arrow"
	EdgeDotted = "dotted"
	EdgeThick  = "thick"
)

// Node is a single diagram element with a canonical id unique within
// its Diagram.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Shape string `json:"shape"`
	BBox  []int  `json:"bbox,omitempty"` // [x, y, w, h]
}

// Edge connects two nodes by canonical id. Both endpoints must exist in
// the owning Diagram's node list.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
	Type   string `json:"type"`
}

// Diagram is the validated, deduplicated graph representation.
// Node and edge order is fixed at build time; the generator depends on it.
type Diagram struct {
	Type  string `json:"type"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Validate checks the Diagram invariants: unique node ids, resolvable
// edge endpoints, and at most one edge per ordered (source, target) pair.
func (d *Diagram) Validate() error {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}

	pairs := make(map[[2]string]struct{}, len(d.Edges))
	for _, e := range d.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("edge source %q not in node list", e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("edge target %q not in node list", e.Target)
		}
		key := [2]string{e.Source, e.Target}
		if _, dup := pairs[key]; dup {
			return fmt.Errorf("duplicate edge %s -> %s", e.Source, e.Target)
		}
		pairs[key] = struct{}{}
	}

	return nil
}
