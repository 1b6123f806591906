// Package mermaid serializes canonical diagrams to Mermaid flowchart
// code and shells out to the mermaid CLI to render it.
package mermaid

import (
	"strings"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/graph"
)

// Generate converts a Diagram into Mermaid flowchart code.
//
// It is a pure function of the Diagram: output depends only on the
// already-fixed order of the node and edge lists, so the same Diagram
// always yields byte-identical text.
func Generate(d *graph.Diagram) string {
	lines := make([]string, 0, 1+len(d.Nodes)+len(d.Edges))
	lines = append(lines, "flowchart TD")

	for _, n := range d.Nodes {
		lines = append(lines, "    "+nodeDecl(n))
	}

	for _, e := range d.Edges {
		lines = append(lines, "    "+edgeDecl(e))
	}

	return strings.Join(lines, "\n")
}

// SanitizeID maps every character outside the ASCII letter/digit range
// to an underscore so ids cannot break Mermaid syntax.
func SanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// labelReplacer applies the label substitutions in their required order:
// shape-delimiter brackets first, then quotes, line breaks, ampersands.
var labelReplacer = strings.NewReplacer(
	"[", "(",
	"]", ")",
	"{", "(",
	"}", ")",
	`"`, "'",
	"\n", "<br/>",
	"\r", "",
	"&", "and",
)

// SanitizeLabel rewrites characters that conflict with Mermaid node
// syntax or HTML rendering. A missing label sanitizes to the empty string.
func SanitizeLabel(label string) string {
	if label == "" {
		return ""
	}
	return labelReplacer.Replace(label)
}

// nodeDecl renders one node declaration with its shape syntax.
func nodeDecl(n graph.Node) string {
	id := SanitizeID(n.ID)
	label := SanitizeLabel(n.Label)

	switch n.Shape {
	case graph.ShapeDiamond, graph.ShapeDecision:
		return id + `{"` + label + `"}`
	case graph.ShapeCircle:
		return id + `(("` + label + `"))`
	case graph.ShapeCylinder:
		return id + `[("` + label + `")]`
	case graph.ShapeParallelogram:
		return id + `[/"` + label + `"/]`
	default:
		return id + `["` + label + `"]`
	}
}

// edgeDecl renders one edge declaration with its connector.
func edgeDecl(e graph.Edge) string {
	src := SanitizeID(e.Source)
	tgt := SanitizeID(e.Target)

	arrow := "-->"
	switch e.Type {
	case graph.EdgeDotted:
		arrow = "-.->"
	case graph.EdgeThick:
		arrow = "==>"
	}

	if e.Label != "" {
		return src + " " + arrow + "|" + SanitizeLabel(e.Label) + "| " + tgt
	}
	return src + " " + arrow + " " + tgt
}
