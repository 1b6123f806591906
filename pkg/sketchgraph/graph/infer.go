package graph

import (
	"fmt"
	"log/slog"
	"strconv"

	sgerrors "github.com/randalmurphal/sketchgraph/pkg/sketchgraph/errors"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/ocr"
)

// Engine normalizes a raw vision payload into a canonical Diagram.
//
// The payload is untrusted: node and edge lists may be missing, hold
// duplicate ids, or reference nodes that do not exist. The engine drops
// what it cannot resolve rather than failing, and wraps anything truly
// unexpected in a BuildError.
type Engine struct {
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for dropped-element warnings.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an inference engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer builds a canonical Diagram from the vision payload.
//
// The hints parameter carries OCR text items. They are accepted but not
// merged into the result yet; label reconciliation against OCR positions
// is a known gap.
func (e *Engine) Infer(payload map[string]any, hints []ocr.TextItem) (d *Diagram, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = &sgerrors.BuildError{Err: fmt.Errorf("panic during inference: %v", r)}
		}
	}()

	_ = hints

	rawNodes, err := listField(payload, "nodes")
	if err != nil {
		return nil, &sgerrors.BuildError{Err: err}
	}
	rawEdges, err := listField(payload, "edges")
	if err != nil {
		return nil, &sgerrors.BuildError{Err: err}
	}

	// Node pass: first occurrence of an external id wins, canonical id
	// derives from the raw position so repeated runs agree.
	idMap := make(map[string]string, len(rawNodes))
	nodes := make([]Node, 0, len(rawNodes))

	for i, raw := range rawNodes {
		m, ok := raw.(map[string]any)
		if !ok {
			e.logger.Warn("skipping non-object node entry", slog.Int("index", i))
			continue
		}

		externalID := stringField(m, "id", fmt.Sprintf("gen_%d", i))
		if _, seen := idMap[externalID]; seen {
			continue
		}

		canonicalID := fmt.Sprintf("node_%d", i)
		idMap[externalID] = canonicalID

		nodes = append(nodes, Node{
			ID:    canonicalID,
			Label: stringField(m, "label", "Node"),
			Shape: stringField(m, "shape", ShapeRectangle),
			BBox:  intSliceField(m, "bbox"),
		})
	}

	// Edge pass: resolve endpoints through the id map, drop what does
	// not resolve, dedupe by resolved (source, target) pair.
	edges := make([]Edge, 0, len(rawEdges))
	seen := make(map[[2]string]struct{}, len(rawEdges))

	for i, raw := range rawEdges {
		m, ok := raw.(map[string]any)
		if !ok {
			e.logger.Warn("skipping non-object edge entry", slog.Int("index", i))
			continue
		}

		srcExt := stringField(m, "from", "")
		tgtExt := stringField(m, "to", "")

		src, srcOK := idMap[srcExt]
		tgt, tgtOK := idMap[tgtExt]
		if !srcOK || !tgtOK {
			e.logger.Warn("skipping edge with unresolved endpoint",
				slog.String("from", srcExt),
				slog.String("to", tgtExt),
			)
			continue
		}

		key := [2]string{src, tgt}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		edges = append(edges, Edge{
			Source: src,
			Target: tgt,
			Label:  stringField(m, "label", ""),
			Type:   stringField(m, "type", EdgeArrow),
		})
	}

	e.logger.Info("graph built",
		slog.Int("nodes", len(nodes)),
		slog.Int("edges", len(edges)),
	)

	return &Diagram{
		Type:  stringField(payload, "diagram_type", "flowchart"),
		Nodes: nodes,
		Edges: edges,
	}, nil
}

// listField returns the named field as a list. Missing fields yield an
// empty list; present fields of the wrong type are a build failure.
func listField(m map[string]any, key string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, expected list", key, v)
	}
	return list, nil
}

// stringField coerces the named field to a string, tolerating the
// numeric ids JSON decoding produces.
func stringField(m map[string]any, key, defaultVal string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return defaultVal
	}
}

// intSliceField extracts an integer slice, tolerating float64 elements
// from JSON decoding. Returns nil if the field is missing or malformed.
func intSliceField(m map[string]any, key string) []int {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	result := make([]int, 0, len(list))
	for _, item := range list {
		switch n := item.(type) {
		case float64:
			result = append(result, int(n))
		case int:
			result = append(result, n)
		default:
			return nil
		}
	}
	return result
}
