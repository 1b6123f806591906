// Package ocr defines the text-extraction collaborator contract.
//
// Extracted text items are threaded through the pipeline as hints for
// the inference engine. The engine does not currently merge them into
// its output; they are carried for future label reconciliation.
package ocr

import "context"

// TextItem is one recognized text fragment with its position.
type TextItem struct {
	Text       string  `json:"text"`
	BBox       []int   `json:"bbox,omitempty"` // [x, y, w, h]
	Confidence float64 `json:"confidence,omitempty"`
}

// Extractor recognizes text fragments in an image buffer.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]TextItem, error)
}

// Noop is an Extractor that finds nothing. Used when no OCR engine is
// configured; the vision backend carries label recognition on its own.
type Noop struct{}

// Extract implements Extractor.
func (Noop) Extract(_ context.Context, _ []byte) ([]TextItem, error) {
	return nil, nil
}
