// Package preprocess defines the image normalization collaborator.
//
// Pixel-level cleanup (deskew, denoise, contrast) is external to this
// system; the default implementation only loads and validates the image
// so the rest of the pipeline gets a decodable buffer.
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
)

// Preprocessor normalizes an input image for downstream stages.
// When debugDir is non-empty, implementations may drop intermediate
// artifacts there using the debug_ name prefix.
type Preprocessor interface {
	Preprocess(ctx context.Context, img []byte, debugDir string) ([]byte, error)
}

// Load reads an image file and verifies it decodes.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// Passthrough is a Preprocessor that returns the image unchanged,
// optionally keeping a debug copy of what the vision stage will see.
type Passthrough struct {
	KeepDebugCopy bool
}

// Preprocess implements Preprocessor.
func (p Passthrough) Preprocess(_ context.Context, img []byte, debugDir string) ([]byte, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if p.KeepDebugCopy && debugDir != "" {
		// Best effort; a failed debug write never fails the stage.
		_ = os.WriteFile(filepath.Join(debugDir, "debug_preprocessed.img"), img, 0o644)
	}
	return img, nil
}
