package mermaid

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	sgerrors "github.com/randalmurphal/sketchgraph/pkg/sketchgraph/errors"
)

// Renderer rasterizes Mermaid code using the mermaid CLI (mmdc).
// Rendering is best-effort: the coordinator treats a RenderError as a
// warning because the diagram text artifact already exists.
type Renderer struct {
	path    string
	timeout time.Duration
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRendererPath sets the path to the mmdc binary.
func WithRendererPath(path string) RendererOption {
	return func(r *Renderer) { r.path = path }
}

// WithRendererTimeout sets the render timeout.
func WithRendererTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) { r.timeout = d }
}

// NewRenderer creates a renderer. Assumes "mmdc" is available in PATH
// unless overridden with WithRendererPath.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		path:    "mmdc",
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the Mermaid code to a scratch file and invokes mmdc to
// produce the artifact at outputPath. The output format follows the
// outputPath extension.
func (r *Renderer) Render(ctx context.Context, code, outputPath string) error {
	format := strings.TrimPrefix(filepath.Ext(outputPath), ".")
	if format == "" {
		format = "png"
	}

	if _, err := exec.LookPath(r.path); err != nil {
		return &sgerrors.RenderError{Format: format, Err: fmt.Errorf("mermaid CLI not found: %w", err)}
	}

	scratch, err := os.CreateTemp("", "sketchgraph-*.mmd")
	if err != nil {
		return &sgerrors.RenderError{Format: format, Err: fmt.Errorf("create scratch file: %w", err)}
	}
	defer os.Remove(scratch.Name())

	if _, err := scratch.WriteString(code); err != nil {
		scratch.Close()
		return &sgerrors.RenderError{Format: format, Err: fmt.Errorf("write scratch file: %w", err)}
	}
	if err := scratch.Close(); err != nil {
		return &sgerrors.RenderError{Format: format, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path, "-i", scratch.Name(), "-o", outputPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &sgerrors.RenderError{
			Format: format,
			Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	return nil
}
