package preprocess_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/preprocess"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	t.Run("valid png", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sketch.png")
		require.NoError(t, os.WriteFile(path, encodePNG(t), 0o644))

		data, err := preprocess.Load(path)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := preprocess.Load(filepath.Join(t.TempDir(), "nope.png"))
		assert.ErrorContains(t, err, "read image")
	})

	t.Run("undecodable data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

		_, err := preprocess.Load(path)
		assert.ErrorContains(t, err, "decode image")
	})
}

func TestPassthrough(t *testing.T) {
	img := encodePNG(t)

	t.Run("returns image unchanged", func(t *testing.T) {
		out, err := preprocess.Passthrough{}.Preprocess(context.Background(), img, "")
		require.NoError(t, err)
		assert.Equal(t, img, out)
	})

	t.Run("rejects undecodable input", func(t *testing.T) {
		_, err := preprocess.Passthrough{}.Preprocess(context.Background(), []byte("junk"), "")
		assert.Error(t, err)
	})

	t.Run("keeps debug copy when asked", func(t *testing.T) {
		dir := t.TempDir()
		p := preprocess.Passthrough{KeepDebugCopy: true}

		_, err := p.Preprocess(context.Background(), img, dir)
		require.NoError(t, err)

		copied, err := os.ReadFile(filepath.Join(dir, "debug_preprocessed.img"))
		require.NoError(t, err)
		assert.Equal(t, img, copied)
	})

	t.Run("no debug copy by default", func(t *testing.T) {
		dir := t.TempDir()

		_, err := preprocess.Passthrough{}.Preprocess(context.Background(), img, dir)
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
