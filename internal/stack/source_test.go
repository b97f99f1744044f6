package stack

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeGrayPage writes a WxH 8-bit page where every sample equals value.
func writeGrayPage(t *testing.T, path string, w, h int, value uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

const imagejSidecar = `{
	"imagej": {
		"XResolution": {"num": 4, "denom": 1},
		"unit": "um",
		"finterval": 2,
		"tunit": "s",
		"channels": 2
	}
}`

func TestOpenDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		writeGrayPage(t, filepath.Join(dir, "img_"+string(rune('a'+i))+".png"), 6, 5, uint8(10*i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(imagejSidecar), 0o644))

	src, err := OpenDir(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 4, src.Pages())

	t.Run("pages decode in filename order", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			plane, h, w, err := src.Plane(i)
			require.NoError(t, err)
			assert.Equal(t, 5, h)
			assert.Equal(t, 6, w)
			assert.Equal(t, float32(10*i), plane[0])
		}
	})

	t.Run("page out of range", func(t *testing.T) {
		_, _, _, err := src.Plane(4)
		assert.Error(t, err)
	})

	t.Run("sidecar calibration resolves", func(t *testing.T) {
		meta := src.Metadata()
		px, err := meta.PixelSizeUm()
		require.NoError(t, err)
		assert.InDelta(t, 0.25, px, 1e-12)

		finterval, err := meta.FrameIntervalMs()
		require.NoError(t, err)
		assert.InDelta(t, 2000, finterval, 1e-12)
	})
}

func TestOpenDirErrors(t *testing.T) {
	t.Parallel()

	t.Run("no image pages", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(imagejSidecar), 0o644))
		_, err := OpenDir(dir, "")
		assert.Error(t, err)
	})

	t.Run("missing sidecar", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeGrayPage(t, filepath.Join(dir, "img_a.png"), 4, 4, 0)
		_, err := OpenDir(dir, "")
		assert.Error(t, err)
	})

	t.Run("malformed sidecar", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeGrayPage(t, filepath.Join(dir, "img_a.png"), 4, 4, 0)
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte("{not json"), 0o644))
		_, err := OpenDir(dir, "")
		assert.Error(t, err)
	})

	t.Run("explicit metadata path", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeGrayPage(t, filepath.Join(dir, "img_a.png"), 4, 4, 0)
		metaPath := filepath.Join(t.TempDir(), "calib.json")
		require.NoError(t, os.WriteFile(metaPath, []byte(imagejSidecar), 0o644))

		src, err := OpenDir(dir, metaPath)
		require.NoError(t, err)
		assert.Equal(t, 1, src.Pages())
	})
}

func TestNewChannelFromSource(t *testing.T) {
	t.Parallel()

	// two channels interleaved over six pages
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeGrayPage(t, filepath.Join(dir, "img_"+string(rune('a'+i))+".png"), 4, 4, uint8(i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(imagejSidecar), 0o644))

	src, err := OpenDir(dir, "")
	require.NoError(t, err)

	t.Run("channel 0 takes even pages", func(t *testing.T) {
		t.Parallel()
		ch, err := NewChannel(src, 0, 0, "phase")
		require.NoError(t, err)
		assert.Equal(t, "phase", ch.Name())
		assert.Equal(t, 3, ch.Frames())
		assert.InDelta(t, 0.25, ch.PixelSizeUm(), 1e-12)
		assert.InDelta(t, 2000, ch.FrameIntervalMs(), 1e-12)

		arr, err := ch.Array()
		require.NoError(t, err)
		assert.Equal(t, float32(0), arr.At(0, 0, 0))
		assert.Equal(t, float32(2), arr.At(1, 0, 0))
		assert.Equal(t, float32(4), arr.At(2, 0, 0))
	})

	t.Run("channel 1 takes odd pages", func(t *testing.T) {
		t.Parallel()
		ch, err := NewChannel(src, 1, 0, "gfp")
		require.NoError(t, err)
		arr, err := ch.Array()
		require.NoError(t, err)
		assert.Equal(t, float32(1), arr.At(0, 0, 0))
		assert.Equal(t, float32(5), arr.At(2, 0, 0))
	})

	t.Run("timestamps synthesized from nominal interval", func(t *testing.T) {
		t.Parallel()
		ch, err := NewChannel(src, 0, 0, "phase")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 2000, 4000}, ch.ElapsedMs())
	})

	t.Run("absent channel errors", func(t *testing.T) {
		t.Parallel()
		_, err := NewChannel(src, 2, 0, "missing")
		assert.Error(t, err)
	})
}
