package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeBytesKeepsPixels(t *testing.T) {
	layer, err := DecodeBytes(encodePNG(t, 20, 10), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "png", layer.Format)
	assert.Equal(t, 20, layer.Width())
	assert.Equal(t, 10, layer.Height())
	assert.False(t, layer.Downscaled())
	assert.Equal(t, color.NRGBA{R: 5, G: 3, B: 7, A: 255}, layer.Image.NRGBAAt(5, 3))
}

func TestDecodeBytesDownscales(t *testing.T) {
	layer, err := DecodeBytes(encodePNG(t, 200, 100), LoadOptions{MaxDim: 50})
	require.NoError(t, err)

	assert.Equal(t, 50, layer.Width())
	assert.Equal(t, 25, layer.Height())
	assert.Equal(t, 200, layer.SourceWidth)
	assert.True(t, layer.Downscaled())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")), LoadOptions{})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 8, 8), 0o644))

	layer, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, path, layer.Path)

	thumb := layer.Thumbnail(4)
	assert.Equal(t, 4, thumb.Bounds().Dx())

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"), LoadOptions{})
	assert.Error(t, err)
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("a/B.JPG"))
	assert.True(t, IsSupportedFormat("x.webp"))
	assert.False(t, IsSupportedFormat("notes.txt"))
}

func TestToBuffer(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 3, 2))
	rgba.Set(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	buf := ToBuffer(rgba)
	require.NoError(t, buf.Validate())
	assert.Equal(t, 3, buf.Width)
	assert.Equal(t, 2, buf.Height)
	s := buf.At(2, 1)
	assert.Equal(t, 10.0, s.R)
	assert.Equal(t, 20.0, s.G)
	assert.Equal(t, 30.0, s.B)

	layer, err := DecodeBytes(encodePNG(t, 4, 4), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 16, layer.Buffer().Len())
}
