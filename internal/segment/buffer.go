// Package segment classifies every pixel of an image into soil/mesh and
// light/shadow classes using a network trained on synthetic samples, and
// aggregates the light and shadow shares.
package segment

import (
	"fmt"
	"image"

	"lightshade/internal/pixel"
)

// PixelBuffer is a decoded image as tightly packed, non-premultiplied RGBA
// bytes in row-major order.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer copies img into a tightly packed buffer.
func NewPixelBuffer(img *image.NRGBA) PixelBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := PixelBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(buf.Pix[y*w*4:(y+1)*w*4], src[:w*4])
	}
	return buf
}

// Validate rejects zero-area buffers and buffers whose byte length does not
// match their dimensions.
func (b PixelBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d has no pixels", ErrInvalidImageBuffer, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d, want %d", ErrInvalidImageBuffer, len(b.Pix), b.Width, b.Height, want)
	}
	return nil
}

// Len returns the number of pixels.
func (b PixelBuffer) Len() int {
	return b.Width * b.Height
}

// At returns the RGB sample at (x, y); alpha is ignored.
func (b PixelBuffer) At(x, y int) pixel.Sample {
	i := (y*b.Width + x) * 4
	return pixel.Sample{R: float64(b.Pix[i]), G: float64(b.Pix[i+1]), B: float64(b.Pix[i+2])}
}

// ClassificationMap holds one class per pixel, indexed [y][x].
type ClassificationMap [][]pixel.Class

// Dims returns the width and height of the map.
func (m ClassificationMap) Dims() (width, height int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m[0]), len(m)
}
