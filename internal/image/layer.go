// Package image loads plot photographs into the pixel layout used for
// classification.
package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lightshade/internal/segment"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadOptions control decoding.
type LoadOptions struct {
	// MaxDim, if positive, downscales images whose larger side exceeds it,
	// preserving aspect ratio.
	MaxDim int
}

// Layer is a decoded photograph ready for classification.
type Layer struct {
	Path   string       // Original file path, empty when decoded from a reader
	Format string       // Decoder name: "jpeg", "png", ...
	Image  *image.NRGBA // Oriented, possibly downscaled pixels

	// Dimensions before downscaling
	SourceWidth  int
	SourceHeight int
}

// Load reads and decodes the image at path.
func Load(path string, opts LoadOptions) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	layer, err := DecodeBytes(data, opts)
	if err != nil {
		return nil, err
	}
	layer.Path = path
	return layer, nil
}

// Decode reads an image from r.
func Decode(r io.Reader, opts LoadOptions) (*Layer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return DecodeBytes(data, opts)
}

// DecodeBytes decodes an encoded image, applying the EXIF orientation so the
// pixels match what a viewer shows.
func DecodeBytes(data []byte, opts LoadOptions) (*Layer, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	layer := &Layer{
		Format:       format,
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
	}

	if opts.MaxDim > 0 && (bounds.Dx() > opts.MaxDim || bounds.Dy() > opts.MaxDim) {
		layer.Image = imaging.Fit(img, opts.MaxDim, opts.MaxDim, imaging.Lanczos)
	} else {
		layer.Image = imaging.Clone(img)
	}

	return layer, nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Downscaled reports whether the pixels are smaller than the source.
func (l *Layer) Downscaled() bool {
	return l.Width() != l.SourceWidth || l.Height() != l.SourceHeight
}

// Thumbnail returns a preview cropped to fill size x size.
func (l *Layer) Thumbnail(size int) *image.NRGBA {
	return imaging.Thumbnail(l.Image, size, size, imaging.Box)
}

// Buffer returns the layer pixels in the layout the classifier consumes.
func (l *Layer) Buffer() segment.PixelBuffer {
	return segment.NewPixelBuffer(l.Image)
}

// ToBuffer converts any image to a non-premultiplied RGBA pixel buffer.
func ToBuffer(img image.Image) segment.PixelBuffer {
	if n, ok := img.(*image.NRGBA); ok {
		return segment.NewPixelBuffer(n)
	}
	return segment.NewPixelBuffer(imaging.Clone(img))
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".tiff", ".tif", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
