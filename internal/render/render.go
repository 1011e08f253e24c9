// Package render turns a per-pixel classification into a color-coded image.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"lightshade/internal/pixel"
	"lightshade/pkg/colorutil"
)

// Palette maps each class to its display color. Alpha is always opaque.
var Palette = [pixel.NumClasses]color.NRGBA{
	pixel.SoilShadow: colorutil.Gray,
	pixel.SoilLight:  colorutil.Yellow,
	pixel.MeshShadow: colorutil.DarkGreen,
	pixel.MeshLight:  colorutil.Green,
}

// ColorOf returns the palette color for c.
func ColorOf(c pixel.Class) color.NRGBA {
	return Palette[c]
}

// Render paints one output pixel per entry of classes, which is indexed
// [y][x]. The result has the same dimensions as the map and does not blend
// with the source image.
func Render(classes [][]pixel.Class) *image.NRGBA {
	height := len(classes)
	width := 0
	if height > 0 {
		width = len(classes[0])
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y, row := range classes {
		off := y * img.Stride
		for x, c := range row {
			col := Palette[c]
			i := off + x*4
			img.Pix[i+0] = col.R
			img.Pix[i+1] = col.G
			img.Pix[i+2] = col.B
			img.Pix[i+3] = col.A
		}
	}
	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// DataURL encodes img as a base64 PNG data URL.
func DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
