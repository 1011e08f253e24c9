package image

import (
	"image"
	"image/color"
)

// BlendMode specifies how a classification map is laid over its photograph.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	default:
		return "Unknown"
	}
}

// BlendModes lists the modes offered by the viewer.
var BlendModes = []BlendMode{BlendNormal, BlendMultiply, BlendScreen}

// ParseBlendMode returns the mode named s, or BlendNormal.
func ParseBlendMode(s string) BlendMode {
	for _, m := range BlendModes {
		if m.String() == s {
			return m
		}
	}
	return BlendNormal
}

// Overlay blends top over base at the given opacity. Both images are read from
// their bounds' origin; the result covers the intersection of their sizes.
func Overlay(base, top image.Image, mode BlendMode, opacity float64) *image.NRGBA {
	opacity = clamp(opacity, 0, 1)
	bb, tb := base.Bounds(), top.Bounds()
	w, h := min(bb.Dx(), tb.Dx()), min(bb.Dy(), tb.Dy())

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := base.At(bb.Min.X+x, bb.Min.Y+y)
			s := top.At(tb.Min.X+x, tb.Min.Y+y)
			dst.SetNRGBA(x, y, blend(d, s, mode, opacity))
		}
	}
	return dst
}

// blend performs the blend operation between two colors.
func blend(dst, src color.Color, mode BlendMode, opacity float64) color.NRGBA {
	sr, sg, sb, sa := src.RGBA()
	dr, dg, db, _ := dst.RGBA()

	sf := [4]float64{float64(sr) / 65535.0, float64(sg) / 65535.0, float64(sb) / 65535.0, float64(sa) / 65535.0}
	df := [3]float64{float64(dr) / 65535.0, float64(dg) / 65535.0, float64(db) / 65535.0}

	var rf [3]float64
	for i := 0; i < 3; i++ {
		switch mode {
		case BlendMultiply:
			rf[i] = sf[i] * df[i]
		case BlendScreen:
			rf[i] = 1 - (1-sf[i])*(1-df[i])
		default:
			rf[i] = sf[i]
		}
	}

	alpha := sf[3] * opacity
	return color.NRGBA{
		R: uint8(clamp(rf[0]*alpha+df[0]*(1-alpha), 0, 1)*255 + 0.5),
		G: uint8(clamp(rf[1]*alpha+df[1]*(1-alpha), 0, 1)*255 + 0.5),
		B: uint8(clamp(rf[2]*alpha+df[2]*(1-alpha), 0, 1)*255 + 0.5),
		A: 255,
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
