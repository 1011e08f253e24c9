// Package pixel defines the four pixel classes, the threshold rule that
// assigns them and the synthetic training data built from that rule.
package pixel

// Class identifies one of the four fine-grained pixel classes.
type Class uint8

const (
	SoilShadow Class = iota // Soil in shadow
	SoilLight               // Soil in direct light
	MeshShadow              // Shade mesh or vegetation in shadow
	MeshLight               // Shade mesh or vegetation in direct light
)

// NumClasses is the width of a one-hot label and of a model output row.
const NumClasses = 4

// Thresholds of the heuristic rule.
const (
	IntensitySoil  = 101.0
	IntensityMesh  = 135.4
	GreenRatioSoil = 0.53 // inclusive upper bound for soil
	GreenRatioMesh = 0.52 // exclusive lower bound for mesh
)

func (c Class) String() string {
	switch c {
	case SoilShadow:
		return "SOIL_SHADOW"
	case SoilLight:
		return "SOIL_LIGHT"
	case MeshShadow:
		return "MESH_SHADOW"
	case MeshLight:
		return "MESH_LIGHT"
	default:
		return "UNKNOWN"
	}
}

// IsLight reports whether the class counts toward the light percentage.
func (c Class) IsLight() bool {
	return c == SoilLight || c == MeshLight
}

// Valid reports whether c is one of the four known classes.
func (c Class) Valid() bool {
	return c < NumClasses
}

// Intensity is the mean of the three channels.
func Intensity(r, g, b float64) float64 {
	return (r + g + b) / 3
}

// GreenRatio is g / (r + b + 1).
func GreenRatio(r, g, b float64) float64 {
	return g / (r + b + 1)
}

// Classify applies the threshold rule to an RGB triple (channels 0-255).
//
// The soil and mesh green-ratio bounds overlap on (0.52, 0.53]; pixels in that
// band are soil when they fall under a soil branch, and bright ones above
// IntensityMesh end up as MeshLight through the final branch.
func Classify(r, g, b float64) Class {
	intensity := Intensity(r, g, b)
	greenRatio := GreenRatio(r, g, b)

	switch {
	case intensity < IntensitySoil && greenRatio <= GreenRatioSoil:
		return SoilShadow
	case intensity >= IntensitySoil && greenRatio <= GreenRatioSoil:
		return SoilLight
	case intensity < IntensityMesh && greenRatio > GreenRatioMesh:
		return MeshShadow
	default:
		return MeshLight
	}
}

// OneHot returns a length-NumClasses label with a 1 at c.
func OneHot(c Class) []float64 {
	label := make([]float64, NumClasses)
	label[c] = 1
	return label
}
