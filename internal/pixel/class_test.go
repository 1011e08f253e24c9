package pixel

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownPixels(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		want    Class
	}{
		{"dark red soil", 200, 50, 50, SoilShadow},
		{"dark gray soil", 50, 50, 50, SoilShadow},
		{"dark green mesh", 10, 200, 10, MeshShadow},
		{"bright green mesh", 100, 255, 100, MeshLight},
		{"saturated green stays shadow below mesh intensity", 10, 250, 10, MeshShadow},
		{"bright soil", 200, 150, 150, SoilLight},
		{"white is soil light", 255, 255, 255, SoilLight},
		{"black is soil shadow", 0, 0, 0, SoilShadow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.r, tc.g, tc.b))
		})
	}
}

func TestClassifyThresholdOverlap(t *testing.T) {
	// greenRatio = 95/(90+90+1) ~ 0.5249, inside (0.52, 0.53].
	// Dark pixels in the band stay soil.
	assert.Equal(t, SoilShadow, Classify(90, 95, 90))

	// Bright pixels in the band take the soil-light branch first.
	assert.Equal(t, SoilLight, Classify(200, 211, 200))
	gr := GreenRatio(200, 211, 200)
	assert.True(t, gr > GreenRatioMesh && gr <= GreenRatioSoil)
}

func TestClassifyBoundaries(t *testing.T) {
	// intensity exactly 101 with a soil ratio is light.
	assert.Equal(t, SoilLight, Classify(101, 0, 202))
	// Pure green crosses the mesh intensity threshold between 400 and 420 summed.
	assert.Equal(t, MeshShadow, Classify(0, 400, 0))
	assert.Equal(t, MeshLight, Classify(0, 420, 0))
}

func TestClassifyIsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100000; i++ {
		r, g, b := rng.Float64()*255, rng.Float64()*255, rng.Float64()*255
		c := Classify(r, g, b)
		require.True(t, c.Valid(), "class %d for (%f,%f,%f)", c, r, g, b)
		assert.Equal(t, c, Classify(r, g, b))
	}
}

func TestClassLightGrouping(t *testing.T) {
	assert.False(t, SoilShadow.IsLight())
	assert.True(t, SoilLight.IsLight())
	assert.False(t, MeshShadow.IsLight())
	assert.True(t, MeshLight.IsLight())
	assert.Equal(t, "MESH_LIGHT", MeshLight.String())
	assert.Equal(t, "UNKNOWN", Class(9).String())
}
