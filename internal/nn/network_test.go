package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomPixels(rng *rand.Rand, rows int) *mat.Dense {
	data := make([]float64, rows*InputSize)
	for i := range data {
		data[i] = rng.Float64() * 255
	}
	return mat.NewDense(rows, InputSize, data)
}

func TestNetworkArchitecture(t *testing.T) {
	net := New(rand.New(rand.NewSource(1)))

	want := [][2]int{{3, 64}, {64, 32}, {32, 4}}
	layers := net.Layers()
	require.Len(t, layers, len(want))
	for i, l := range layers {
		in, out := l.Shape()
		assert.Equal(t, want[i], [2]int{in, out}, "layer %s", l.Name)
		for _, b := range l.B {
			assert.Zero(t, b)
		}
	}
	assert.Equal(t, ReLU, layers[0].Activation)
	assert.Equal(t, ReLU, layers[1].Activation)
	assert.Equal(t, Softmax, layers[2].Activation)
	assert.Equal(t, DefaultDropout, net.DropoutRate)
	assert.Equal(t, 3*64+64+64*32+32+32*4+4, net.ParamCount())
	assert.Contains(t, net.Summary(), "3 -> 64(relu) -> 32(relu) -> 4(softmax)")
}

func TestGlorotInitBounds(t *testing.T) {
	net := New(rand.New(rand.NewSource(2)))
	for _, l := range net.Layers() {
		in, out := l.Shape()
		limit := math.Sqrt(6.0 / float64(in+out))
		for _, w := range rawData(l.W) {
			require.LessOrEqual(t, math.Abs(w), limit)
		}
	}
}

func TestPredictRowsAreDistributions(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net := New(rng)

	probs, err := net.Predict(randomPixels(rng, 500))
	require.NoError(t, err)

	rows, cols := probs.Dims()
	require.Equal(t, 500, rows)
	require.Equal(t, OutputSize, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for _, p := range probs.RawRowView(i) {
			require.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestPredictChunkedMatchesSinglePass(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	net := New(rng)
	rows := predictChunkRows*2 + 123
	x := randomPixels(rng, rows)

	got, err := net.Predict(x)
	require.NoError(t, err)

	for _, r := range []int{0, 1, predictChunkRows - 1, predictChunkRows, rows - 1} {
		want := net.evaluate(x.Slice(r, r+1, 0, InputSize))
		for j := 0; j < OutputSize; j++ {
			require.InDelta(t, want.At(0, j), got.At(r, j), 1e-12, "row %d", r)
		}
	}
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	net := New(nil)
	_, err := net.Predict(mat.NewDense(2, 4, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestArgmaxKeepsFirstOnTie(t *testing.T) {
	assert.Equal(t, 0, Argmax([]float64{0.25, 0.25, 0.25, 0.25}))
	assert.Equal(t, 1, Argmax([]float64{0.1, 0.4, 0.4, 0.1}))
	assert.Equal(t, 3, Argmax([]float64{0.1, 0.2, 0.3, 0.4}))
}

func TestDropoutMaskScaling(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := dropoutMask(200, 50, 0.2, rng)

	dropped := 0
	for _, v := range rawData(m) {
		if v == 0 {
			dropped++
			continue
		}
		require.InDelta(t, 1.25, v, 1e-12)
	}
	assert.InDelta(t, 0.2, float64(dropped)/10000, 0.03)
}

func TestBackwardMatchesNumericalGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	net := New(rng)
	net.DropoutRate = 0

	x := mat.NewDense(4, InputSize, nil)
	for i := 0; i < 4; i++ {
		x.SetRow(i, []float64{rng.Float64(), rng.Float64(), rng.Float64()})
	}
	y := mat.NewDense(4, OutputSize, nil)
	for i := 0; i < 4; i++ {
		y.Set(i, i%OutputSize, 1)
	}

	loss := func() float64 {
		l, _ := crossEntropy(net.evaluate(x), y)
		return l
	}
	grads := net.backward(net.forwardTrain(x), y)

	const h = 1e-6
	for li, l := range net.Layers() {
		w := rawData(l.W)
		gw := rawData(grads.w[li])
		for _, k := range []int{0, len(w) / 2, len(w) - 1} {
			orig := w[k]
			w[k] = orig + h
			up := loss()
			w[k] = orig - h
			down := loss()
			w[k] = orig

			numeric := (up - down) / (2 * h)
			assert.InDelta(t, numeric, gw[k], 1e-5, "layer %s weight %d", l.Name, k)
		}

		orig := l.B[0]
		l.B[0] = orig + h
		up := loss()
		l.B[0] = orig - h
		down := loss()
		l.B[0] = orig
		assert.InDelta(t, (up-down)/(2*h), grads.b[li][0], 1e-5, "layer %s bias 0", l.Name)
	}
}
