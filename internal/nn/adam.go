package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AdamConfig holds the optimizer hyperparameters.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultAdamConfig matches the defaults of common deep learning toolkits.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// adam keeps first and second moment estimates for every parameter of a
// network, stored flat in Layers() order.
type adam struct {
	cfg  AdamConfig
	step int

	mW, vW [][]float64
	mB, vB [][]float64
}

func newAdam(cfg AdamConfig, layers []*Dense) *adam {
	a := &adam{cfg: cfg}
	for _, l := range layers {
		in, out := l.Shape()
		a.mW = append(a.mW, make([]float64, in*out))
		a.vW = append(a.vW, make([]float64, in*out))
		a.mB = append(a.mB, make([]float64, out))
		a.vB = append(a.vB, make([]float64, out))
	}
	return a
}

// apply performs one bias-corrected Adam step on every layer.
func (a *adam) apply(layers []*Dense, g gradients) {
	a.step++
	c1 := 1 - math.Pow(a.cfg.Beta1, float64(a.step))
	c2 := 1 - math.Pow(a.cfg.Beta2, float64(a.step))

	for i, l := range layers {
		a.update(rawData(l.W), rawData(g.w[i]), a.mW[i], a.vW[i], c1, c2)
		a.update(l.B, g.b[i], a.mB[i], a.vB[i], c1, c2)
	}
}

func (a *adam) update(params, grads, m, v []float64, c1, c2 float64) {
	b1, b2 := a.cfg.Beta1, a.cfg.Beta2
	for i, g := range grads {
		m[i] = b1*m[i] + (1-b1)*g
		v[i] = b2*v[i] + (1-b2)*g*g
		mhat := m[i] / c1
		vhat := v[i] / c2
		params[i] -= a.cfg.LearningRate * mhat / (math.Sqrt(vhat) + a.cfg.Epsilon)
	}
}

// rawData returns the backing slice of a matrix created by mat.NewDense.
func rawData(m *mat.Dense) []float64 {
	return m.RawMatrix().Data
}
