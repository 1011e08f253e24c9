// Package nn implements the small dense network used to classify pixels: a
// stack of fully connected layers with ReLU hidden activations, dropout and a
// softmax output, trained with Adam on categorical cross-entropy.
package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the non-linearity applied after a dense layer.
type Activation int

const (
	Linear Activation = iota
	ReLU
	Softmax
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Softmax:
		return "softmax"
	default:
		return "linear"
	}
}

// Dense is a fully connected layer computing act(x·W + b).
type Dense struct {
	Name       string
	W          *mat.Dense // in x out
	B          []float64  // out
	Activation Activation
}

// NewDense creates a layer with Glorot-uniform weights and zero biases.
func NewDense(name string, in, out int, act Activation, rng *rand.Rand) *Dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return &Dense{
		Name:       name,
		W:          mat.NewDense(in, out, data),
		B:          make([]float64, out),
		Activation: act,
	}
}

// Shape returns the input and output widths.
func (d *Dense) Shape() (in, out int) {
	return d.W.Dims()
}

// ParamCount returns the number of trainable scalars.
func (d *Dense) ParamCount() int {
	in, out := d.Shape()
	return in*out + out
}

// Forward returns act(x·W + b) as a new matrix.
func (d *Dense) Forward(x mat.Matrix) *mat.Dense {
	rows, _ := x.Dims()
	_, out := d.Shape()

	z := mat.NewDense(rows, out, nil)
	z.Mul(x, d.W)
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += d.B[j]
		}
		switch d.Activation {
		case ReLU:
			for j, v := range row {
				if v < 0 {
					row[j] = 0
				}
			}
		case Softmax:
			softmaxInPlace(row)
		}
	}
	return z
}

// softmaxInPlace normalises row to a probability distribution.
func softmaxInPlace(row []float64) {
	maxV := row[0]
	for _, v := range row[1:] {
		if v > maxV {
			maxV = v
		}
	}
	sum := 0.0
	for j, v := range row {
		e := math.Exp(v - maxV)
		row[j] = e
		sum += e
	}
	for j := range row {
		row[j] /= sum
	}
}

// Argmax returns the index of the largest value. On an exact tie the earlier
// index is kept.
func Argmax(row []float64) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

// dropoutMask returns an inverted-dropout mask: each entry is 0 with
// probability rate, otherwise 1/(1-rate).
func dropoutMask(rows, cols int, rate float64, rng *rand.Rand) *mat.Dense {
	keep := 1 / (1 - rate)
	data := make([]float64, rows*cols)
	for i := range data {
		if rng.Float64() >= rate {
			data[i] = keep
		}
	}
	return mat.NewDense(rows, cols, data)
}

// colSums returns the sum of each column of m.
func colSums(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	sums := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j, v := range m.RawRowView(i) {
			sums[j] += v
		}
	}
	return sums
}
