package nn

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Network dimensions and regularisation.
const (
	InputSize   = 3
	Hidden1Size = 64
	Hidden2Size = 32
	OutputSize  = 4

	DefaultDropout = 0.2
)

// predictChunkRows bounds the activation matrices allocated per worker during
// Predict.
const predictChunkRows = 16384

// Network is a 3 -> 64 -> 32 -> 4 classifier. Dropout follows each hidden
// layer and is only applied while training.
//
// A Network is not safe for concurrent training. Predict may run concurrently
// with other Predict calls as long as no training is in progress.
type Network struct {
	hidden1 *Dense
	hidden2 *Dense
	output  *Dense

	DropoutRate float64

	rng *rand.Rand
}

// New builds an untrained network. A nil rng uses a time-seeded source.
func New(rng *rand.Rand) *Network {
	if rng == nil {
		rng = newRand()
	}
	return &Network{
		hidden1:     NewDense("dense1", InputSize, Hidden1Size, ReLU, rng),
		hidden2:     NewDense("dense2", Hidden1Size, Hidden2Size, ReLU, rng),
		output:      NewDense("output", Hidden2Size, OutputSize, Softmax, rng),
		DropoutRate: DefaultDropout,
		rng:         rng,
	}
}

// Layers returns the dense layers in order.
func (n *Network) Layers() []*Dense {
	return []*Dense{n.hidden1, n.hidden2, n.output}
}

// ParamCount returns the number of trainable scalars.
func (n *Network) ParamCount() int {
	total := 0
	for _, l := range n.Layers() {
		total += l.ParamCount()
	}
	return total
}

// Summary returns a one-line description of the architecture.
func (n *Network) Summary() string {
	s := ""
	for i, l := range n.Layers() {
		in, out := l.Shape()
		if i == 0 {
			s = fmt.Sprintf("%d", in)
		}
		s += fmt.Sprintf(" -> %d(%s)", out, l.Activation)
	}
	return fmt.Sprintf("%s, dropout %.1f, %d params", s, n.DropoutRate, n.ParamCount())
}

// Predict returns one softmax distribution per row of x (rows x OutputSize).
// Large batches are evaluated in row chunks across the available CPUs; the
// result is the same as a single pass.
func (n *Network) Predict(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != InputSize {
		return nil, fmt.Errorf("%w: got %d columns, want %d", ErrShapeMismatch, cols, InputSize)
	}

	if rows <= predictChunkRows {
		return n.evaluate(x), nil
	}

	out := mat.NewDense(rows, OutputSize, nil)

	starts := make(chan int)
	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for start := range starts {
				end := start + predictChunkRows
				if end > rows {
					end = rows
				}
				probs := n.evaluate(x.Slice(start, end, 0, InputSize))
				out.Slice(start, end, 0, OutputSize).(*mat.Dense).Copy(probs)
			}
		}()
	}
	for start := 0; start < rows; start += predictChunkRows {
		starts <- start
	}
	close(starts)
	wg.Wait()

	return out, nil
}

// evaluate runs the inference pass: no dropout.
func (n *Network) evaluate(x mat.Matrix) *mat.Dense {
	a1 := n.hidden1.Forward(x)
	a2 := n.hidden2.Forward(a1)
	return n.output.Forward(a2)
}

// trainingPass holds the activations of a forward pass with dropout, needed
// for backpropagation.
type trainingPass struct {
	x      mat.Matrix
	a1, m1 *mat.Dense // ReLU output and dropout mask of hidden1
	d1     *mat.Dense // a1 after dropout
	a2, m2 *mat.Dense
	d2     *mat.Dense
	probs  *mat.Dense
}

func (n *Network) forwardTrain(x mat.Matrix) *trainingPass {
	rows, _ := x.Dims()
	p := &trainingPass{x: x}

	p.a1 = n.hidden1.Forward(x)
	p.m1 = dropoutMask(rows, Hidden1Size, n.DropoutRate, n.rng)
	p.d1 = mat.NewDense(rows, Hidden1Size, nil)
	p.d1.MulElem(p.a1, p.m1)

	p.a2 = n.hidden2.Forward(p.d1)
	p.m2 = dropoutMask(rows, Hidden2Size, n.DropoutRate, n.rng)
	p.d2 = mat.NewDense(rows, Hidden2Size, nil)
	p.d2.MulElem(p.a2, p.m2)

	p.probs = n.output.Forward(p.d2)
	return p
}

// gradients holds dL/dW and dL/db for every layer, in Layers() order.
type gradients struct {
	w []*mat.Dense
	b [][]float64
}

// backward computes the gradients of the mean cross-entropy of p against y.
func (n *Network) backward(p *trainingPass, y mat.Matrix) gradients {
	rows, _ := p.probs.Dims()

	// Softmax + cross-entropy: dz = (p - y) / batch.
	dz3 := mat.NewDense(rows, OutputSize, nil)
	dz3.Sub(p.probs, y)
	dz3.Scale(1/float64(rows), dz3)

	dw3 := mat.NewDense(Hidden2Size, OutputSize, nil)
	dw3.Mul(p.d2.T(), dz3)

	dz2 := mat.NewDense(rows, Hidden2Size, nil)
	dz2.Mul(dz3, n.output.W.T())
	maskReLU(dz2, p.a2, p.m2)

	dw2 := mat.NewDense(Hidden1Size, Hidden2Size, nil)
	dw2.Mul(p.d1.T(), dz2)

	dz1 := mat.NewDense(rows, Hidden1Size, nil)
	dz1.Mul(dz2, n.hidden2.W.T())
	maskReLU(dz1, p.a1, p.m1)

	dw1 := mat.NewDense(InputSize, Hidden1Size, nil)
	dw1.Mul(p.x.T(), dz1)

	return gradients{
		w: []*mat.Dense{dw1, dw2, dw3},
		b: [][]float64{colSums(dz1), colSums(dz2), colSums(dz3)},
	}
}

// maskReLU multiplies the upstream gradient g by the dropout mask and zeroes
// entries whose ReLU output was not positive.
func maskReLU(g, act, mask *mat.Dense) {
	rows, _ := g.Dims()
	for i := 0; i < rows; i++ {
		gr := g.RawRowView(i)
		ar := act.RawRowView(i)
		mr := mask.RawRowView(i)
		for j := range gr {
			if ar[j] <= 0 {
				gr[j] = 0
			} else {
				gr[j] *= mr[j]
			}
		}
	}
}
