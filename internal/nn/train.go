package nn

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// probability clip used by the cross-entropy loss
const lossEpsilon = 1e-7

// TrainConfig controls a training run.
type TrainConfig struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64 // fraction of rows, taken from the end, held out
	Optimizer       AdamConfig

	// OnEpoch, if set, is called after every epoch.
	OnEpoch func(EpochStats)
}

// DefaultTrainConfig returns the fixed schedule used for the pixel model:
// 50 epochs, batches of 32 and a 20% validation split.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:          50,
		BatchSize:       32,
		ValidationSplit: 0.2,
		Optimizer:       DefaultAdamConfig(),
	}
}

// EpochStats summarises one epoch.
type EpochStats struct {
	Epoch       int     `json:"epoch"`
	Loss        float64 `json:"loss"`
	Accuracy    float64 `json:"accuracy"`
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
}

// History is the per-epoch record of a training run.
type History struct {
	Epochs   []EpochStats  `json:"epochs"`
	Duration time.Duration `json:"duration"`
}

// Last returns the stats of the final epoch, or zero stats if none ran.
func (h History) Last() EpochStats {
	if len(h.Epochs) == 0 {
		return EpochStats{}
	}
	return h.Epochs[len(h.Epochs)-1]
}

// Train fits net to features x (rows x InputSize) and one-hot labels y (rows
// x OutputSize), updating the weights in place.
//
// The last ValidationSplit fraction of rows is held out before shuffling;
// training rows are reshuffled every epoch. Training stops with an error when
// ctx is cancelled between epochs, when the loss becomes non-finite, or when
// the numeric code panics. Weights touched by an aborted epoch are left as is.
func Train(ctx context.Context, net *Network, x, y *mat.Dense, cfg TrainConfig) (hist History, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("training aborted: %v", r)
		}
	}()

	rows, cols := x.Dims()
	yRows, yCols := y.Dims()
	switch {
	case cols != InputSize || yCols != OutputSize:
		return hist, fmt.Errorf("%w: features %dx%d, labels %dx%d", ErrShapeMismatch, rows, cols, yRows, yCols)
	case rows != yRows:
		return hist, fmt.Errorf("%w: %d feature rows, %d label rows", ErrShapeMismatch, rows, yRows)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	splitAt := int(math.Floor(float64(rows) * (1 - cfg.ValidationSplit)))
	if splitAt <= 0 {
		return hist, fmt.Errorf("%w: %d rows leave no training data", ErrEmptyBatch, rows)
	}

	var valX, valY mat.Matrix
	if splitAt < rows {
		valX = x.Slice(splitAt, rows, 0, InputSize)
		valY = y.Slice(splitAt, rows, 0, OutputSize)
	}

	opt := newAdam(cfg.Optimizer, net.Layers())
	order := make([]int, splitAt)
	for i := range order {
		order[i] = i
	}

	start := time.Now()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return hist, err
		}

		net.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum float64
		var correct int
		for b := 0; b < len(order); b += cfg.BatchSize {
			end := b + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			bx, by := gatherRows(x, y, order[b:end])

			pass := net.forwardTrain(bx)
			loss, hits := crossEntropy(pass.probs, by)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return hist, fmt.Errorf("epoch %d: %w", epoch, ErrDiverged)
			}
			lossSum += loss * float64(end-b)
			correct += hits

			opt.apply(net.Layers(), net.backward(pass, by))
		}

		stats := EpochStats{
			Epoch:    epoch,
			Loss:     lossSum / float64(splitAt),
			Accuracy: float64(correct) / float64(splitAt),
		}
		if valX != nil {
			vRows, _ := valX.Dims()
			vLoss, vHits := crossEntropy(net.evaluate(valX), valY)
			stats.ValLoss = vLoss
			stats.ValAccuracy = float64(vHits) / float64(vRows)
		}
		hist.Epochs = append(hist.Epochs, stats)

		log.Debugf("epoch %d/%d loss=%.4f acc=%.4f val_loss=%.4f val_acc=%.4f",
			epoch, cfg.Epochs, stats.Loss, stats.Accuracy, stats.ValLoss, stats.ValAccuracy)
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(stats)
		}
	}
	hist.Duration = time.Since(start)

	return hist, nil
}

// Evaluate returns the mean cross-entropy and accuracy of net on x, y without
// dropout.
func Evaluate(net *Network, x, y *mat.Dense) (loss, accuracy float64, err error) {
	probs, err := net.Predict(x)
	if err != nil {
		return 0, 0, err
	}
	rows, _ := x.Dims()
	loss, hits := crossEntropy(probs, y)
	return loss, float64(hits) / float64(rows), nil
}

// crossEntropy returns the mean categorical cross-entropy of probs against
// one-hot labels y, and the number of rows whose argmax matches.
func crossEntropy(probs *mat.Dense, y mat.Matrix) (float64, int) {
	rows, cols := probs.Dims()
	var sum float64
	var hits int
	label := make([]float64, cols)
	for i := 0; i < rows; i++ {
		p := probs.RawRowView(i)
		mat.Row(label, i, y)
		for j, t := range label {
			if t == 0 {
				continue
			}
			q := math.Min(math.Max(p[j], lossEpsilon), 1-lossEpsilon)
			sum -= t * math.Log(q)
		}
		if Argmax(p) == Argmax(label) {
			hits++
		}
	}
	return sum / float64(rows), hits
}

// gatherRows copies the selected rows of x and y into new batch matrices.
func gatherRows(x, y *mat.Dense, idx []int) (*mat.Dense, *mat.Dense) {
	bx := mat.NewDense(len(idx), InputSize, nil)
	by := mat.NewDense(len(idx), OutputSize, nil)
	for i, r := range idx {
		bx.SetRow(i, x.RawRowView(r))
		by.SetRow(i, y.RawRowView(r))
	}
	return bx, by
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
