package pixel

import (
	"math/rand"
	"time"
)

// TrainingSetSize is the number of synthetic samples generated per training run.
const TrainingSetSize = 10000

// Sample is a single RGB pixel with channels in [0, 255].
type Sample struct {
	R, G, B float64
}

// Class returns the rule-assigned class of the sample.
func (s Sample) Class() Class {
	return Classify(s.R, s.G, s.B)
}

// TrainingSet holds parallel feature and one-hot label rows.
type TrainingSet struct {
	Features [][]float64 // [r, g, b]
	Labels   [][]float64 // one-hot, length NumClasses
}

// Len returns the number of samples.
func (ts *TrainingSet) Len() int {
	return len(ts.Features)
}

// ClassCounts returns how many samples carry each class label.
func (ts *TrainingSet) ClassCounts() [NumClasses]int {
	var counts [NumClasses]int
	for _, label := range ts.Labels {
		for i, v := range label {
			if v == 1 {
				counts[i]++
				break
			}
		}
	}
	return counts
}

// NewRand returns a time-seeded random source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GenerateTrainingData draws TrainingSetSize pixels with channels uniform on
// [0, 255) and labels them with Classify. A nil rng uses a time-seeded source,
// so every call produces a fresh set.
func GenerateTrainingData(rng *rand.Rand) *TrainingSet {
	if rng == nil {
		rng = NewRand()
	}

	ts := &TrainingSet{
		Features: make([][]float64, 0, TrainingSetSize),
		Labels:   make([][]float64, 0, TrainingSetSize),
	}

	for i := 0; i < TrainingSetSize; i++ {
		r := rng.Float64() * 255
		g := rng.Float64() * 255
		b := rng.Float64() * 255

		ts.Features = append(ts.Features, []float64{r, g, b})
		ts.Labels = append(ts.Labels, OneHot(Classify(r, g, b)))
	}

	return ts
}
