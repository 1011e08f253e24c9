package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTrainingDataShape(t *testing.T) {
	ts := GenerateTrainingData(nil)

	require.Len(t, ts.Features, TrainingSetSize)
	require.Len(t, ts.Labels, TrainingSetSize)

	for i := range ts.Features {
		f := ts.Features[i]
		require.Len(t, f, 3)
		for _, v := range f {
			require.GreaterOrEqual(t, v, 0.0)
			require.Less(t, v, 255.0)
		}

		label := ts.Labels[i]
		require.Len(t, label, NumClasses)
		sum := 0.0
		for _, v := range label {
			sum += v
		}
		require.Equal(t, 1.0, sum)
	}
}

func TestGenerateTrainingDataLabelsFollowRule(t *testing.T) {
	ts := GenerateTrainingData(nil)

	for i, f := range ts.Features {
		want := Classify(f[0], f[1], f[2])
		require.Equal(t, 1.0, ts.Labels[i][want], "sample %d %v", i, f)
	}
}

func TestGenerateTrainingDataCoversAllClasses(t *testing.T) {
	counts := GenerateTrainingData(nil).ClassCounts()

	total := 0
	for c, n := range counts {
		assert.Greater(t, n, 0, "class %s never generated", Class(c))
		total += n
	}
	assert.Equal(t, TrainingSetSize, total)
}

func TestGenerateTrainingDataIsFresh(t *testing.T) {
	a := GenerateTrainingData(nil)
	b := GenerateTrainingData(NewRand())
	assert.NotEqual(t, a.Features[0], b.Features[0])
}
