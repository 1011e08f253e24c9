package app

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"lightshade/internal/image"
	"lightshade/internal/segment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainReportsCompletion(t *testing.T) {
	s := NewStateWithLocator(image.LoadOptions{}, noGPS)
	svc := segment.NewService(segment.Options{Rand: rand.New(rand.NewSource(3))})

	var mu sync.Mutex
	var events []error
	s.On(EventModelReady, func(data interface{}) {
		err, _ := data.(error)
		mu.Lock()
		events = append(events, err)
		mu.Unlock()
	})

	require.NoError(t, s.Train(context.Background(), svc))
	assert.True(t, svc.IsReady())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.NoError(t, events[0])
}

func TestCancelledTrainingEmitsNothing(t *testing.T) {
	s := NewStateWithLocator(image.LoadOptions{}, noGPS)
	svc := segment.NewService(segment.Options{})

	emitted := 0
	s.On(EventModelReady, func(interface{}) { emitted++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Train(ctx, svc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, svc.IsReady())
	assert.Equal(t, 0, emitted)
}

func TestTrainReportsFailures(t *testing.T) {
	s := NewStateWithLocator(image.LoadOptions{}, noGPS)
	svc := segment.NewService(segment.Options{Backend: "webgl"})

	var got error
	s.On(EventModelReady, func(data interface{}) { got, _ = data.(error) })

	err := s.Train(context.Background(), svc)
	require.Error(t, err)
	assert.Equal(t, segment.KindBackendInitFailed, segment.KindOf(got))
}
