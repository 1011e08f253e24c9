package app

import (
	"context"

	"lightshade/internal/segment"

	log "github.com/sirupsen/logrus"
)

// Train creates a fresh model in svc and trains it, then emits
// EventModelReady with the outcome (nil on success). A run cancelled through
// ctx returns without emitting.
func (s *State) Train(ctx context.Context, svc *segment.Service) error {
	err := svc.CreateModel()
	if err == nil {
		err = <-svc.TrainModelAsync(ctx)
	}
	if segment.IsCancelled(err) {
		log.Debug("training run cancelled")
		return err
	}
	if err != nil {
		log.Warnf("training: %v", err)
	}
	s.Emit(EventModelReady, err)
	return err
}
