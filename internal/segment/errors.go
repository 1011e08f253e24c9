package segment

import (
	"context"
	"errors"
)

var (
	// ErrBackendInitFailed is returned when no numeric backend can be prepared.
	ErrBackendInitFailed = errors.New("numeric backend initialization failed")

	// ErrTrainingFailed is returned when a training run aborts.
	ErrTrainingFailed = errors.New("model training failed")

	// ErrModelNotReady is returned when classifying or training without a
	// suitable model.
	ErrModelNotReady = errors.New("model not ready")

	// ErrInvalidImageBuffer is returned for zero-area or malformed pixel buffers.
	ErrInvalidImageBuffer = errors.New("invalid image buffer")
)

// ErrorKind names a failure class so callers can switch on it exhaustively.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindBackendInitFailed  ErrorKind = "backend_init_failed"
	KindTrainingFailed     ErrorKind = "training_failed"
	KindModelNotReady      ErrorKind = "model_not_ready"
	KindInvalidImageBuffer ErrorKind = "invalid_image_buffer"
	KindInternal           ErrorKind = "internal"
)

// KindOf classifies err. A nil error has KindNone; errors outside the
// taxonomy are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBackendInitFailed):
		return KindBackendInitFailed
	case errors.Is(err, ErrTrainingFailed):
		return KindTrainingFailed
	case errors.Is(err, ErrModelNotReady):
		return KindModelNotReady
	case errors.Is(err, ErrInvalidImageBuffer):
		return KindInvalidImageBuffer
	default:
		return KindInternal
	}
}

// IsCancelled reports whether err ends a run because its context was
// cancelled by the caller.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
