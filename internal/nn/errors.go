package nn

import "errors"

var (
	// ErrDiverged is returned when the training loss stops being finite.
	ErrDiverged = errors.New("training loss is not finite")

	// ErrShapeMismatch is returned when inputs or labels do not fit the network.
	ErrShapeMismatch = errors.New("input shape does not match network")

	// ErrEmptyBatch is returned when there is nothing to train or predict on.
	ErrEmptyBatch = errors.New("empty batch")
)
