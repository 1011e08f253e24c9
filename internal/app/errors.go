package app

import "errors"

// ErrImageNotFound is returned when an image ID is not in the session.
var ErrImageNotFound = errors.New("image not found")
