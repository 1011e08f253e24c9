package backend

import (
	"errors"
	"fmt"
)

// ErrMissingImage is returned when a ProcessRequest carries no image.
var ErrMissingImage = errors.New("process request has no image")

// ErrMissingField is returned when a ProcessRequest lacks empresa or fundo.
var ErrMissingField = errors.New("process request needs empresa and fundo")

// APIError is a non-2xx response from the processing API.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Detail)
}
