package frame

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyContent = errors.New("empty content")
	ErrNoHeader     = errors.New("missing header row")
	ErrMalformed    = errors.New("malformed delimited content")
)

// LoadError reports why a raw export could not be turned into a frame.
// It is fatal for that one import only.
type LoadError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %s", e.Filename, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(filename, reason string, err error) *LoadError {
	return &LoadError{Filename: filename, Reason: reason, Err: err}
}

// IsLoadError reports whether err carries a *LoadError
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
