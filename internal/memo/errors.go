package memo

import (
	"errors"
	"fmt"
)

// ErrLoaderPanic indicates that a loader panicked instead of returning.
var ErrLoaderPanic = errors.New("loader panicked")

// LoadError is the memoized failure of a loader.
type LoadError struct {
	// Key identifies the entry whose load failed.
	Key Key
	// Err is the error returned by the loader.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Key, e.Err)
}

// Unwrap returns the loader error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
