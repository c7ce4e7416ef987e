// Package xerrors holds the sentinel errors shared by the orchestrator, the
// realtime channel and the HTTP layer.
package xerrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("notification not found")
	ErrUnauthorized = errors.New("no auth token available")
	ErrInvalidInput = errors.New("invalid input")
	ErrClosed       = errors.New("component closed")
)

// Invalid builds an ErrInvalidInput carrying a formatted reason.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
