package runner

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned for a test cut short by cancellation.
var ErrInterrupted = errors.New("test interrupted")

// SetupError reports a subject that could not be prepared for testing:
// missing options, missing executable or no path configured for its mode.
type SetupError struct {
	Subject string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("set up %s: %v", e.Subject, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
