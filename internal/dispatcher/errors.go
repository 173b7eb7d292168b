package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutableNotFound means the dispatcher binary is not on disk.
	ErrExecutableNotFound = errors.New("dispatcher executable not found")
	// ErrOptionsFileMissing means a transport that needs options has none.
	ErrOptionsFileMissing = errors.New("transport options file not found")
	// ErrNotAlive means the dispatcher exited during its grace period.
	ErrNotAlive = errors.New("dispatcher exited during start-up")
)

// LaunchError describes a failed dispatcher start.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
