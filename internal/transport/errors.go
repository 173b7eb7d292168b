package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported means no in-process implementation exists for a transport.
	ErrUnsupported = errors.New("transport has no in-process implementation")
	// ErrCancelled means the caller abandoned the attempt.
	ErrCancelled = errors.New("transport connection cancelled")
)

// ConfigError reports a transport config artifact that could not be used.
type ConfigError struct {
	Transport string
	Path      string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s config: %v", e.Transport, e.Err)
	}
	return fmt.Sprintf("%s config %s: %v", e.Transport, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
