package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TerminateMode names a Terminator backend.
type TerminateMode string

const (
	TerminateSignal TerminateMode = "signal"
	TerminateSweep  TerminateMode = "sweep"
)

// ParseTerminateMode accepts "signal" or "sweep"; empty selects the
// platform default.
func ParseTerminateMode(s string) (TerminateMode, error) {
	switch TerminateMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultTerminateMode(), nil
	case TerminateSignal:
		return TerminateSignal, nil
	case TerminateSweep:
		return TerminateSweep, nil
	default:
		return "", fmt.Errorf("unknown terminate mode %q (want signal or sweep)", s)
	}
}

// Terminator stops a dispatcher process and returns once it is gone or
// every escalation step has been tried.
type Terminator interface {
	Terminate(ctx context.Context, h *Handle) error
}

// NewTerminator returns the backend for mode.
func NewTerminator(mode TerminateMode) Terminator {
	if mode == TerminateSweep {
		return SweepTerminator{}
	}
	return SignalTerminator{}
}

// DefaultTerminator returns the platform default backend.
func DefaultTerminator() Terminator {
	return NewTerminator(DefaultTerminateMode())
}

const (
	DefaultTerminateWait = 5 * time.Second
	DefaultSweepDelay    = 2 * time.Second
	reapWait             = 2 * time.Second
)

// SignalTerminator asks the process to exit and kills it if it does not.
type SignalTerminator struct {
	Wait time.Duration // how long to wait after the polite signal
}

func (t SignalTerminator) Terminate(ctx context.Context, h *Handle) error {
	if !h.Alive() {
		return nil
	}
	wait := t.Wait
	if wait <= 0 {
		wait = DefaultTerminateWait
	}
	if err := h.signal(terminateSignal); err == nil {
		if h.waitExit(ctx, wait) {
			return nil
		}
	}
	if err := h.signal(killSignal); err != nil {
		return fmt.Errorf("kill dispatcher pid %d: %w", h.Pid(), err)
	}
	if !h.waitExit(ctx, reapWait) {
		return fmt.Errorf("dispatcher pid %d still running after kill", h.Pid())
	}
	return nil
}

// SweepTerminator kills every process sharing the dispatcher's name.
type SweepTerminator struct {
	Delay time.Duration // pause between the polite and forced sweeps
}

func (t SweepTerminator) Terminate(ctx context.Context, h *Handle) error {
	delay := t.Delay
	if delay <= 0 {
		delay = DefaultSweepDelay
	}
	if err := KillAllByName(ctx, h.Name(), delay); err != nil {
		return err
	}
	if !h.waitExit(ctx, reapWait) {
		return fmt.Errorf("dispatcher pid %d survived sweep", h.Pid())
	}
	return nil
}
