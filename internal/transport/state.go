package transport

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of a connection attempt.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReady
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed || s == StateCancelled
}

// TraceFunc observes attempt transitions.
type TraceFunc func(transport string, from, to State)

// attempt guards the transition rules for one Establish call.
type attempt struct {
	mu        sync.Mutex
	transport string
	state     State
	trace     TraceFunc
}

func newAttempt(transport string, trace TraceFunc) *attempt {
	return &attempt{transport: transport, trace: trace}
}

func validTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateConnecting || to == StateFailed
	case StateConnecting:
		return to.Terminal()
	default:
		return false
	}
}

// to moves the attempt to next. It reports false when the move is not
// allowed, which includes any move out of a terminal state.
func (a *attempt) to(next State) bool {
	a.mu.Lock()
	from := a.state
	if !validTransition(from, next) {
		a.mu.Unlock()
		return false
	}
	a.state = next
	a.mu.Unlock()
	if a.trace != nil {
		a.trace(a.transport, from, next)
	}
	return true
}

func (a *attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
