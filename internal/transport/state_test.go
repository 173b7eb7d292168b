package transport

import "testing"

func TestAttemptSingleTerminalTransition(t *testing.T) {
	var seen []State
	a := newAttempt("fake", func(_ string, _, to State) { seen = append(seen, to) })

	if !a.to(StateConnecting) {
		t.Fatal("idle -> connecting should be allowed")
	}
	if !a.to(StateReady) {
		t.Fatal("connecting -> ready should be allowed")
	}
	for _, next := range []State{StateFailed, StateCancelled, StateConnecting, StateReady} {
		if a.to(next) {
			t.Fatalf("transition out of ready to %s should be rejected", next)
		}
	}
	if a.State() != StateReady {
		t.Fatalf("expected ready, got %s", a.State())
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 observed transitions, got %v", seen)
	}
}

func TestAttemptRejectsSkippingConnecting(t *testing.T) {
	a := newAttempt("fake", nil)
	if a.to(StateReady) || a.to(StateCancelled) {
		t.Fatal("idle may only move to connecting or failed")
	}
	if !a.to(StateFailed) {
		t.Fatal("idle -> failed should be allowed")
	}
}
