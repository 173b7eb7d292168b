package runner_test

import (
	"context"
	"testing"

	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/runner"
)

type roundObserver struct{ rounds []int }

func (o *roundObserver) Result(round int, _ model.TestResult) { o.rounds = append(o.rounds, round) }

func TestRunnerRoundMajorOrder(t *testing.T) {
	est := &fakeEstablisher{}
	w := &fakeWriter{}
	arch := &fakeArchiver{}
	obs := &roundObserver{}
	swept := 0
	r := runner.New(runner.Options{
		ServerIP:   "203.0.113.7",
		Rounds:     3,
		Transports: []model.TransportSpec{obfs2, {Name: "Replicant", ListenPort: "3456"}},
		WebTargets: []model.WebTarget{{Name: "wikipedia", URL: "https://www.wikipedia.org", Port: "443"}},
		WebTests:   true,
		Dispatcher: est,
		Web:        fakeWeb{response: "HTTP/1.1 200 OK\r\n\r\n<html>"},
		Writer:     w,
		Archiver:   arch,
		Observer:   obs,
		Sweeper: runner.SweepFunc(func(context.Context) error {
			swept++
			return nil
		}),
	})

	summary := r.Run(context.Background())
	if summary.Interrupted {
		t.Fatal("run reported as interrupted")
	}
	if len(summary.Results) != 9 || len(w.results) != 9 {
		t.Fatalf("expected 9 results, got %d (persisted %d)", len(summary.Results), len(w.results))
	}
	want := []string{"obfs2", "Replicant", "wikipedia"}
	for i, res := range summary.Results {
		if got := res.Subject.Name(); got != want[i%3] {
			t.Errorf("result %d subject = %s, want %s", i, got, want[i%3])
		}
	}
	if obs.rounds[0] != 1 || obs.rounds[8] != 3 {
		t.Errorf("observer rounds = %v", obs.rounds)
	}
	if arch.calls != 3 {
		t.Errorf("archives = %d, want 3", arch.calls)
	}
	if swept != 1 {
		t.Errorf("sweeps = %d, want 1", swept)
	}
	if est.teardowns != 6 {
		t.Errorf("teardowns = %d, want 6", est.teardowns)
	}
	if summary.Stats.Rounds != 3 || summary.Stats.Successes != 9 {
		t.Errorf("stats = %+v", summary.Stats)
	}
	if summary.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunnerWebTestsDisabled(t *testing.T) {
	r := runner.New(runner.Options{
		ServerIP:   "203.0.113.7",
		Transports: []model.TransportSpec{obfs2},
		WebTargets: []model.WebTarget{{Name: "cnn", URL: "https://www.cnn.com"}},
		Dispatcher: &fakeEstablisher{},
	})
	if got := len(r.Subjects()); got != 1 {
		t.Fatalf("Subjects() = %d, want 1", got)
	}
}

func TestRunnerInterruptSkipsRemainingAndSweeps(t *testing.T) {
	est := &fakeEstablisher{block: true, started: make(chan struct{})}
	w := &fakeWriter{}
	arch := &fakeArchiver{}
	swept := 0
	r := runner.New(runner.Options{
		ServerIP:   "203.0.113.7",
		Rounds:     2,
		Transports: []model.TransportSpec{obfs2, {Name: "Replicant", ListenPort: "3456"}},
		Dispatcher: est,
		Writer:     w,
		Archiver:   arch,
		Sweeper: runner.SweepFunc(func(ctx context.Context) error {
			if ctx.Err() != nil {
				t.Error("sweep ran with a cancelled context")
			}
			swept++
			return nil
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-est.started
		cancel()
	}()

	summary := r.Run(ctx)
	if !summary.Interrupted {
		t.Fatal("expected an interrupted run")
	}
	if len(summary.Results) != 0 || len(w.results) != 0 {
		t.Errorf("expected no results, got %d", len(summary.Results))
	}
	if len(est.calls) != 1 {
		t.Errorf("remaining subjects were not skipped: %v", est.calls)
	}
	if est.teardowns != 1 {
		t.Errorf("teardowns = %d, want 1", est.teardowns)
	}
	if arch.calls != 0 {
		t.Errorf("archived an interrupted round")
	}
	if swept != 1 {
		t.Errorf("sweeps = %d, want 1", swept)
	}
}
