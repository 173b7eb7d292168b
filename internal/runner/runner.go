package runner

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/canary/internal/metrics"
	"github.com/torosent/canary/internal/model"
)

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Results     []model.TestResult
	Interrupted bool
	Stats       metrics.Stats
	Duration    time.Duration
}

// Runner executes the configured rounds sequentially.
type Runner struct {
	opt  Options
	orch *Orchestrator
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, orch: &Orchestrator{opt: opt}}
}

// Subjects returns the per-round test order: transports first, then web
// targets when web tests are enabled.
func (r *Runner) Subjects() []model.Subject {
	subjects := make([]model.Subject, 0, len(r.opt.Transports)+len(r.opt.WebTargets))
	for _, t := range r.opt.Transports {
		subjects = append(subjects, model.TransportSubject(t))
	}
	if r.opt.WebTests {
		for _, w := range r.opt.WebTargets {
			subjects = append(subjects, model.WebSubject(w))
		}
	}
	return subjects
}

// Run executes every round and returns once the last test has been torn
// down and leftover dispatchers swept. Cancelling ctx ends the run early;
// the sweep still happens.
func (r *Runner) Run(ctx context.Context) Summary {
	start := r.opt.Now()
	subjects := r.Subjects()
	summary := Summary{RunID: ulid.Make().String()}
	log := zap.S().With("run", summary.RunID)
	log.Infow("starting run", "server", r.opt.ServerIP, "rounds", r.opt.Rounds, "subjects", len(subjects))

rounds:
	for round := 1; round <= r.opt.Rounds; round++ {
		for _, subject := range subjects {
			if ctx.Err() != nil {
				summary.Interrupted = true
				break rounds
			}
			result, err := r.orch.Test(ctx, subject)
			if errors.Is(err, ErrInterrupted) {
				summary.Interrupted = true
				break rounds
			}
			summary.Results = append(summary.Results, result)
			r.opt.Collector.Record(result)
			if r.opt.Observer != nil {
				r.opt.Observer.Result(round, result)
			}
		}
		r.opt.Collector.RoundDone()
		r.archive(ctx, round)
	}

	if r.opt.Sweeper != nil {
		if err := r.opt.Sweeper.Sweep(context.WithoutCancel(ctx)); err != nil {
			log.Warnw("cleanup sweep failed", "error", err)
		}
	}

	summary.Duration = r.opt.Now().Sub(start)
	summary.Stats = r.opt.Collector.Stats(summary.Duration)
	if summary.Interrupted {
		log.Infow("run interrupted", "completed", len(summary.Results))
	} else {
		log.Infow("run finished", "results", len(summary.Results), "duration", summary.Duration)
	}
	return summary
}

func (r *Runner) archive(ctx context.Context, round int) {
	if r.opt.Archiver == nil || ctx.Err() != nil {
		return
	}
	path, err := r.opt.Archiver.Archive(ctx)
	switch {
	case err != nil:
		zap.S().Warnw("failed to archive captures", "round", round, "error", err)
	case path != "":
		zap.S().Infow("archived captures", "round", round, "archive", path)
	}
}
