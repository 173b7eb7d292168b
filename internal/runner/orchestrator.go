package runner

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/probe"
	"github.com/torosent/canary/internal/tracing"
)

// Orchestrator runs single tests.
type Orchestrator struct {
	opt Options
}

func NewOrchestrator(opt Options) *Orchestrator {
	opt.normalize()
	return &Orchestrator{opt: opt}
}

// Test runs one subject against the server. The result is persisted unless
// ctx was cancelled during the test, in which case ErrInterrupted is
// returned alongside the partial result. Whatever was brought up is torn
// down before Test returns.
func (o *Orchestrator) Test(ctx context.Context, subject model.Subject) (model.TestResult, error) {
	ctx, span := tracing.StartTestSpan(ctx, o.opt.Tracer, subject, o.opt.ServerIP)
	cleanupCtx := context.WithoutCancel(ctx)
	log := zap.S().With("subject", subject.Name(), "server", o.opt.ServerIP)

	result := model.TestResult{
		ServerAddress: o.opt.ServerIP,
		Timestamp:     o.opt.Now(),
		Subject:       subject,
	}

	if err := o.opt.Recorder.Start(ctx, subject, o.opt.ServerIP); err != nil {
		log.Warnw("capture did not start", "error", err)
	}

	teardown := o.exercise(ctx, subject, &result)
	interrupted := ctx.Err() != nil

	if !interrupted {
		if err := o.opt.Writer.Write(result); err != nil {
			log.Warnw("failed to persist result", "error", err)
		}
	}

	tctx, cancel := context.WithTimeout(cleanupCtx, o.opt.TeardownTimeout)
	if err := teardown(tctx); err != nil {
		log.Warnw("teardown failed", "error", err)
	}
	cancel()

	sleep(ctx, o.opt.CaptureTail)
	labelled := &result
	if interrupted || ctx.Err() != nil {
		labelled = nil
	}
	if err := o.opt.Recorder.Stop(cleanupCtx, labelled); err != nil {
		log.Warnw("capture did not stop cleanly", "error", err)
	}
	tracing.EndTestSpan(span, result)

	if interrupted {
		return result, ErrInterrupted
	}
	log.Infow("test finished", "success", result.Success, "outcome", result.Outcome.String(), "duration", result.Duration)

	sleep(ctx, o.opt.Settle)
	return result, nil
}

// exercise brings the subject up, probes it and fills in result. It
// returns the teardown for whatever was started.
func (o *Orchestrator) exercise(ctx context.Context, subject model.Subject, result *model.TestResult) func(context.Context) error {
	teardown := func(context.Context) error { return nil }
	p := o.opt.Probe

	var (
		conn net.Conn
		err  error
	)
	switch {
	case subject.Web != nil:
		p.Marker = ""
		p.Request = probe.Request(subject.Web.HostHeader())
		conn, err = o.opt.Web.DialWeb(ctx, *subject.Web)
	case subject.Transport != nil:
		p.Marker = probe.CanaryMarker
		p.Request = probe.Request("")
		est, perr := o.path(*subject.Transport)
		if perr != nil {
			err = perr
			break
		}
		teardown = est.Teardown
		conn, err = est.Establish(ctx, *subject.Transport, o.opt.ServerIP)
	default:
		err = &SetupError{Subject: subject.Name(), Err: errors.New("subject has neither a transport nor a web target")}
	}

	if err != nil {
		result.Outcome = model.OutcomeConnectError
		result.Err = err
		zap.S().Debugw("subject not reachable", "subject", subject.Name(), "error", err)
		return teardown
	}

	report := p.Run(ctx, conn)
	_ = conn.Close()

	result.Success = report.Success()
	result.Outcome = report.Outcome
	result.Err = report.Err
	result.Duration = report.Duration
	if !result.Success {
		zap.S().Debugw("probe failed", "subject", subject.Name(), "outcome", report.Outcome.String(), "received", report.Received, "error", report.Err)
	}
	return teardown
}

func (o *Orchestrator) path(spec model.TransportSpec) (Establisher, error) {
	var est Establisher
	switch spec.Mode {
	case model.ModeLibrary:
		est = o.opt.Library
	default:
		est = o.opt.Dispatcher
	}
	if est == nil {
		return nil, &SetupError{Subject: spec.Name, Err: fmt.Errorf("no %s path configured", modeName(spec.Mode))}
	}
	return est, nil
}

func modeName(m model.TransportMode) string {
	if m == "" {
		return string(model.ModeDispatcher)
	}
	return string(m)
}
