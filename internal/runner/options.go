package runner

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/canary/internal/capture"
	"github.com/torosent/canary/internal/metrics"
	"github.com/torosent/canary/internal/model"
	"github.com/torosent/canary/internal/probe"
)

// Establisher brings a transport up and returns the stream to probe.
// Teardown must be safe to call whether or not Establish succeeded.
type Establisher interface {
	Establish(ctx context.Context, spec model.TransportSpec, serverIP string) (net.Conn, error)
	Teardown(ctx context.Context) error
}

// WebDialer connects directly to a web target.
type WebDialer interface {
	DialWeb(ctx context.Context, target model.WebTarget) (net.Conn, error)
}

// ResultWriter persists one result.
type ResultWriter interface {
	Write(r model.TestResult) error
}

// Archiver bundles a round's captures.
type Archiver interface {
	Archive(ctx context.Context) (string, error)
}

// Sweeper kills any dispatcher processes left behind.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// SweepFunc adapts a function to Sweeper.
type SweepFunc func(ctx context.Context) error

func (f SweepFunc) Sweep(ctx context.Context) error { return f(ctx) }

// Observer is told about every persisted result.
type Observer interface {
	Result(round int, r model.TestResult)
}

// Options configure the Orchestrator and Runner.
type Options struct {
	ServerIP   string
	Rounds     int
	Transports []model.TransportSpec
	WebTargets []model.WebTarget
	WebTests   bool

	Dispatcher Establisher // transports in dispatcher mode
	Library    Establisher // transports in library mode
	Web        WebDialer   // defaults to probe.Dialer{}
	Probe      probe.Probe // timeouts; Request and Marker are set per subject

	Writer    ResultWriter     // defaults to discarding results
	Recorder  capture.Recorder // defaults to capture.Nop
	Archiver  Archiver         // optional
	Sweeper   Sweeper          // optional
	Observer  Observer         // optional
	Collector *metrics.Collector
	Tracer    trace.Tracer

	Settle          time.Duration // pause after teardown
	CaptureTail     time.Duration // keep recording after teardown
	TeardownTimeout time.Duration
	Now             func() time.Time
}

const DefaultTeardownTimeout = 15 * time.Second

type discardWriter struct{}

func (discardWriter) Write(model.TestResult) error { return nil }

func (o *Options) normalize() {
	if o.Rounds <= 0 {
		o.Rounds = 1
	}
	if o.Web == nil {
		o.Web = probe.Dialer{}
	}
	if o.Writer == nil {
		o.Writer = discardWriter{}
	}
	if o.Recorder == nil {
		o.Recorder = capture.Nop{}
	}
	if o.Collector == nil {
		o.Collector = metrics.NewCollector()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("canary")
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	if o.CaptureTail < 0 {
		o.CaptureTail = 0
	}
	if o.TeardownTimeout <= 0 {
		o.TeardownTimeout = DefaultTeardownTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
