package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/canary/internal/model"
)

// StartTestSpan starts the span covering one orchestrated test.
func StartTestSpan(ctx context.Context, tracer trace.Tracer, subject model.Subject, server string) (context.Context, trace.Span) {
	kind := "transport"
	if subject.IsWebTest() {
		kind = "web"
	}
	ctx, span := tracer.Start(ctx, "canary "+subject.Name(),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("canary.subject", subject.Name()),
		attribute.String("canary.kind", kind),
		attribute.String("canary.port", subject.Port()),
		attribute.String("server.address", server),
	)
	if subject.Transport != nil {
		span.SetAttributes(attribute.String("canary.mode", string(subject.Transport.Mode)))
	}
	return ctx, span
}

// EndTestSpan records the result on span and ends it. Failed tests get
// an error status.
func EndTestSpan(span trace.Span, r model.TestResult) {
	attrs := []attribute.KeyValue{
		attribute.Bool("canary.success", r.Success),
		attribute.String("canary.outcome", r.Outcome.String()),
	}
	err := r.Err
	if err == nil && !r.Success {
		err = outcomeError(r.Outcome)
	}
	EndSpan(span, err, attrs...)
}

type outcomeError model.Outcome

func (e outcomeError) Error() string { return "probe outcome " + model.Outcome(e).String() }

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
