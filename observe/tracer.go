package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer opens one span per authentication attempt.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndAttempt is best-effort and must not panic.
type Tracer interface {
	StartAttempt(ctx context.Context, strategy string) (context.Context, trace.Span)

	// EndAttempt annotates the span with the decision and ends it.
	EndAttempt(span trace.Span, d Decision, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartAttempt(ctx context.Context, strategy string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, Decision{Strategy: strategy}.SpanName(),
		trace.WithAttributes(attribute.String("auth.strategy", strategy)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndAttempt(span trace.Span, d Decision, err error) {
	attrs := []attribute.KeyValue{attribute.String("auth.outcome", string(d.Outcome))}
	if d.Method != "" {
		attrs = append(attrs, attribute.String("auth.method", d.Method))
	}
	if d.PrincipalID != "" {
		attrs = append(attrs, attribute.String("auth.principal_id", d.PrincipalID))
	}
	span.SetAttributes(attrs...)

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case d.Outcome == OutcomeRejected:
		span.SetStatus(codes.Error, "rejected")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer returns a Tracer backed by the OpenTelemetry no-op provider.
func NewNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartAttempt(ctx context.Context, strategy string) (context.Context, trace.Span) {
	return t.noop.Start(ctx, Decision{Strategy: strategy}.SpanName())
}

func (t *noopTracer) EndAttempt(span trace.Span, _ Decision, _ error) {
	span.End()
}
