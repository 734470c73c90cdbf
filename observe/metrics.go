package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records authentication decisions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordDecision(ctx context.Context, d Decision, duration time.Duration)
}

type metricsImpl struct {
	decisions metric.Int64Counter
	failures  metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewMetrics registers the decision instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	decisions, err := meter.Int64Counter(
		"auth.decisions.total",
		metric.WithDescription("Authentication decisions by strategy and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"auth.failures.total",
		metric.WithDescription("Rejected or errored authentication attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"auth.duration_ms",
		metric.WithDescription("Authentication attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{decisions: decisions, failures: failures, duration: duration}, nil
}

func (m *metricsImpl) RecordDecision(ctx context.Context, d Decision, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("auth.strategy", d.Strategy),
		attribute.String("auth.outcome", string(d.Outcome)),
	}
	if d.Method != "" {
		attrs = append(attrs, attribute.String("auth.method", d.Method))
	}
	opt := metric.WithAttributes(attrs...)

	m.decisions.Add(ctx, 1, opt)
	if d.Outcome.Failed() {
		m.failures.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

type noopMetrics struct{}

// NewNoopMetrics returns Metrics that records nothing.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordDecision(context.Context, Decision, time.Duration) {}
