package observe

import (
	"context"
	"time"
)

// AttemptFunc runs one authentication attempt and reports its decision.
type AttemptFunc func(ctx context.Context) (Decision, error)

// Middleware wraps authentication attempts with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: errors from the attempt are recorded and returned unchanged.
//   - Logging: rejections log at debug, errors at warn; credentials are never logged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NewNoopMiddleware returns a Middleware that observes nothing.
func NewNoopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Observe runs fn under a span named for strategy and records the decision.
func (m *Middleware) Observe(ctx context.Context, strategy string, fn AttemptFunc) (Decision, error) {
	ctx, span := m.tracer.StartAttempt(ctx, strategy)
	start := time.Now()

	d, err := fn(ctx)
	duration := time.Since(start)

	d.Strategy = strategy
	if err != nil && d.Outcome == "" {
		d.Outcome = OutcomeError
	}

	m.tracer.EndAttempt(span, d, err)
	m.metrics.RecordDecision(ctx, d, duration)

	fields := []Field{
		F("strategy", strategy),
		F("outcome", string(d.Outcome)),
		F("duration_ms", float64(duration.Microseconds())/1000),
	}
	if d.Method != "" {
		fields = append(fields, F("method", d.Method))
	}
	if d.PrincipalID != "" {
		fields = append(fields, F("principal_id", d.PrincipalID))
	}

	switch d.Outcome {
	case OutcomeError:
		if err != nil {
			fields = append(fields, F("error", err))
		}
		m.logger.Warn(ctx, "authentication error", fields...)
	case OutcomeRejected:
		if err != nil {
			fields = append(fields, F("reason", err))
		}
		m.logger.Debug(ctx, "authentication rejected", fields...)
	default:
		m.logger.Debug(ctx, "authentication decided", fields...)
	}

	return d, err
}

// MiddlewareFromObserver builds a Middleware from an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
