package resilience

import (
	"context"
	"time"
)

// Op is an operation run under a guard.
type Op func(ctx context.Context) error

type guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Executor wraps store calls in the configured guards. The bulkhead is the
// outermost layer and the timeout the innermost, so a timed-out call counts
// against the circuit breaker.
type Executor struct {
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	timeout  *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it runs ops unguarded.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker guards ops with cb.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithBulkhead bounds concurrent ops with b.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout gives every op its own deadline.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.breaker
}

// Execute runs op inside every configured guard. A nil Executor runs op
// directly.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e == nil {
		return op(ctx)
	}
	run := Op(op)
	for _, g := range e.layers() {
		run = wrap(g, run)
	}
	return run(ctx)
}

// layers lists the configured guards innermost first.
func (e *Executor) layers() []guard {
	gs := make([]guard, 0, 3)
	if e.timeout != nil {
		gs = append(gs, e.timeout)
	}
	if e.breaker != nil {
		gs = append(gs, e.breaker)
	}
	if e.bulkhead != nil {
		gs = append(gs, e.bulkhead)
	}
	return gs
}

func wrap(g guard, inner Op) Op {
	return func(ctx context.Context) error {
		return g.Execute(ctx, inner)
	}
}
