package health

import (
	"context"

	"github.com/jonwraymond/authcore/resilience"
)

// Pinger is implemented by stores that can test their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck is unhealthy when p cannot be reached.
func PingCheck(name string, p Pinger) Checker {
	return CheckerFunc(name, func(ctx context.Context) Result {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("unreachable", err)
		}
		return Healthy("reachable")
	})
}

// BreakerCheck maps circuit state to health: closed is healthy, half-open is
// degraded and open is unhealthy.
func BreakerCheck(name string, cb *resilience.CircuitBreaker) Checker {
	return CheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{
			"state":    m.State.String(),
			"failures": m.Failures,
		}
		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}

// PoolCheck reports a bulkhead as degraded while every slot is busy. metrics
// is usually PasswordHasher.PoolMetrics.
func PoolCheck(name string, metrics func() resilience.BulkheadMetrics) Checker {
	return CheckerFunc(name, func(context.Context) Result {
		m := metrics()
		details := map[string]any{
			"active":   m.Active,
			"capacity": m.MaxConcurrent,
			"rejected": m.Rejected,
		}
		if m.Available <= 0 {
			return Degraded("pool saturated").WithDetails(details)
		}
		return Healthy("pool available").WithDetails(details)
	})
}
