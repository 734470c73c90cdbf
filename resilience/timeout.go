package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures a Timeout.
type TimeoutConfig struct {
	// Timeout is the deadline given to each call.
	// Default: 5 seconds
	Timeout time.Duration
}

// Timeout gives each call its own deadline. Calls must honor ctx.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a Timeout.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Timeout{config: config}
}

// Execute runs op under the deadline. Hitting the deadline yields
// ErrTimeout; cancellation by the caller is returned unchanged.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	err := op(callCtx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Config returns the effective configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
