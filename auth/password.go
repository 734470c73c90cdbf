package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/authcore/resilience"
)

// DefaultHashCost is the bcrypt cost used when none is configured. At cost
// 12 a single hash takes a few hundred milliseconds on current hardware.
const DefaultHashCost = 12

// HasherConfig configures the password hasher.
type HasherConfig struct {
	// Cost is the bcrypt work factor.
	// Default: DefaultHashCost
	Cost int

	// MaxConcurrent bounds simultaneous hash operations.
	// Default: runtime.GOMAXPROCS(0)
	MaxConcurrent int

	// MaxWait is how long a caller waits for a hashing slot.
	// Default: 0 (until the caller's context is done)
	MaxWait time.Duration
}

// PasswordHasher hashes and verifies secrets with bcrypt. Every operation
// runs inside a bulkhead because bcrypt is deliberately CPU-heavy.
type PasswordHasher struct {
	cost int
	pool *resilience.Bulkhead
}

// NewPasswordHasher creates a hasher.
func NewPasswordHasher(config HasherConfig) (*PasswordHasher, error) {
	if config.Cost == 0 {
		config.Cost = DefaultHashCost
	}
	if config.Cost < bcrypt.MinCost || config.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password hasher: cost %d outside [%d, %d]", config.Cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return &PasswordHasher{
		cost: config.Cost,
		pool: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxConcurrent,
			MaxWait:       config.MaxWait,
		}),
	}, nil
}

// Hash returns the bcrypt hash of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("hash password: plaintext is empty")
	}

	var hash []byte
	err := h.pool.Execute(ctx, func(context.Context) error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch is (false, nil);
// an error means the comparison could not be made.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if hash == "" {
		return false, errors.New("verify password: hash is empty")
	}

	var cmpErr error
	err := h.pool.Execute(ctx, func(context.Context) error {
		cmpErr = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}

	switch {
	case cmpErr == nil:
		return true, nil
	case errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", cmpErr)
	}
}

// Cost returns the configured work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// PoolMetrics reports the hashing bulkhead's state.
func (h *PasswordHasher) PoolMetrics() resilience.BulkheadMetrics {
	return h.pool.Metrics()
}
