package health

import (
	"context"
	"sync"
	"time"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Timeout bounds one CheckAll run.
	// Default: 5 seconds
	Timeout time.Duration
}

// Registry runs a fixed set of checkers.
type Registry struct {
	config   RegistryConfig
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Registry{config: config, checkers: make(map[string]Checker)}
}

// Register adds or replaces a checker under its name.
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Name()] = c
}

// Check runs one named checker.
func (r *Registry) Check(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	c, ok := r.checkers[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()
	return run(ctx, c), nil
}

// CheckAll runs every checker in parallel.
func (r *Registry) CheckAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	results := make(map[string]Result, len(checkers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := run(ctx, c)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Overall folds results into the worst status. No results is healthy.
func Overall(results map[string]Result) Status {
	status := StatusHealthy
	for _, res := range results {
		if res.Status > status {
			status = res.Status
		}
	}
	return status
}

func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	ch := make(chan Result, 1)
	go func() { ch <- c.Check(ctx) }()

	select {
	case res := <-ch:
		res.Duration = time.Since(start)
		return res
	case <-ctx.Done():
		res := Unhealthy("check timed out", ErrCheckTimeout)
		res.Duration = time.Since(start)
		return res
	}
}
