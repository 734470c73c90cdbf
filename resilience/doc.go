// Package resilience bounds the two places where credential checks can hurt
// the rest of a service.
//
//   - Bulkhead: caps how many CPU-bound hash operations (bcrypt) run at once,
//     so password and API key verification cannot starve request handling.
//
//   - CircuitBreaker and Timeout: guard calls into the external credential
//     store, so a slow or failing store turns into fast, uniform failures.
//
// Executor composes them:
//
//	guard := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithTimeout(2*time.Second),
//	)
//
//	err := guard.Execute(ctx, func(ctx context.Context) error {
//	    rec, err = store.LookupAPIKey(ctx, lookupID)
//	    return err
//	})
package resilience
