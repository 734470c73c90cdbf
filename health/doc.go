// Package health reports whether authd can serve authentication traffic.
//
// A Checker inspects one dependency: the credential store, the circuit
// breaker guarding it, or the bcrypt pool. A Registry runs all of them in
// parallel under a deadline and folds the results into one Status.
//
//	reg := health.NewRegistry(health.RegistryConfig{Timeout: 2 * time.Second})
//	reg.Register(health.PingCheck("store", store))
//	reg.Register(health.BreakerCheck("store_breaker", breaker))
//	mux.Handle("GET /healthz", health.LivenessHandler())
//	mux.Handle("GET /readyz", health.ReadinessHandler(reg))
package health
