package resilience

import "errors"

var (
	// ErrCircuitOpen is returned without calling the store while the circuit
	// is open or its half-open probes are used up.
	ErrCircuitOpen = errors.New("resilience: circuit open")

	// ErrBulkheadFull is returned when no slot frees up within MaxWait.
	ErrBulkheadFull = errors.New("resilience: bulkhead full")

	// ErrTimeout is returned when a call outlives its deadline.
	ErrTimeout = errors.New("resilience: call timed out")
)
