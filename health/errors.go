package health

import "errors"

var (
	// ErrCheckTimeout is reported when a check outlives the registry deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned for an unknown checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
