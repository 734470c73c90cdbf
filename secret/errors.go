package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrProviderNotFound indicates a secretref naming an unregistered provider.
	ErrProviderNotFound = errors.New("secret: provider not registered")

	// ErrEmptySecret indicates a reference that resolved to nothing.
	ErrEmptySecret = errors.New("secret: resolved value is empty")

	// ErrKeyTooShort indicates a signing key below MinSigningKeyBytes.
	ErrKeyTooShort = errors.New("secret: signing key too short")
)
