package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredential   = errors.New("auth: missing credential")
	ErrInvalidToken        = errors.New("auth: invalid token")
	ErrExpiredToken        = errors.New("auth: token expired")
	ErrInvalidAPIKey       = errors.New("auth: invalid api key")
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrAPIKeysDisabled     = errors.New("auth: api key authentication disabled")
	ErrCredentialStore     = errors.New("auth: credential store unavailable")

	// Issuance and model errors
	ErrInactivePrincipal = errors.New("auth: principal is inactive")
	ErrRoleNotFound      = errors.New("auth: role not found")
	ErrInvalidPermission = errors.New("auth: invalid permission")
	ErrPrincipalNotFound = errors.New("auth: principal not found")
	ErrAPIKeyNotFound    = errors.New("auth: api key not found")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)

// IsAuthenticationFailure reports whether err is one of the failures that the
// chain collapses into a uniform 401.
func IsAuthenticationFailure(err error) bool {
	switch {
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrInvalidAPIKey),
		errors.Is(err, ErrAPIKeysDisabled),
		errors.Is(err, ErrCredentialStore):
		return true
	default:
		return false
	}
}
