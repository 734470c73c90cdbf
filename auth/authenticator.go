package auth

import (
	"context"
	"net/http"
	"net/url"
)

// Authenticator validates one kind of credential and returns an identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Authenticate returns (nil, error) for internal errors such as an
//   unreachable credential store; it returns (AuthResult, nil) for rejected
//   credentials (check result.Authenticated).
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries this authenticator's
	// credential type.
	Supports(ctx context.Context, req *AuthRequest) bool

	// Authenticate validates the credential and returns a result.
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest carries the parts of a request authenticators may read.
type AuthRequest struct {
	Headers http.Header
	Query   url.Values
}

// Header returns the first value for a header, or empty string.
func (r *AuthRequest) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// QueryParam returns the first value of a query parameter, or empty string.
func (r *AuthRequest) QueryParam(key string) string {
	if r == nil || r.Query == nil {
		return ""
	}
	return r.Query.Get(key)
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Identity is set only when Authenticated is true.
	Identity *Identity

	// Error explains a rejection. Only set when Authenticated is false.
	Error error

	// Method indicates which credential type was evaluated.
	Method AuthMethod
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        identity.Method,
	}
}

// AuthFailure creates a rejected authentication result.
func AuthFailure(err error, method AuthMethod) *AuthResult {
	return &AuthResult{
		Error:  err,
		Method: method,
	}
}

// AuthenticatorFunc adapts ordinary functions to the Authenticator interface.
type AuthenticatorFunc struct {
	name     string
	supports func(ctx context.Context, req *AuthRequest) bool
	auth     func(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(
	name string,
	supports func(ctx context.Context, req *AuthRequest) bool,
	auth func(ctx context.Context, req *AuthRequest) (*AuthResult, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

func (f *AuthenticatorFunc) Name() string { return f.name }

func (f *AuthenticatorFunc) Supports(ctx context.Context, req *AuthRequest) bool {
	return f.supports(ctx, req)
}

func (f *AuthenticatorFunc) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	return f.auth(ctx, req)
}
