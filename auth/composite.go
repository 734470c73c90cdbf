package auth

import (
	"context"
	"errors"
)

// CompositeAuthenticator tries authenticators in order and returns the first
// success. An internal error from one authenticator does not stop the
// remaining ones from being tried.
type CompositeAuthenticator struct {
	// Authenticators is the ordered list of authenticators to try.
	Authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{Authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports returns true if any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c.Authenticators {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate tries each supporting authenticator in sequence. When none
// succeeds, joined internal errors take precedence over rejections;
// otherwise the last rejection is returned.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var (
		last *AuthResult
		errs []error
	)

	for _, a := range c.Authenticators {
		if !a.Supports(ctx, req) {
			continue
		}

		result, err := a.Authenticate(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredential, AuthMethodNone), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
