package auth

import (
	"context"
	"errors"
)

// TokenVerifier verifies access tokens. *TokenService implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*TokenPayload, error)
}

// BearerAuthenticator authenticates "Authorization: Bearer <token>" headers.
type BearerAuthenticator struct {
	tokens TokenVerifier
}

// NewBearerAuthenticator creates a bearer token authenticator.
func NewBearerAuthenticator(tokens TokenVerifier) *BearerAuthenticator {
	return &BearerAuthenticator{tokens: tokens}
}

// Name returns "bearer".
func (a *BearerAuthenticator) Name() string { return "bearer" }

// Supports reports whether the request has a bearer Authorization header.
func (a *BearerAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return ExtractBearerToken(req.Header("Authorization")) != ""
}

// Authenticate verifies the bearer token.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	token := ExtractBearerToken(req.Header("Authorization"))
	if token == "" {
		return AuthFailure(ErrMissingCredential, AuthMethodBearer), nil
	}

	payload, err := a.tokens.Verify(ctx, token)
	switch {
	case errors.Is(err, ErrCredentialStore):
		return nil, err
	case err != nil:
		return AuthFailure(err, AuthMethodBearer), nil
	}
	return AuthSuccess(identityFromPayload(payload)), nil
}

var _ Authenticator = (*BearerAuthenticator)(nil)
