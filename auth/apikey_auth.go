package auth

import (
	"context"
	"errors"
)

// Default API key extraction locations.
const (
	DefaultAPIKeyHeader     = "X-API-Key"
	DefaultAPIKeyQueryParam = "api_key"
)

// APIKeyAuthenticator authenticates API keys from a header or, failing that,
// a query parameter.
type APIKeyAuthenticator struct {
	keys       *APIKeyService
	header     string
	queryParam string
}

// NewAPIKeyAuthenticator creates an API key authenticator. Empty header or
// queryParam select the defaults.
func NewAPIKeyAuthenticator(keys *APIKeyService, header, queryParam string) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	if queryParam == "" {
		queryParam = DefaultAPIKeyQueryParam
	}
	return &APIKeyAuthenticator{keys: keys, header: header, queryParam: queryParam}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether the request carries an API key.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return a.extract(req) != ""
}

func (a *APIKeyAuthenticator) extract(req *AuthRequest) string {
	if key := req.Header(a.header); key != "" {
		return key
	}
	return req.QueryParam(a.queryParam)
}

// Authenticate verifies the API key and builds an identity carrying the
// key's own permission list.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	candidate := a.extract(req)
	if candidate == "" {
		return AuthFailure(ErrMissingCredential, AuthMethodAPIKey), nil
	}

	v, err := a.keys.verify(ctx, candidate)
	if err != nil {
		if errors.Is(err, ErrCredentialStore) || !IsAuthenticationFailure(err) {
			return nil, err
		}
		return AuthFailure(err, AuthMethodAPIKey), nil
	}

	return AuthSuccess(&Identity{
		Principal:   v.principal,
		Permissions: append([]string(nil), v.permissions...),
		Method:      AuthMethodAPIKey,
		KeyID:       v.keyID,
		ExpiresAt:   v.expiresAt,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
