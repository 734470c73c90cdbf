package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodNone   AuthMethod = "none"
	AuthMethodBearer AuthMethod = "bearer"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Identity is the authenticated principal attached to a request, together
// with the permission set it was granted for this request.
type Identity struct {
	// Principal is the authenticated account.
	Principal Principal

	// Permissions are the permissions granted to this request. For bearer
	// tokens this is the snapshot embedded at issuance; for API keys it is
	// the key's own permission list.
	Permissions []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// KeyID is the API key record id when Method is AuthMethodAPIKey.
	KeyID string

	// TokenID is the jti of the bearer token when Method is AuthMethodBearer.
	TokenID string

	// ExpiresAt is when the credential expires (zero = never).
	ExpiresAt time.Time

	// IssuedAt is when the credential was issued.
	IssuedAt time.Time
}

// HasRole reports whether the principal holds one of the given roles.
func (id *Identity) HasRole(roles ...RoleID) bool {
	return slices.Contains(roles, id.Principal.Role)
}

// HasPermission reports whether perm appears verbatim in the permission set.
func (id *Identity) HasPermission(perm string) bool {
	return slices.Contains(id.Permissions, perm)
}

// Can evaluates the permission set against (resource, action) with wildcard
// semantics.
func (id *Identity) Can(resource, action string) bool {
	return Satisfies(id.Permissions, resource, action)
}

// IsExpired checks if the credential behind this identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

func identityFromPayload(p *TokenPayload) *Identity {
	return &Identity{
		Principal: Principal{
			ID:     p.PrincipalID,
			Email:  p.Email,
			Role:   p.Role,
			Active: true,
		},
		Permissions: p.Permissions,
		Method:      AuthMethodBearer,
		TokenID:     p.TokenID,
		ExpiresAt:   p.ExpiresAt,
		IssuedAt:    p.IssuedAt,
	}
}
