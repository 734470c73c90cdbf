package auth

import (
	"context"
	"time"
)

// RoleID identifies a role in the registry.
type RoleID string

// Principal is an account provisioned outside this package.
// The core references principals but never mutates them.
type Principal struct {
	ID        string
	Email     string
	Role      RoleID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is a named, ordered bundle of permissions.
type Role struct {
	ID          RoleID
	Permissions []Permission
}

// PermissionStrings returns the role's permissions in "resource:action" form.
func (r Role) PermissionStrings() []string {
	out := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		out[i] = p.String()
	}
	return out
}

// TokenPayload is the verified content of an access token.
type TokenPayload struct {
	PrincipalID string
	Email       string
	Role        RoleID
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Issuer      string
	Audience    string
	TokenID     string
}

// RefreshTokenPayload is the verified content of a refresh token.
type RefreshTokenPayload struct {
	PrincipalID string
	Email       string
	Role        RoleID
	Type        string
	ExpiresAt   time.Time
}

// APIKey is the persisted form of an API key. Hash is the only trace of the
// plaintext key material.
type APIKey struct {
	ID          string
	LookupID    string
	Name        string
	Hash        string
	OwnerID     string
	Permissions []string
	Active      bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	LastUsedAt  *time.Time
}

// IsExpired reports whether the key has an expiry in the past.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// PrincipalRepository looks up principals in the authoritative store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: returns ErrPrincipalNotFound when the id is unknown; any other
//   error is treated as a store failure.
type PrincipalRepository interface {
	FindPrincipal(ctx context.Context, id string) (*Principal, error)
}
