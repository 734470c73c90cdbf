package auth

import (
	"context"
	"errors"
	"net/http"
)

// Check authorizes the identity attached to ctx. It returns
// ErrMissingCredential when no identity is present and a *ForbiddenError
// when authz denies the request.
func Check(ctx context.Context, authz Authorizer, resource, action string) error {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ErrMissingCredential
	}
	return authz.Authorize(ctx, &AuthzRequest{Subject: id, Resource: resource, Action: action})
}

// Guard returns middleware that runs authz against the request identity.
// Requests without an identity get 401; denied requests get 403.
func Guard(authz Authorizer, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := Check(r.Context(), authz, resource, action)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrMissingCredential):
				WriteUnauthorized(w, msgAuthRequired)
			default:
				WriteForbidden(w, err)
			}
		})
	}
}

// RequirePermission guards a handler with resource:action.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return Guard(PermissionAuthorizer{}, resource, action)
}

// RequireRole guards a handler with membership in any of roles.
func RequireRole(roles ...RoleID) func(http.Handler) http.Handler {
	return Guard(RoleAuthorizer{Roles: roles}, "", "")
}
