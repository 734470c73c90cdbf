package auth

import (
	"context"
	"fmt"
	"strings"
)

// Authorizer determines if an identity is allowed to perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, or a *ForbiddenError if denied.
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request.
	Subject *Identity

	// Resource is the target resource (e.g., "flows").
	Resource string

	// Action is the requested action (e.g., "read", "delete").
	Action string
}

// Permission returns the "resource:action" string being requested.
func (r *AuthzRequest) Permission() string {
	return Permission{Resource: r.Resource, Action: r.Action}.String()
}

// ForbiddenError represents an authorization failure. Required names the
// missing permission or the accepted roles; Current is the subject's role
// when a role check failed.
type ForbiddenError struct {
	Subject  string
	Required string
	Current  string
	Reason   string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q required=%q reason=%q",
		e.Subject, e.Required, e.Reason)
}

// Is reports whether this error matches the target.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// PermissionAuthorizer grants requests whose subject's permission set
// satisfies resource:action.
type PermissionAuthorizer struct{}

// Name returns "permission".
func (PermissionAuthorizer) Name() string { return "permission" }

// Authorize evaluates the subject's permissions with wildcard semantics.
func (PermissionAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject != nil && req.Subject.Can(req.Resource, req.Action) {
		return nil
	}
	return &ForbiddenError{
		Subject:  subjectID(req.Subject),
		Required: req.Permission(),
		Reason:   "insufficient permissions",
	}
}

// RoleAuthorizer grants requests whose subject holds one of Roles.
type RoleAuthorizer struct {
	Roles []RoleID
}

// Name returns "role".
func (RoleAuthorizer) Name() string { return "role" }

// Authorize checks the subject's role membership.
func (a RoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject != nil && req.Subject.HasRole(a.Roles...) {
		return nil
	}
	names := make([]string, len(a.Roles))
	for i, r := range a.Roles {
		names[i] = string(r)
	}
	var current string
	if req.Subject != nil {
		current = string(req.Subject.Principal.Role)
	}
	return &ForbiddenError{
		Subject:  subjectID(req.Subject),
		Required: strings.Join(names, ","),
		Current:  current,
		Reason:   fmt.Sprintf("role %q not in [%s]", current, strings.Join(names, ", ")),
	}
}

// AuthorizerFunc adapts ordinary functions to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func".
func (f AuthorizerFunc) Name() string { return "func" }

func subjectID(id *Identity) string {
	if id == nil {
		return ""
	}
	return id.Principal.ID
}
