package auth

import (
	"fmt"
	"sort"
	"strings"
)

// RoleRegistry is the static mapping from role id to permissions. It is
// built once and never mutated, so concurrent reads need no locking.
type RoleRegistry struct {
	roles       map[RoleID]Role
	defaultRole RoleID
}

// NewRoleRegistry parses every permission string once. defaultRole is the
// role used at token issuance when a principal's role is unknown; it must be
// present in roles.
func NewRoleRegistry(roles map[RoleID][]string, defaultRole RoleID) (*RoleRegistry, error) {
	if strings.TrimSpace(string(defaultRole)) == "" {
		return nil, fmt.Errorf("role registry: default role is required")
	}

	reg := &RoleRegistry{
		roles:       make(map[RoleID]Role, len(roles)),
		defaultRole: defaultRole,
	}
	for id, perms := range roles {
		if strings.TrimSpace(string(id)) == "" {
			return nil, fmt.Errorf("role registry: empty role id")
		}
		parsed, err := ParsePermissions(perms)
		if err != nil {
			return nil, fmt.Errorf("role registry: role %q: %w", id, err)
		}
		reg.roles[id] = Role{ID: id, Permissions: dedupePermissions(parsed)}
	}

	if _, ok := reg.roles[defaultRole]; !ok {
		return nil, fmt.Errorf("role registry: default role %q: %w", defaultRole, ErrRoleNotFound)
	}
	return reg, nil
}

// Lookup returns the role or ErrRoleNotFound.
func (r *RoleRegistry) Lookup(id RoleID) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrRoleNotFound, id)
	}
	return cloneRole(role), nil
}

// ResolveForIssuance returns the principal's role, falling back to the
// configured default for unknown ids. Only token issuance may use this;
// verification trusts the permissions embedded in the token.
func (r *RoleRegistry) ResolveForIssuance(id RoleID) Role {
	if role, err := r.Lookup(id); err == nil {
		return role
	}
	return cloneRole(r.roles[r.defaultRole])
}

// DefaultRole returns the configured fallback role id.
func (r *RoleRegistry) DefaultRole() RoleID {
	return r.defaultRole
}

// Roles returns the registered role ids in sorted order.
func (r *RoleRegistry) Roles() []RoleID {
	ids := make([]RoleID, 0, len(r.roles))
	for id := range r.roles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneRole(r Role) Role {
	perms := make([]Permission, len(r.Permissions))
	copy(perms, r.Permissions)
	return Role{ID: r.ID, Permissions: perms}
}

func dedupePermissions(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
