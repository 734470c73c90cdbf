package auth

import (
	"fmt"
	"strings"
)

// Wildcard matches any resource or any action.
const Wildcard = "*"

// Permission is a (resource, action) capability pair.
type Permission struct {
	Resource string
	Action   string
}

// String returns the "resource:action" form.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// ParsePermission parses "resource:action". Each half must be a non-empty
// lowercase alphanumeric-plus-hyphen token, or the wildcard "*".
func ParsePermission(s string) (Permission, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok {
		return Permission{}, fmt.Errorf("%w: %q: missing ':' separator", ErrInvalidPermission, s)
	}
	if !validPermissionToken(resource) {
		return Permission{}, fmt.Errorf("%w: %q: bad resource %q", ErrInvalidPermission, s, resource)
	}
	if !validPermissionToken(action) {
		return Permission{}, fmt.Errorf("%w: %q: bad action %q", ErrInvalidPermission, s, action)
	}
	return Permission{Resource: resource, Action: action}, nil
}

// MustParsePermission is like ParsePermission but panics on error.
func MustParsePermission(s string) Permission {
	p, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePermissions parses a list, failing on the first malformed entry.
func ParsePermissions(list []string) ([]Permission, error) {
	out := make([]Permission, 0, len(list))
	for _, s := range list {
		p, err := ParsePermission(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func validPermissionToken(s string) bool {
	if s == Wildcard {
		return true
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// MatchKind names the rule that granted a permission check.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchUniversal
	MatchExact
	MatchResourceWildcard
	MatchActionWildcard
)

func (m MatchKind) String() string {
	switch m {
	case MatchUniversal:
		return "universal"
	case MatchExact:
		return "exact"
	case MatchResourceWildcard:
		return "resource_wildcard"
	case MatchActionWildcard:
		return "action_wildcard"
	default:
		return "none"
	}
}

// Match evaluates held against (resource, action) and returns the first rule
// that matched. The order is fixed: "*:*", then "resource:action", then
// "resource:*", then "*:action".
func Match(held []string, resource, action string) MatchKind {
	if len(held) == 0 {
		return MatchNone
	}

	universal := Wildcard + ":" + Wildcard
	exact := resource + ":" + action
	resourceWildcard := resource + ":" + Wildcard
	actionWildcard := Wildcard + ":" + action

	checks := [...]struct {
		perm string
		kind MatchKind
	}{
		{universal, MatchUniversal},
		{exact, MatchExact},
		{resourceWildcard, MatchResourceWildcard},
		{actionWildcard, MatchActionWildcard},
	}
	for _, c := range checks {
		for _, h := range held {
			if h == c.perm {
				return c.kind
			}
		}
	}
	return MatchNone
}

// Satisfies reports whether held grants action on resource.
func Satisfies(held []string, resource, action string) bool {
	return Match(held, resource, action) != MatchNone
}

// SatisfiesPermissions is Satisfies over parsed permissions.
func SatisfiesPermissions(held []Permission, resource, action string) bool {
	strs := make([]string, len(held))
	for i, p := range held {
		strs[i] = p.String()
	}
	return Satisfies(strs, resource, action)
}
