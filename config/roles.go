package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/authcore/auth"
)

// ParseRoles parses a role table of the form
//
//	admin=*:*;analyst=flows:read,flows:write
//
// Entries are separated by ';' and permissions by ','. Whitespace and empty
// entries are ignored. Permission syntax is checked by auth.NewRoleRegistry.
func ParseRoles(s string) (map[auth.RoleID][]string, error) {
	roles := make(map[auth.RoleID][]string)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, perms, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed role entry %q", entry)
		}
		id := auth.RoleID(name)
		if _, dup := roles[id]; dup {
			return nil, fmt.Errorf("role %q defined twice", name)
		}

		list := []string{}
		for _, p := range strings.Split(perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		roles[id] = list
	}
	if len(roles) == 0 {
		return nil, errors.New("no roles defined")
	}
	return roles, nil
}
