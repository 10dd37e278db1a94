package rbac

import (
	"fmt"
	"slices"
	"strings"
)

// MaxInheritanceDepth is the maximum allowed depth of role inheritance.
const MaxInheritanceDepth = 10

// Permission is the atomic authorization unit, keyed as "resource:action".
type Permission struct {
	ID          string `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// Key returns the "resource:action" form.
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}

// ParsePermission splits "resource:action". Both parts must be non-empty.
func ParsePermission(s string) (Permission, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || resource == "" || action == "" || strings.Contains(action, ":") {
		return Permission{}, fmt.Errorf("%w: %q", ErrInvalidPermission, s)
	}
	return Permission{ID: resource + ":" + action, Resource: resource, Action: action}, nil
}

// Role is a named permission bundle with optional inheritance.
type Role struct {
	// Permissions directly granted to this role, as resource:action strings.
	Permissions []string `yaml:"permissions" json:"permissions"`

	// Inherits lists role names whose permissions are included.
	Inherits []string `yaml:"inherits,omitempty" json:"inherits,omitempty"`
}

// PermissionSet is a lookup-friendly set of permission keys.
type PermissionSet map[string]struct{}

func NewPermissionSet(perms []Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p.Key()] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Missing returns the keys not present in s, preserving input order.
func (s PermissionSet) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !s.Has(k) && !slices.Contains(missing, k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Keys returns the set as a sorted slice.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
