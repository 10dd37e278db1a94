package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Catalog maps roles to their effective permissions. Inherited permissions
// are resolved once at construction; the catalog is immutable afterwards
// and safe for concurrent use.
type Catalog struct {
	rolePermissions map[string][]Permission
	sortedRoles     []string
}

// NewCatalog loads roles from source and validates them: every permission
// must be a resource:action pair, every inherited role must exist, and the
// inheritance graph must be acyclic and at most MaxInheritanceDepth deep.
func NewCatalog(ctx context.Context, source RoleSource) (*Catalog, error) {
	roles, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = make(map[string]Role)
	}

	if err := validateRoles(roles); err != nil {
		return nil, err
	}
	if err := validateRoleInheritance(roles); err != nil {
		return nil, err
	}

	rolePermissions := make(map[string][]Permission, len(roles))
	for name := range roles {
		keys := collectPermissions(name, roles, make(map[string]bool), 0)
		slices.Sort(keys)
		keys = slices.Compact(keys)

		perms := make([]Permission, 0, len(keys))
		for _, k := range keys {
			p, _ := ParsePermission(k)
			p.Description = Describe(k)
			perms = append(perms, p)
		}
		rolePermissions[name] = perms
	}

	return &Catalog{
		rolePermissions: rolePermissions,
		sortedRoles:     sortRolesByInheritance(roles),
	}, nil
}

// ListPermissionsForRole returns a copy of the effective permissions of
// role, sorted by key. Unknown roles yield ErrInvalidRole.
func (c *Catalog) ListPermissionsForRole(_ context.Context, role string) ([]Permission, error) {
	perms, ok := c.rolePermissions[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return slices.Clone(perms), nil
}

// Can reports whether role holds permission, directly or inherited.
func (c *Catalog) Can(role, permission string) bool {
	for _, p := range c.rolePermissions[role] {
		if p.Key() == permission {
			return true
		}
	}
	return false
}

// HasRole reports whether role is defined.
func (c *Catalog) HasRole(role string) bool {
	_, ok := c.rolePermissions[role]
	return ok
}

// Roles returns role names, base roles first.
func (c *Catalog) Roles() []string {
	return slices.Clone(c.sortedRoles)
}

func validateRoles(roles map[string]Role) error {
	for name, role := range roles {
		if name == "" {
			return fmt.Errorf("%w: empty role name", ErrInvalidRole)
		}
		for _, p := range role.Permissions {
			if _, err := ParsePermission(p); err != nil {
				return fmt.Errorf("role %q: %w", name, err)
			}
		}
		for _, parent := range role.Inherits {
			if _, ok := roles[parent]; !ok {
				return fmt.Errorf("%w: role %q inherits unknown role %q", ErrInvalidRole, name, parent)
			}
		}
	}
	return nil
}

func collectPermissions(name string, roles map[string]Role, visited map[string]bool, depth int) []string {
	if depth > MaxInheritanceDepth || visited[name] {
		return nil
	}
	visited[name] = true

	role, ok := roles[name]
	if !ok {
		return nil
	}

	result := slices.Clone(role.Permissions)
	for _, parent := range role.Inherits {
		result = append(result, collectPermissions(parent, roles, visited, depth+1)...)
	}
	return result
}

// sortRolesByInheritance orders roles by inheritance depth, then name.
func sortRolesByInheritance(roles map[string]Role) []string {
	depths := make(map[string]int, len(roles))
	visited := make(map[string]bool, len(roles))
	for name := range roles {
		if !visited[name] {
			calculateRoleDepth(name, roles, depths, visited, make(map[string]bool))
		}
	}

	result := make([]string, 0, len(roles))
	for name := range roles {
		result = append(result, name)
	}
	slices.SortFunc(result, func(a, b string) int {
		if d := depths[a] - depths[b]; d != 0 {
			return d
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return result
}

func calculateRoleDepth(name string, roles map[string]Role, depths map[string]int, visited, inProcess map[string]bool) int {
	if visited[name] {
		return depths[name]
	}
	if inProcess[name] {
		return 0
	}
	inProcess[name] = true

	maxDepth := 0
	for _, parent := range roles[name].Inherits {
		if d := calculateRoleDepth(parent, roles, depths, visited, inProcess) + 1; d > maxDepth {
			maxDepth = d
		}
	}

	depths[name] = maxDepth
	visited[name] = true
	inProcess[name] = false
	return maxDepth
}

func validateRoleInheritance(roles map[string]Role) error {
	for name := range roles {
		if err := checkCircularInheritance(name, roles, []string{name}); err != nil {
			return err
		}
	}

	depths := make(map[string]int, len(roles))
	visited := make(map[string]bool, len(roles))
	for name := range roles {
		if visited[name] {
			continue
		}
		if d := calculateRoleDepth(name, roles, depths, visited, make(map[string]bool)); d > MaxInheritanceDepth {
			return errors.Join(ErrCircularInheritance,
				fmt.Errorf("inheritance depth exceeds maximum allowed depth of %d", MaxInheritanceDepth))
		}
	}
	return nil
}

func checkCircularInheritance(name string, roles map[string]Role, path []string) error {
	for _, parent := range roles[name].Inherits {
		if slices.Contains(path, parent) {
			return errors.Join(ErrCircularInheritance,
				fmt.Errorf("circular inheritance detected: %s -> %s", name, parent))
		}
		if err := checkCircularInheritance(parent, roles, append(slices.Clone(path), parent)); err != nil {
			return err
		}
	}
	return nil
}
