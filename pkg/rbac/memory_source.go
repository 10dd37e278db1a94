package rbac

import "context"

// RoleSource provides role definitions.
type RoleSource interface {
	Load(ctx context.Context) (map[string]Role, error)
}

type inMemRoleSource struct {
	roles map[string]Role
}

// NewInMemRoleSource returns a RoleSource over a deep copy of roles.
func NewInMemRoleSource(roles map[string]Role) RoleSource {
	rolesCopy := make(map[string]Role, len(roles))
	for name, r := range roles {
		rolesCopy[name] = Role{
			Permissions: append([]string(nil), r.Permissions...),
			Inherits:    append([]string(nil), r.Inherits...),
		}
	}
	return &inMemRoleSource{roles: rolesCopy}
}

func (s *inMemRoleSource) Load(context.Context) (map[string]Role, error) {
	return s.roles, nil
}
