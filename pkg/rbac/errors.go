package rbac

import "errors"

var (
	// ErrInvalidRole is returned when a role does not exist.
	ErrInvalidRole = errors.New("rbac.invalid_role")

	// ErrInvalidPermission is returned for strings that are not resource:action pairs.
	ErrInvalidPermission = errors.New("rbac.invalid_permission")

	// ErrCircularInheritance is returned when roles have circular or too deep inheritance.
	ErrCircularInheritance = errors.New("rbac.circular_inheritance")

	// ErrLoadRoles is returned when a role source cannot be read or decoded.
	ErrLoadRoles = errors.New("rbac.load_roles")
)
