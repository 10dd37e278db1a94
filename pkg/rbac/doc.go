// Package rbac maps roles to resource:action permissions.
//
// Role definitions are fixed at deploy time. DefaultRoles provides the
// built-in table (owner > admin > manager > member > viewer, each inheriting
// from the next); NewFileRoleSource reads an alternative table from YAML:
//
//	roles:
//	  viewer:
//	    permissions: [project:read, organization:read]
//	  member:
//	    inherits: [viewer]
//	    permissions: [project:create, project:update]
//
// NewCatalog validates the table (well-formed permission keys, known parent
// roles, no cycles, depth at most MaxInheritanceDepth) and resolves
// inherited permissions once. The resulting *Catalog is the
// Role-Permission Resolver: ListPermissionsForRole answers the tenant
// resolver's per-request lookup without I/O.
//
//	catalog, err := rbac.NewCatalog(ctx, rbac.NewInMemRoleSource(rbac.DefaultRoles()))
//	perms, err := catalog.ListPermissionsForRole(ctx, "manager")
package rbac
