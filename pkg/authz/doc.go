// Package authz is the permission enforcement stage.
//
// Guards are pure functions over a resolved *tenant.Context:
//
//	authz.Require(rbac.ProjectDelete)
//	authz.RequireAny(rbac.ProjectUpdate, rbac.ProjectDelete)
//	authz.RequireAll(rbac.UserRead, rbac.UserManage)
//	authz.RequireRole(rbac.RoleAdmin, rbac.RoleManager)
//
// A guard given a nil context returns INTERNAL_ERROR: it means the guard ran
// before tenant resolution, which is a wiring bug rather than a denial.
// Denials are INSUFFICIENT_PERMISSIONS and carry the caller's own role and
// the permissions involved.
//
// Enforcer runs guards for HTTP routes, logs denials at warn level and
// counts them. HasPermission and CheckFor are the non-blocking forms used to
// shape responses.
package authz
