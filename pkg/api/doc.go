// Package api is the HTTP surface: a chi router whose tenant routes run
// through pipeline.Pipeline with one authz guard each.
//
//	GET    /api/me               any member
//	GET    /api/permissions      any member
//	POST   /api/tenants/switch   authenticated, membership checked
//	GET    /api/projects         project:read
//	POST   /api/projects         role owner, admin or manager
//	GET    /api/projects/{id}    project:read
//	PATCH  /api/projects/{id}    project:read and project:update
//	DELETE /api/projects/{id}    project:delete
//	GET    /api/audit-logs       audit_log:read or organization:manage
//	GET    /healthz, /readyz, /metrics
package api
