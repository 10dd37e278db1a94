// Package tenant resolves which tenant a request acts in and what the
// caller may do there.
//
// Resolver.Resolve loads the caller's active memberships and picks one:
// the membership matching an explicit selector (the X-Tenant-Id header),
// the sole membership when there is exactly one, or none, in which case the
// caller receives the candidate list and must choose. The selector is only
// ever matched against the caller's own memberships, so a forged header
// yields FORBIDDEN without revealing whether the tenant exists.
//
// The selected membership's role is expanded into permissions through a
// PermissionStore and the result is returned as a *Context, the
// request-scoped aggregate every later stage reads.
//
// Resolver.Switch validates a tenant choice the same way and returns what
// the client needs to present it on later requests; no server state changes.
package tenant
