package tenant

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
)

// Context is the resolved, request-scoped tenant aggregate. It is built
// only from a membership the caller holds and is read-only afterwards.
type Context struct {
	TenantID    string
	Tenant      Tenant
	Membership  Membership
	Role        string
	Permissions []rbac.Permission

	set rbac.PermissionSet
}

func newContext(m MembershipWithTenant, perms []rbac.Permission) *Context {
	return &Context{
		TenantID:    m.Tenant.ID,
		Tenant:      m.Tenant,
		Membership:  m.Membership,
		Role:        m.Membership.Role,
		Permissions: perms,
		set:         rbac.NewPermissionSet(perms),
	}
}

// NewContext builds a Context outside the resolver, for tests and tools
// that already hold a verified membership.
func NewContext(t Tenant, m Membership, perms []rbac.Permission) *Context {
	return newContext(MembershipWithTenant{Membership: m, Tenant: t}, perms)
}

// Has reports whether the context grants permission key.
func (c *Context) Has(key string) bool {
	if c == nil {
		return false
	}
	return c.set.Has(key)
}

// Missing returns the keys the context does not grant, each once.
func (c *Context) Missing(keys ...string) []string {
	if c == nil {
		return rbac.PermissionSet(nil).Missing(keys...)
	}
	return c.set.Missing(keys...)
}

// PermissionKeys returns granted keys, sorted.
func (c *Context) PermissionKeys() []string {
	if c == nil {
		return nil
	}
	return c.set.Keys()
}

type contextKey struct{}

// WithContext attaches tc to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the resolved tenant context, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	return tc, ok && tc != nil
}

// LoggerExtractor adds tenant_id to log records.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		tc, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return logger.TenantID(tc.TenantID), true
	}
}
