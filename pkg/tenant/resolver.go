package tenant

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

// Resolver builds tenant contexts from memberships and role permissions.
type Resolver struct {
	memberships MembershipStore
	permissions PermissionStore
	logger      *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(memberships MembershipStore, permissions PermissionStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		memberships: memberships,
		permissions: permissions,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve selects the active tenant for id. selector is the explicit tenant
// id from the client, or "" when none was sent. Errors are *apierror.Error.
func (r *Resolver) Resolve(ctx context.Context, id *authn.Identity, selector string) (*Context, error) {
	if id == nil {
		return nil, apierror.Internal(errors.New("tenant: resolve called without identity"))
	}

	selected, err := r.selectMembership(ctx, id, selector)
	if err != nil {
		return nil, err
	}

	perms, err := r.permissions.ListPermissionsForRole(ctx, selected.Membership.Role)
	if err != nil {
		r.logger.ErrorContext(ctx, "permission lookup failed",
			logger.Component("tenant"),
			logger.UserID(id.ID),
			logger.TenantID(selected.Tenant.ID),
			logger.Role(selected.Membership.Role),
			logger.Error(err),
		)
		if errors.Is(err, rbac.ErrInvalidRole) {
			return nil, apierror.Internal(err)
		}
		return nil, apierror.FromStore(err)
	}

	return newContext(selected, perms), nil
}

// Switch validates that id may act in tenantID and returns the tenant, role
// and permissions the client should use from now on.
func (r *Resolver) Switch(ctx context.Context, id *authn.Identity, tenantID string) (*SwitchResult, error) {
	tenantID = NormalizeSelector(tenantID)
	if err := validator.Apply(validator.RequiredString("tenantId", tenantID)); err != nil {
		return nil, apierror.Invalid("Tenant id is required", err)
	}

	tc, err := r.Resolve(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	return &SwitchResult{
		Organization: tc.Tenant,
		Role:         tc.Role,
		Permissions:  tc.PermissionKeys(),
	}, nil
}

func (r *Resolver) selectMembership(ctx context.Context, id *authn.Identity, selector string) (MembershipWithTenant, error) {
	all, err := r.memberships.ListActiveMembershipsWithTenant(ctx, id.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "membership lookup failed",
			logger.Component("tenant"),
			logger.UserID(id.ID),
			logger.Error(err),
		)
		return MembershipWithTenant{}, apierror.FromStore(err)
	}

	memberships := make([]MembershipWithTenant, 0, len(all))
	for _, m := range all {
		if m.Membership.IsActive && m.Membership.UserID == id.ID && m.Tenant.ID != "" {
			memberships = append(memberships, m)
		}
	}

	if len(memberships) == 0 {
		return MembershipWithTenant{}, apierror.New(apierror.CodeTenantNotFound, apierror.MsgNoTenant)
	}

	if selector != "" {
		if len(selector) <= MaxSelectorLength {
			for _, m := range memberships {
				if m.Tenant.ID == selector {
					return m, nil
				}
			}
		}
		r.logger.WarnContext(ctx, "tenant access denied",
			logger.Component("tenant"),
			logger.UserID(id.ID),
			slog.String("requested_tenant", truncate(selector, MaxSelectorLength)),
		)
		return MembershipWithTenant{}, apierror.Forbidden(apierror.MsgTenantAccessDenied)
	}

	if len(memberships) == 1 {
		return memberships[0], nil
	}

	candidates := make([]Candidate, 0, len(memberships))
	for _, m := range memberships {
		candidates = append(candidates, Candidate{ID: m.Tenant.ID, Name: m.Tenant.Name})
	}
	return MembershipWithTenant{}, apierror.Validation(apierror.MsgTenantAmbiguous).
		WithDetails(map[string]any{"tenants": candidates})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
