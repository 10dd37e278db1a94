package tenant_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

type mockMemberships struct {
	mock.Mock
}

func (m *mockMemberships) ListActiveMembershipsWithTenant(ctx context.Context, userID string) ([]tenant.MembershipWithTenant, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]tenant.MembershipWithTenant)
	return list, args.Error(1)
}

type failingPermissions struct{ err error }

func (f failingPermissions) ListPermissionsForRole(context.Context, string) ([]rbac.Permission, error) {
	return nil, f.err
}

var ann = &authn.Identity{ID: "user_1", AuthSubjectID: "auth|1", Email: "ann@example.com"}

func membership(tenantID, name, role string) tenant.MembershipWithTenant {
	return tenant.MembershipWithTenant{
		Membership: tenant.Membership{
			ID:       "m_" + tenantID,
			TenantID: tenantID,
			UserID:   ann.ID,
			Role:     role,
			IsActive: true,
		},
		Tenant: tenant.Tenant{ID: tenantID, Name: name, Slug: tenantID},
	}
}

func catalog(t *testing.T) *rbac.Catalog {
	t.Helper()
	c, err := rbac.NewCatalog(context.Background(), rbac.NewInMemRoleSource(rbac.DefaultRoles()))
	require.NoError(t, err)
	return c
}

func newResolver(t *testing.T, list []tenant.MembershipWithTenant, err error) *tenant.Resolver {
	t.Helper()
	store := &mockMemberships{}
	store.On("ListActiveMembershipsWithTenant", mock.Anything, ann.ID).Return(list, err)
	return tenant.NewResolver(store, catalog(t))
}

func apiCode(t *testing.T, err error) *apierror.Error {
	t.Helper()
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("sole membership is the default", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, []tenant.MembershipWithTenant{membership("org_1", "Acme", rbac.RoleMember)}, nil)

		tc, err := r.Resolve(ctx, ann, "")
		require.NoError(t, err)
		assert.Equal(t, "org_1", tc.TenantID)
		assert.Equal(t, rbac.RoleMember, tc.Role)
		assert.True(t, tc.Has(rbac.ProjectCreate))
		assert.False(t, tc.Has(rbac.ProjectDelete))
	})

	t.Run("explicit selector picks the matching membership", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, []tenant.MembershipWithTenant{
			membership("org_1", "Acme", rbac.RoleViewer),
			membership("org_2", "Globex", rbac.RoleAdmin),
		}, nil)

		tc, err := r.Resolve(ctx, ann, "org_2")
		require.NoError(t, err)
		assert.Equal(t, "org_2", tc.TenantID)
		assert.Equal(t, "Globex", tc.Tenant.Name)
		assert.True(t, tc.Has(rbac.ProjectDelete))
	})

	t.Run("foreign tenant is forbidden", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, []tenant.MembershipWithTenant{
			membership("org_1", "Acme", rbac.RoleAdmin),
			membership("org_2", "Globex", rbac.RoleAdmin),
		}, nil)

		_, err := r.Resolve(ctx, ann, "org_3")
		apiErr := apiCode(t, err)
		assert.Equal(t, apierror.CodeForbidden, apiErr.Code)
		assert.Equal(t, apierror.MsgTenantAccessDenied, apiErr.Message)
		assert.Nil(t, apiErr.Details)
	})

	t.Run("ambiguous choice lists candidates", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, []tenant.MembershipWithTenant{
			membership("org_1", "Acme", rbac.RoleAdmin),
			membership("org_2", "Globex", rbac.RoleViewer),
		}, nil)

		tc, err := r.Resolve(ctx, ann, "")
		assert.Nil(t, tc)
		apiErr := apiCode(t, err)
		assert.Equal(t, apierror.CodeValidation, apiErr.Code)

		details, ok := apiErr.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []tenant.Candidate{{ID: "org_1", Name: "Acme"}, {ID: "org_2", Name: "Globex"}}, details["tenants"])
	})

	t.Run("malformed selector is denied like a foreign tenant", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, []tenant.MembershipWithTenant{
			membership("org_1", "Acme", rbac.RoleAdmin),
			membership("org_2", "Globex", rbac.RoleAdmin),
		}, nil)

		for _, selector := range []string{"org 3", "org\x003", strings.Repeat("x", tenant.MaxSelectorLength+1)} {
			_, err := r.Resolve(ctx, ann, selector)
			apiErr := apiCode(t, err)
			assert.Equal(t, apierror.CodeForbidden, apiErr.Code, "selector %q", selector)
			assert.Equal(t, apierror.MsgTenantAccessDenied, apiErr.Message)
		}
	})

	t.Run("no memberships", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, nil, nil)

		for _, selector := range []string{"org_1", "org 1", strings.Repeat("x", tenant.MaxSelectorLength+1)} {
			_, err := r.Resolve(ctx, ann, selector)
			assert.Equal(t, apierror.CodeTenantNotFound, apiCode(t, err).Code, "selector %q", selector)
		}
	})

	t.Run("inactive memberships are ignored", func(t *testing.T) {
		t.Parallel()
		inactive := membership("org_1", "Acme", rbac.RoleAdmin)
		inactive.Membership.IsActive = false
		r := newResolver(t, []tenant.MembershipWithTenant{inactive}, nil)

		_, err := r.Resolve(ctx, ann, "org_1")
		assert.Equal(t, apierror.CodeTenantNotFound, apiCode(t, err).Code)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, nil, errors.New("connection reset"))

		_, err := r.Resolve(ctx, ann, "")
		assert.Equal(t, apierror.CodeInternal, apiCode(t, err).Code)
	})

	t.Run("store timeout", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, nil, fmt.Errorf("query: %w", context.DeadlineExceeded))

		_, err := r.Resolve(ctx, ann, "")
		assert.Equal(t, apierror.CodeServiceUnavailable, apiCode(t, err).Code)
	})

	t.Run("unknown role is internal", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, []tenant.MembershipWithTenant{membership("org_1", "Acme", "ghost")}, nil)

		_, err := r.Resolve(ctx, ann, "")
		assert.Equal(t, apierror.CodeInternal, apiCode(t, err).Code)
	})

	t.Run("permission store unavailable", func(t *testing.T) {
		t.Parallel()
		store := &mockMemberships{}
		store.On("ListActiveMembershipsWithTenant", mock.Anything, ann.ID).
			Return([]tenant.MembershipWithTenant{membership("org_1", "Acme", rbac.RoleAdmin)}, nil)
		r := tenant.NewResolver(store, failingPermissions{err: apierror.ErrUnavailable})

		_, err := r.Resolve(ctx, ann, "")
		assert.Equal(t, apierror.CodeServiceUnavailable, apiCode(t, err).Code)
	})

	t.Run("nil identity", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, nil, nil)

		_, err := r.Resolve(ctx, nil, "")
		assert.Equal(t, apierror.CodeInternal, apiCode(t, err).Code)
	})
}

func TestSwitch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	list := []tenant.MembershipWithTenant{
		membership("org_1", "Acme", rbac.RoleViewer),
		membership("org_2", "Globex", rbac.RoleManager),
	}

	t.Run("returns organization role and permissions", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, list, nil)

		res, err := r.Switch(ctx, ann, "org_1")
		require.NoError(t, err)
		assert.Equal(t, "Acme", res.Organization.Name)
		assert.Equal(t, rbac.RoleViewer, res.Role)
		assert.Equal(t, []string{rbac.OrganizationRead, rbac.ProjectRead}, res.Permissions)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, list, nil)

		first, err := r.Switch(ctx, ann, "org_2")
		require.NoError(t, err)
		second, err := r.Switch(ctx, ann, "org_2")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("requires tenant id", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, list, nil)

		_, err := r.Switch(ctx, ann, "  ")
		apiErr := apiCode(t, err)
		assert.Equal(t, apierror.CodeValidation, apiErr.Code)
		assert.True(t, validator.ExtractValidationErrors(err).Has("tenantId"))
	})

	t.Run("rejects foreign tenant", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, list, nil)

		for _, id := range []string{"org_9", "org 9", strings.Repeat("x", tenant.MaxSelectorLength+1)} {
			_, err := r.Switch(ctx, ann, id)
			assert.Equal(t, apierror.CodeForbidden, apiCode(t, err).Code, "tenant id %q", id)
		}
	})
}

func TestNormalizeSelector(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "org_1", tenant.NormalizeSelector("  org_1 "))
	assert.Empty(t, tenant.NormalizeSelector(" \t"))
	assert.Equal(t, "org 1", tenant.NormalizeSelector("org 1"))
}
