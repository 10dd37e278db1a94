package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/project"
	"github.com/dmitrymomot/tenantguard/pkg/storage/memory"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func TestIdentityAndMemberships(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.New()
	deleted := time.Now()
	s.AddUser(authn.User{ID: "u1", AuthSubjectID: "auth|1"})
	s.AddUser(authn.User{ID: "u2", AuthSubjectID: "auth|2", DeletedAt: &deleted})
	s.AddTenant(tenant.Tenant{ID: "org_1", Name: "Acme"})
	s.AddTenant(tenant.Tenant{ID: "org_2", Name: "Globex"})
	s.AddMembership(tenant.Membership{ID: "m1", TenantID: "org_2", UserID: "u1", Role: "admin", IsActive: true, JoinedAt: deleted.Add(time.Hour)})
	s.AddMembership(tenant.Membership{ID: "m2", TenantID: "org_1", UserID: "u1", Role: "viewer", IsActive: true, JoinedAt: deleted})
	s.AddMembership(tenant.Membership{ID: "m3", TenantID: "org_1", UserID: "u2", Role: "viewer", IsActive: false})
	s.AddMembership(tenant.Membership{ID: "m4", TenantID: "org_missing", UserID: "u1", Role: "viewer", IsActive: true})

	u, err := s.FindActiveUserBySubject(ctx, "auth|1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = s.FindActiveUserBySubject(ctx, "auth|2")
	assert.ErrorIs(t, err, authn.ErrUserNotFound)

	list, err := s.ListActiveMembershipsWithTenant(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "org_1", list[0].Tenant.ID)
	assert.Equal(t, "org_2", list[1].Tenant.ID)

	list, err = s.ListActiveMembershipsWithTenant(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjectsAreTenantScoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.CreateProject(ctx, project.Project{ID: "p1", TenantID: "org_1", Name: "One"}))
	require.NoError(t, s.CreateProject(ctx, project.Project{ID: "p2", TenantID: "org_2", Name: "Two"}))

	_, err := s.GetProject(ctx, "org_1", "p2")
	assert.ErrorIs(t, err, project.ErrNotFound)
	assert.ErrorIs(t, s.DeleteProject(ctx, "org_1", "p2"), project.ErrNotFound)
	assert.ErrorIs(t, s.UpdateProject(ctx, project.Project{ID: "p2", TenantID: "org_1"}), project.ErrNotFound)

	list, err := s.ListProjects(ctx, "org_1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)

	require.NoError(t, s.DeleteProject(ctx, "org_1", "p1"))
	list, err = s.ListProjects(ctx, "org_1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAuditQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.New()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, s.Append(ctx, audit.Entry{
			ID:           fmt.Sprintf("a%d", i),
			TenantID:     "org_1",
			ActorUserID:  "u1",
			ResourceType: "project",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Append(ctx, audit.Entry{ID: "b1", TenantID: "org_2", ResourceType: "project", CreatedAt: base}))

	page, err := s.Query(ctx, "org_1", audit.Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "a3", page.Entries[0].ID)
	assert.Equal(t, "a2", page.Entries[1].ID)

	page, err = s.Query(ctx, "org_1", audit.Filter{Limit: 10, From: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = s.Query(ctx, "org_1", audit.Filter{Limit: 10, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	page, err = s.Query(ctx, "org_2", audit.Filter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "org_2", page.Entries[0].TenantID)
}
