package tenant

import (
	"context"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/rbac"
)

// Tenant is an isolated customer workspace.
type Tenant struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Plan      string         `json:"plan"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Membership grants a user a role within one tenant.
type Membership struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joinedAt"`
	InvitedBy *string   `json:"invitedBy,omitempty"`
	IsActive  bool      `json:"isActive"`
}

// MembershipWithTenant is a membership joined with its tenant record.
type MembershipWithTenant struct {
	Membership Membership
	Tenant     Tenant
}

// MembershipStore lists a user's active, non-deleted memberships.
type MembershipStore interface {
	ListActiveMembershipsWithTenant(ctx context.Context, userID string) ([]MembershipWithTenant, error)
}

// PermissionStore expands a role into permissions. *rbac.Catalog satisfies it.
type PermissionStore interface {
	ListPermissionsForRole(ctx context.Context, role string) ([]rbac.Permission, error)
}

// Candidate is the safe view of a tenant offered when the choice is ambiguous.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SwitchResult is returned by Resolver.Switch.
type SwitchResult struct {
	Organization Tenant   `json:"organization"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
}
