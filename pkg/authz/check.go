package authz

import (
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Check tells a client which actions are available in the current tenant.
type Check struct {
	CanView          bool `json:"canView"`
	CanCreate        bool `json:"canCreate"`
	CanEdit          bool `json:"canEdit"`
	CanDelete        bool `json:"canDelete"`
	CanManageUsers   bool `json:"canManageUsers"`
	CanManageOrg     bool `json:"canManageOrg"`
	CanViewBilling   bool `json:"canViewBilling"`
	CanViewAuditLogs bool `json:"canViewAuditLogs"`
}

// CheckFor derives a Check from tc. A nil context grants nothing.
func CheckFor(tc *tenant.Context) Check {
	return Check{
		CanView:          tc.Has(rbac.ProjectRead),
		CanCreate:        tc.Has(rbac.ProjectCreate),
		CanEdit:          tc.Has(rbac.ProjectUpdate),
		CanDelete:        tc.Has(rbac.ProjectDelete),
		CanManageUsers:   tc.Has(rbac.UserManage),
		CanManageOrg:     tc.Has(rbac.OrganizationManage),
		CanViewBilling:   tc.Has(rbac.BillingRead),
		CanViewAuditLogs: tc.Has(rbac.AuditLogRead),
	}
}
