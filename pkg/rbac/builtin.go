package rbac

// Built-in role names.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
	RoleViewer  = "viewer"
)

// Built-in permission keys.
const (
	ProjectRead   = "project:read"
	ProjectCreate = "project:create"
	ProjectUpdate = "project:update"
	ProjectDelete = "project:delete"

	UserRead   = "user:read"
	UserInvite = "user:invite"
	UserManage = "user:manage"

	OrganizationRead   = "organization:read"
	OrganizationManage = "organization:manage"
	OrganizationDelete = "organization:delete"

	BillingRead   = "billing:read"
	BillingManage = "billing:manage"

	AuditLogRead = "audit_log:read"
)

var descriptions = map[string]string{
	ProjectRead:        "View projects",
	ProjectCreate:      "Create projects",
	ProjectUpdate:      "Edit projects",
	ProjectDelete:      "Delete projects",
	UserRead:           "View organization members",
	UserInvite:         "Invite members",
	UserManage:         "Change member roles and remove members",
	OrganizationRead:   "View organization details",
	OrganizationManage: "Change organization settings",
	OrganizationDelete: "Delete the organization",
	BillingRead:        "View billing and invoices",
	BillingManage:      "Change plan and payment methods",
	AuditLogRead:       "View the audit trail",
}

// Describe returns the built-in description for a permission key, or "".
func Describe(key string) string {
	return descriptions[key]
}

// DefaultRoles returns the built-in role table. Each call returns a fresh map.
func DefaultRoles() map[string]Role {
	return map[string]Role{
		RoleViewer: {
			Permissions: []string{ProjectRead, OrganizationRead},
		},
		RoleMember: {
			Permissions: []string{ProjectCreate, ProjectUpdate, UserRead},
			Inherits:    []string{RoleViewer},
		},
		RoleManager: {
			Permissions: []string{UserInvite, AuditLogRead},
			Inherits:    []string{RoleMember},
		},
		RoleAdmin: {
			Permissions: []string{ProjectDelete, UserManage, OrganizationManage, BillingRead},
			Inherits:    []string{RoleManager},
		},
		RoleOwner: {
			Permissions: []string{OrganizationDelete, BillingManage},
			Inherits:    []string{RoleAdmin},
		},
	}
}
