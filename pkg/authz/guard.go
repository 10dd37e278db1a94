package authz

import (
	"errors"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Guard decides whether a resolved tenant context may proceed. It returns
// nil or an *apierror.Error.
type Guard func(tc *tenant.Context) error

var errNoContext = errors.New("authz: guard evaluated without tenant context")

// RequiredPermission is the denial detail of Require.
type RequiredPermission struct {
	RequiredPermission string `json:"requiredPermission"`
	CurrentRole        string `json:"currentRole"`
}

// RequiredPermissions is the denial detail of RequireAny.
type RequiredPermissions struct {
	RequiredPermissions []string `json:"requiredPermissions"`
	CurrentRole         string   `json:"currentRole"`
}

// MissingPermissions is the denial detail of RequireAll.
type MissingPermissions struct {
	MissingPermissions []string `json:"missingPermissions"`
	CurrentRole        string   `json:"currentRole"`
}

// AllowedRoles is the denial detail of RequireRole.
type AllowedRoles struct {
	AllowedRoles []string `json:"allowedRoles"`
	CurrentRole  string   `json:"currentRole"`
}

func notResolved() *apierror.Error {
	return apierror.New(apierror.CodeInternal, apierror.MsgContextNotResolved).Wrap(errNoContext)
}

func denied(details any) *apierror.Error {
	return apierror.New(apierror.CodeInsufficientPermissions, apierror.MsgInsufficientPerms).WithDetails(details)
}

// Member passes for any resolved context.
func Member() Guard {
	return func(tc *tenant.Context) error {
		if tc == nil {
			return notResolved()
		}
		return nil
	}
}

// Require passes iff tc grants permission.
func Require(permission string) Guard {
	return func(tc *tenant.Context) error {
		if tc == nil {
			return notResolved()
		}
		if tc.Has(permission) {
			return nil
		}
		return denied(RequiredPermission{RequiredPermission: permission, CurrentRole: tc.Role})
	}
}

// RequireAny passes iff tc grants at least one of permissions. An empty
// list passes.
func RequireAny(permissions ...string) Guard {
	permissions = append([]string(nil), permissions...)
	return func(tc *tenant.Context) error {
		if tc == nil {
			return notResolved()
		}
		if len(permissions) == 0 {
			return nil
		}
		for _, p := range permissions {
			if tc.Has(p) {
				return nil
			}
		}
		return denied(RequiredPermissions{RequiredPermissions: permissions, CurrentRole: tc.Role})
	}
}

// RequireAll passes iff tc grants every permission; the denial lists
// exactly the missing ones. An empty list passes.
func RequireAll(permissions ...string) Guard {
	permissions = append([]string(nil), permissions...)
	return func(tc *tenant.Context) error {
		if tc == nil {
			return notResolved()
		}
		missing := tc.Missing(permissions...)
		if len(missing) == 0 {
			return nil
		}
		return denied(MissingPermissions{MissingPermissions: missing, CurrentRole: tc.Role})
	}
}

// RequireRole passes iff the membership role is one of roles. It does not
// consult permissions.
func RequireRole(roles ...string) Guard {
	roles = append([]string(nil), roles...)
	return func(tc *tenant.Context) error {
		if tc == nil {
			return notResolved()
		}
		for _, r := range roles {
			if tc.Role == r {
				return nil
			}
		}
		return denied(AllowedRoles{AllowedRoles: roles, CurrentRole: tc.Role})
	}
}

// HasPermission is the non-blocking query form of Require.
func HasPermission(tc *tenant.Context, permission string) bool {
	return tc.Has(permission)
}

// attempted returns what a denial was about, for logs and metrics.
func attempted(err *apierror.Error) []string {
	switch d := err.Details.(type) {
	case RequiredPermission:
		return []string{d.RequiredPermission}
	case RequiredPermissions:
		return d.RequiredPermissions
	case MissingPermissions:
		return d.MissingPermissions
	case AllowedRoles:
		out := make([]string, 0, len(d.AllowedRoles))
		for _, r := range d.AllowedRoles {
			out = append(out, "role:"+r)
		}
		return out
	}
	return nil
}
