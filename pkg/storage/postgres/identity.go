package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/pg"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

const findUserQuery = `SELECT id, auth_subject_id, email, deleted_at
FROM users
WHERE auth_subject_id = $1 AND deleted_at IS NULL`

func (s *Store) FindActiveUserBySubject(ctx context.Context, subject string) (*authn.User, error) {
	var (
		u         authn.User
		deletedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, findUserQuery, subject).
		Scan(&u.ID, &u.AuthSubjectID, &u.Email, &deletedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, authn.ErrUserNotFound
		}
		return nil, wrap("find user", err)
	}
	if deletedAt.Valid {
		return nil, authn.ErrUserNotFound
	}
	return &u, nil
}

const listMembershipsQuery = `SELECT m.id, m.tenant_id, m.user_id, m.role, m.joined_at, m.invited_by, m.is_active,
	t.id, t.name, t.slug, t.plan, t.settings, t.created_at, t.updated_at
FROM tenant_memberships m
JOIN tenants t ON t.id = m.tenant_id
WHERE m.user_id = $1 AND m.is_active AND t.deleted_at IS NULL
ORDER BY m.joined_at, t.id`

func (s *Store) ListActiveMembershipsWithTenant(ctx context.Context, userID string) ([]tenant.MembershipWithTenant, error) {
	rows, err := s.db.QueryContext(ctx, listMembershipsQuery, userID)
	if err != nil {
		return nil, wrap("list memberships", err)
	}
	defer rows.Close()

	var out []tenant.MembershipWithTenant
	for rows.Next() {
		var (
			mt        tenant.MembershipWithTenant
			invitedBy sql.NullString
			settings  []byte
		)
		err := rows.Scan(
			&mt.Membership.ID, &mt.Membership.TenantID, &mt.Membership.UserID, &mt.Membership.Role,
			&mt.Membership.JoinedAt, &invitedBy, &mt.Membership.IsActive,
			&mt.Tenant.ID, &mt.Tenant.Name, &mt.Tenant.Slug, &mt.Tenant.Plan, &settings,
			&mt.Tenant.CreatedAt, &mt.Tenant.UpdatedAt,
		)
		if err != nil {
			return nil, wrap("scan membership", err)
		}
		if invitedBy.Valid {
			mt.Membership.InvitedBy = &invitedBy.String
		}
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &mt.Tenant.Settings); err != nil {
				return nil, wrap("decode tenant settings", err)
			}
		}
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list memberships", err)
	}
	return out, nil
}
