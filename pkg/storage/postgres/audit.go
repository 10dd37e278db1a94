package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
)

const insertAuditQuery = `INSERT INTO audit_logs (
	id, tenant_id, actor_user_id, action, resource_type, resource_id, resource_name,
	previous_state, new_state, metadata, ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	prev, err := marshalJSON(e.PreviousState)
	if err != nil {
		return wrap("encode previous state", err)
	}
	next, err := marshalJSON(e.NewState)
	if err != nil {
		return wrap("encode new state", err)
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return wrap("encode metadata", err)
	}

	_, err = s.db.ExecContext(ctx, insertAuditQuery,
		e.ID, e.TenantID, e.ActorUserID, e.Action, e.ResourceType,
		nullString(e.ResourceID), nullString(e.ResourceName),
		prev, next, metaJSON,
		nullString(e.IPAddress), nullString(e.UserAgent), e.CreatedAt,
	)
	if err != nil {
		return wrap("append audit entry", err)
	}
	return nil
}

// Query counts and pages tenantID's entries, newest first.
func (s *Store) Query(ctx context.Context, tenantID string, f audit.Filter) (audit.Page, error) {
	where, args := auditWhere(tenantID, f)

	page := audit.Page{Limit: f.Limit, Offset: f.Offset, Entries: []audit.Entry{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE `+where, args...).Scan(&page.Total); err != nil {
		return audit.Page{}, wrap("count audit entries", err)
	}
	if page.Total == 0 || f.Offset >= page.Total {
		return page, nil
	}

	q := `SELECT id, tenant_id, actor_user_id, action, resource_type, resource_id, resource_name,
	previous_state, new_state, metadata, ip_address, user_agent, created_at
FROM audit_logs WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}
	args = append(args, f.Offset)
	q += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return audit.Page{}, wrap("query audit entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return audit.Page{}, wrap("scan audit entry", err)
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return audit.Page{}, wrap("query audit entries", err)
	}
	return page, nil
}

func auditWhere(tenantID string, f audit.Filter) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, cond+strconv.Itoa(len(args)))
	}
	if f.ResourceType != "" {
		add("resource_type = $", f.ResourceType)
	}
	if f.ActorUserID != "" {
		add("actor_user_id = $", f.ActorUserID)
	}
	if f.Action != "" {
		add("action = $", f.Action)
	}
	if !f.From.IsZero() {
		add("created_at >= $", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $", f.To)
	}
	return strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (audit.Entry, error) {
	var (
		e                        audit.Entry
		resourceID, resourceName sql.NullString
		ip, ua                   sql.NullString
		prev, next, meta         []byte
	)
	err := rows.Scan(&e.ID, &e.TenantID, &e.ActorUserID, &e.Action, &e.ResourceType,
		&resourceID, &resourceName, &prev, &next, &meta, &ip, &ua, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.ResourceID = resourceID.String
	e.ResourceName = resourceName.String
	e.IPAddress = ip.String
	e.UserAgent = ua.String
	if len(prev) > 0 {
		e.PreviousState = json.RawMessage(prev)
	}
	if len(next) > 0 {
		e.NewState = json.RawMessage(next)
	}
	e.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return e, err
		}
	}
	return e, nil
}
