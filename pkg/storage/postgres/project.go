package postgres

import (
	"context"

	"github.com/dmitrymomot/tenantguard/pkg/pg"
	"github.com/dmitrymomot/tenantguard/pkg/project"
)

const projectColumns = `id, tenant_id, name, description, created_by, created_at, updated_at`

func (s *Store) CreateProject(ctx context.Context, p project.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.TenantID, p.Name, p.Description, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrap("create project", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, tenantID, id string) (*project.Project, error) {
	var p project.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, project.ErrNotFound
		}
		return nil, wrap("get project", err)
	}
	return &p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p project.Project) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = $3, description = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.Name, p.Description, p.UpdatedAt,
	)
	if err != nil {
		return wrap("update project", err)
	}
	return affected(res, "update project")
}

func (s *Store) DeleteProject(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM projects WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return wrap("delete project", err)
	}
	return affected(res, "delete project")
}

func (s *Store) ListProjects(ctx context.Context, tenantID string) ([]project.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE tenant_id = $1 ORDER BY created_at DESC, id`,
		tenantID,
	)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	defer rows.Close()

	var out []project.Project
	for rows.Next() {
		var p project.Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrap("scan project", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list projects", err)
	}
	return out, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func affected(res rowsAffecter, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return project.ErrNotFound
	}
	return nil
}
