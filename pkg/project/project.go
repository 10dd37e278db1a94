// Package project is the tenant-scoped project resource. Every mutation is
// audited: creates and updates fire-and-forget, deletes only after the audit
// entry is confirmed.
package project

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores for unknown ids and for ids owned by
// another tenant.
var ErrNotFound = errors.New("project: not found")

// Project belongs to exactly one tenant.
type Project struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists projects. Every method is scoped by tenant id.
type Store interface {
	CreateProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, tenantID, id string) (*Project, error)
	UpdateProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, tenantID, id string) error
	ListProjects(ctx context.Context, tenantID string) ([]Project, error)
}
