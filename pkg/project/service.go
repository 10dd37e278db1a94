package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

// Audit actions and resource type.
const (
	ResourceType  = "project"
	ActionCreated = "project.created"
	ActionUpdated = "project.updated"
	ActionDeleted = "project.deleted"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 1000
)

// AuditWriter is satisfied by *audit.Logger.
type AuditWriter interface {
	Write(ctx context.Context, tc *tenant.Context, ev audit.Event)
	WriteSync(ctx context.Context, tc *tenant.Context, ev audit.Event) bool
}

// Input is the writable part of a project.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Service implements project operations for a resolved tenant.
type Service struct {
	store  Store
	audit  AuditWriter
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, auditor AuditWriter, opts ...ServiceOption) *Service {
	s := &Service{store: store, audit: auditor, logger: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, tc *tenant.Context, in Input) (*Project, error) {
	in, err := validate(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := Project{
		ID:          uuid.NewString(),
		TenantID:    tc.TenantID,
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   tc.Membership.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, apierror.FromStore(err)
	}

	s.audit.Write(ctx, tc, audit.NewEvent(ActionCreated, ResourceType,
		audit.WithResource(p.ID, p.Name),
		audit.WithNewState(p),
	))
	return &p, nil
}

func (s *Service) Update(ctx context.Context, tc *tenant.Context, id string, in Input) (*Project, error) {
	in, err := validate(in)
	if err != nil {
		return nil, err
	}

	current, err := s.get(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Name = in.Name
	updated.Description = in.Description
	updated.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, updated); err != nil {
		return nil, s.storeError(err)
	}

	s.audit.Write(ctx, tc, audit.NewEvent(ActionUpdated, ResourceType,
		audit.WithResource(updated.ID, updated.Name),
		audit.WithPreviousState(*current),
		audit.WithNewState(updated),
	))
	return &updated, nil
}

// Delete removes a project once its audit entry has been stored. If the
// audit store cannot confirm the entry the project is kept.
func (s *Service) Delete(ctx context.Context, tc *tenant.Context, id string) error {
	current, err := s.get(ctx, tc, id)
	if err != nil {
		return err
	}

	ok := s.audit.WriteSync(ctx, tc, audit.NewEvent(ActionDeleted, ResourceType,
		audit.WithResource(current.ID, current.Name),
		audit.WithPreviousState(*current),
	))
	if !ok {
		s.logger.ErrorContext(ctx, "delete refused: audit entry not confirmed",
			logger.Component("project"),
			slog.String("project_id", current.ID),
		)
		return apierror.Unavailable(errors.New("project: audit entry not confirmed"))
	}

	if err := s.store.DeleteProject(ctx, tc.TenantID, current.ID); err != nil {
		return s.storeError(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, tc *tenant.Context) ([]Project, error) {
	list, err := s.store.ListProjects(ctx, tc.TenantID)
	if err != nil {
		return nil, apierror.FromStore(err)
	}
	if list == nil {
		list = []Project{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, tc *tenant.Context, id string) (*Project, error) {
	return s.get(ctx, tc, id)
}

func (s *Service) get(ctx context.Context, tc *tenant.Context, id string) (*Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierror.Validation("Project id is required")
	}
	p, err := s.store.GetProject(ctx, tc.TenantID, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	return p, nil
}

func (s *Service) storeError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return apierror.NotFound("Project not found")
	}
	return apierror.FromStore(err)
}

func validate(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if err := validator.Apply(
		validator.RequiredString("name", in.Name),
		validator.MaxLenString("name", in.Name, maxNameLength),
		validator.MaxLenString("description", in.Description, maxDescriptionLength),
	); err != nil {
		return in, apierror.Invalid("Invalid project", err)
	}
	return in, nil
}
