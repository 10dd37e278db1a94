package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/authz"
	"github.com/dmitrymomot/tenantguard/pkg/binder"
	"github.com/dmitrymomot/tenantguard/pkg/pipeline"
	"github.com/dmitrymomot/tenantguard/pkg/project"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

type handlers struct {
	switcher     TenantSwitcher
	projects     *project.Service
	audit        AuditReader
	stageTimeout time.Duration
}

type meResponse struct {
	User         *authn.Identity `json:"user"`
	Organization tenant.Tenant   `json:"organization"`
	Role         string          `json:"role"`
	Permissions  []string        `json:"permissions"`
	Can          authz.Check     `json:"can"`
}

func (h *handlers) me(w http.ResponseWriter, _ *http.Request, req *pipeline.Request) error {
	apierror.WriteJSON(w, http.StatusOK, meResponse{
		User:         req.Identity,
		Organization: req.Tenant.Tenant,
		Role:         req.Tenant.Role,
		Permissions:  req.Tenant.PermissionKeys(),
		Can:          authz.CheckFor(req.Tenant),
	})
	return nil
}

func (h *handlers) permissions(w http.ResponseWriter, _ *http.Request, req *pipeline.Request) error {
	apierror.WriteJSON(w, http.StatusOK, authz.CheckFor(req.Tenant))
	return nil
}

type switchRequest struct {
	TenantID string `json:"tenantId"`
}

func (h *handlers) switchTenant(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	var in switchRequest
	if err := binder.JSON(r, &in); err != nil {
		return apierror.Invalid("Invalid request body", err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.stageTimeout)
	defer cancel()
	res, err := h.switcher.Switch(ctx, req.Identity, in.TenantID)
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, res)
	return nil
}

type projectsResponse struct {
	Projects []project.Project `json:"projects"`
}

func (h *handlers) listProjects(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	list, err := h.projects.List(r.Context(), req.Tenant)
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, projectsResponse{Projects: list})
	return nil
}

func (h *handlers) createProject(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	var in project.Input
	if err := binder.JSON(r, &in); err != nil {
		return apierror.Invalid("Invalid request body", err)
	}
	p, err := h.projects.Create(r.Context(), req.Tenant, in)
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusCreated, p)
	return nil
}

func (h *handlers) getProject(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	p, err := h.projects.Get(r.Context(), req.Tenant, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, p)
	return nil
}

func (h *handlers) updateProject(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	var in project.Input
	if err := binder.JSON(r, &in); err != nil {
		return apierror.Invalid("Invalid request body", err)
	}
	p, err := h.projects.Update(r.Context(), req.Tenant, chi.URLParam(r, "id"), in)
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, p)
	return nil
}

func (h *handlers) deleteProject(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	if err := h.projects.Delete(r.Context(), req.Tenant, chi.URLParam(r, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type auditQuery struct {
	ResourceType string    `query:"resourceType"`
	ActorUserID  string    `query:"actorUserId"`
	Action       string    `query:"action"`
	From         time.Time `query:"from"`
	To           time.Time `query:"to"`
	Limit        int       `query:"limit"`
	Offset       int       `query:"offset"`
}

// auditLogs always scopes the query to the resolved tenant; any tenant id
// in the query string is ignored.
func (h *handlers) auditLogs(w http.ResponseWriter, r *http.Request, req *pipeline.Request) error {
	var q auditQuery
	if err := binder.Query(r, &q); err != nil {
		return apierror.Invalid("Invalid query parameters", err)
	}

	page, err := h.audit.Find(r.Context(), req.Tenant.TenantID, audit.Filter{
		ResourceType: q.ResourceType,
		ActorUserID:  q.ActorUserID,
		Action:       q.Action,
		From:         q.From,
		To:           q.To,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		if isInvalidFilter(err) {
			return apierror.Invalid("Invalid audit log filter", err)
		}
		return apierror.FromStore(err)
	}
	apierror.WriteJSON(w, http.StatusOK, page)
	return nil
}
