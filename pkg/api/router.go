package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/authz"
	"github.com/dmitrymomot/tenantguard/pkg/httpserver"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/metrics"
	"github.com/dmitrymomot/tenantguard/pkg/pipeline"
	"github.com/dmitrymomot/tenantguard/pkg/project"
	"github.com/dmitrymomot/tenantguard/pkg/ratelimiter"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/reqmeta"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// TenantSwitcher is satisfied by *tenant.Resolver.
type TenantSwitcher interface {
	Switch(ctx context.Context, id *authn.Identity, tenantID string) (*tenant.SwitchResult, error)
}

// AuditReader is satisfied by *audit.Reader.
type AuditReader interface {
	Find(ctx context.Context, tenantID string, filter audit.Filter) (audit.Page, error)
}

// Options wires the router. Pipeline, Switcher, Projects and Audit are
// required; the rest are optional.
type Options struct {
	Pipeline *pipeline.Pipeline
	Switcher TenantSwitcher
	Projects *project.Service
	Audit    AuditReader

	Metrics           *metrics.Metrics
	RateLimiter       ratelimiter.RateLimiter
	ReadinessChecks   []httpserver.Check
	StageTimeout      time.Duration
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// NewRouter mounts the API, health and metrics endpoints.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = pipeline.DefaultStageTimeout
	}
	h := &handlers{
		switcher:     opts.Switcher,
		projects:     opts.Projects,
		audit:        opts.Audit,
		stageTimeout: opts.StageTimeout,
	}
	p := opts.Pipeline

	r := chi.NewRouter()
	r.Use(reqmeta.Middleware(reqmeta.WithTrustProxyHeaders(opts.TrustProxyHeaders)))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Instrument(routePattern))
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(opts.Logger, opts.StageTimeout, opts.ReadinessChecks...))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimiter != nil {
			var rlOpts []ratelimiter.MiddlewareOption
			rlOpts = append(rlOpts, ratelimiter.WithLogger(opts.Logger))
			if opts.Metrics != nil {
				rlOpts = append(rlOpts, ratelimiter.WithRecorder(opts.Metrics))
			}
			r.Use(ratelimiter.Middleware(opts.RateLimiter, ratelimiter.ByIP, rlOpts...))
		}

		r.Method(http.MethodGet, "/me", p.Tenant(authz.Member(), h.me))
		r.Method(http.MethodGet, "/permissions", p.Tenant(authz.Member(), h.permissions))
		r.Method(http.MethodPost, "/tenants/switch", p.Identity(h.switchTenant))

		r.Route("/projects", func(r chi.Router) {
			r.Method(http.MethodGet, "/", p.Tenant(authz.Require(rbac.ProjectRead), h.listProjects))
			r.Method(http.MethodPost, "/", p.Tenant(authz.RequireRole(rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleManager), h.createProject))
			r.Method(http.MethodGet, "/{id}", p.Tenant(authz.Require(rbac.ProjectRead), h.getProject))
			r.Method(http.MethodPatch, "/{id}", p.Tenant(authz.RequireAll(rbac.ProjectRead, rbac.ProjectUpdate), h.updateProject))
			r.Method(http.MethodDelete, "/{id}", p.Tenant(authz.Require(rbac.ProjectDelete), h.deleteProject))
		})

		r.Method(http.MethodGet, "/audit-logs", p.Tenant(authz.RequireAny(rbac.AuditLogRead, rbac.OrganizationManage), h.auditLogs))
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
