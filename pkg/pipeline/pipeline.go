package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/authz"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// DefaultStageTimeout bounds each store-backed stage.
const DefaultStageTimeout = 5 * time.Second

// Authenticator is satisfied by *authn.Authenticator.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*authn.Identity, error)
}

// TenantResolver is satisfied by *tenant.Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, id *authn.Identity, selector string) (*tenant.Context, error)
}

// Request carries the stage results into a handler. Tenant is nil only for
// handlers mounted with Pipeline.Identity.
type Request struct {
	Identity *authn.Identity
	Tenant   *tenant.Context
}

// HandlerFunc handles an authorized request. A returned error is rendered
// as the error envelope; unknown errors become INTERNAL_ERROR.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, req *Request) error

// Pipeline dispatches requests through the authorization stages.
type Pipeline struct {
	authn        Authenticator
	resolver     TenantResolver
	enforcer     *authz.Enforcer
	selector     tenant.SelectorFunc
	stageTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stageTimeout = d
		}
	}
}

// WithSelector replaces the default X-Tenant-Id header selector.
func WithSelector(s tenant.SelectorFunc) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.selector = s
		}
	}
}

func WithEnforcer(e *authz.Enforcer) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.enforcer = e
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(a Authenticator, r TenantResolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		authn:        a,
		resolver:     r,
		selector:     tenant.HeaderSelector(tenant.DefaultHeader),
		stageTimeout: DefaultStageTimeout,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.enforcer == nil {
		p.enforcer = authz.NewEnforcer(authz.WithLogger(p.logger))
	}
	return p
}

// Identity serves h for authenticated callers without resolving a tenant.
func (p *Pipeline) Identity(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := p.authenticate(r)
		if err != nil {
			p.fail(w, r, err)
			return
		}

		r = r.WithContext(authn.WithIdentity(r.Context(), id))
		p.serve(w, r, h, &Request{Identity: id})
	})
}

// Tenant serves h once the caller is authenticated, the tenant is resolved
// and guard passes. A nil guard admits any member of the tenant.
func (p *Pipeline) Tenant(guard authz.Guard, h HandlerFunc) http.Handler {
	if guard == nil {
		guard = authz.Member()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := p.authenticate(r)
		if err != nil {
			p.fail(w, r, err)
			return
		}
		r = r.WithContext(authn.WithIdentity(r.Context(), id))

		tc, err := p.resolve(r, id)
		if err != nil {
			p.fail(w, r, err)
			return
		}
		r = r.WithContext(tenant.WithContext(r.Context(), tc))

		if err := p.enforcer.Authorize(r.Context(), tc, guard); err != nil {
			p.fail(w, r, err)
			return
		}

		p.serve(w, r, h, &Request{Identity: id, Tenant: tc})
	})
}

func (p *Pipeline) authenticate(r *http.Request) (*authn.Identity, error) {
	header := r.Header.Get("Authorization")
	return runStage(r.Context(), p.stageTimeout, func(ctx context.Context) (*authn.Identity, error) {
		return p.authn.Authenticate(ctx, header)
	})
}

func (p *Pipeline) resolve(r *http.Request, id *authn.Identity) (*tenant.Context, error) {
	selector, err := p.selector(r)
	if err != nil {
		return nil, err
	}
	return runStage(r.Context(), p.stageTimeout, func(ctx context.Context) (*tenant.Context, error) {
		return p.resolver.Resolve(ctx, id, selector)
	})
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, h HandlerFunc, req *Request) {
	if err := h(w, r, req); err != nil {
		p.fail(w, r, err)
	}
}

func (p *Pipeline) fail(w http.ResponseWriter, r *http.Request, err error) {
	written := apierror.Write(w, err)
	if written.Status() >= http.StatusInternalServerError {
		p.logger.ErrorContext(r.Context(), "request failed",
			logger.Component("pipeline"),
			logger.Code(string(written.Code)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(errors.Unwrap(written)),
		)
	}
}

// runStage runs fn under timeout. A stage that hits the deadline answers
// SERVICE_UNAVAILABLE regardless of the error it produced.
func runStage[T any](parent context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		var zero T
		return zero, apierror.Unavailable(errors.Join(err, ctx.Err()))
	}
	return v, err
}
