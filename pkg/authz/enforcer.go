package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// DenialRecorder counts denials. Implementations must not block.
type DenialRecorder interface {
	RecordDenial(code string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDenial(string) {}

// Enforcer evaluates guards and reports denials.
type Enforcer struct {
	logger   *slog.Logger
	recorder DenialRecorder
}

// Option configures an Enforcer.
type Option func(*Enforcer)

func WithLogger(l *slog.Logger) Option {
	return func(e *Enforcer) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRecorder(r DenialRecorder) Option {
	return func(e *Enforcer) {
		if r != nil {
			e.recorder = r
		}
	}
}

func NewEnforcer(opts ...Option) *Enforcer {
	e := &Enforcer{logger: logger.Discard(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize runs guard against tc. Denials are logged and counted before
// the error is returned.
func (e *Enforcer) Authorize(ctx context.Context, tc *tenant.Context, guard Guard) error {
	if guard == nil {
		guard = Member()
	}
	err := guard(tc)
	if err == nil {
		return nil
	}

	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierror.Internal(err)
	}

	e.recorder.RecordDenial(string(apiErr.Code))
	if apiErr.Code != apierror.CodeInsufficientPermissions || tc == nil {
		e.logger.ErrorContext(ctx, "authorization guard failed",
			logger.Component("authz"),
			logger.Code(string(apiErr.Code)),
			logger.Error(apiErr),
		)
		return apiErr
	}

	e.logger.WarnContext(ctx, "permission denied",
		logger.Component("authz"),
		slog.String("actor_id", tc.Membership.UserID),
		logger.TenantID(tc.TenantID),
		logger.Role(tc.Role),
		logger.Permission(attempted(apiErr)...),
	)
	return apiErr
}

// Middleware guards a handler mounted after tenant.Middleware.
func (e *Enforcer) Middleware(guard Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, _ := tenant.FromContext(r.Context())
			if err := e.Authorize(r.Context(), tc, guard); err != nil {
				apierror.Write(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
