package tenant

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
)

type middlewareConfig struct {
	selector SelectorFunc
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithSelector replaces the default X-Tenant-Id header selector.
func WithSelector(s SelectorFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if s != nil {
			c.selector = s
		}
	}
}

// Middleware resolves the tenant context for requests that already carry
// an identity. A missing identity is a wiring bug and answers 500.
func Middleware(resolver *Resolver, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{selector: HeaderSelector(DefaultHeader)}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := authn.IdentityFromContext(r.Context())
			if !ok {
				apierror.Write(w, apierror.New(apierror.CodeInternal, apierror.MsgIdentityNotResolved).
					Wrap(errors.New("tenant middleware mounted before authentication")))
				return
			}

			selector, err := cfg.selector(r)
			if err != nil {
				apierror.Write(w, err)
				return
			}

			tc, err := resolver.Resolve(r.Context(), id, selector)
			if err != nil {
				apierror.Write(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
		})
	}
}
