package authn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/jwt"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
)

// Authenticator resolves bearer tokens to identities.
type Authenticator struct {
	verifier TokenVerifier
	store    IdentityStore
	logger   *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(verifier TokenVerifier, store IdentityStore, opts ...Option) *Authenticator {
	a := &Authenticator{
		verifier: verifier,
		store:    store,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate returns the identity for an Authorization header value.
// Errors are *apierror.Error.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, err := jwt.BearerToken(authorization)
	if err != nil {
		return nil, apierror.Unauthorized(apierror.MsgAuthRequired).Wrap(err)
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		a.logger.DebugContext(ctx, "token verification failed", logger.Error(err))
		return nil, apierror.Unauthorized(apierror.MsgInvalidToken).Wrap(err)
	}

	user, err := a.store.FindActiveUserBySubject(ctx, claims.Subject)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, apierror.Unauthorized(apierror.MsgUserNotFound).Wrap(err)
	case err != nil:
		a.logger.ErrorContext(ctx, "identity lookup failed",
			logger.Component("authn"),
			logger.Error(err),
		)
		return nil, apierror.FromStore(err)
	case user == nil || user.DeletedAt != nil:
		return nil, apierror.Unauthorized(apierror.MsgUserNotFound)
	}

	email := user.Email
	if email == "" {
		email = claims.Email
	}
	return &Identity{
		ID:            user.ID,
		AuthSubjectID: claims.Subject,
		Email:         email,
	}, nil
}

// Middleware rejects requests that fail authentication.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			apierror.Write(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches an identity when authentication succeeds and otherwise
// passes the request through untouched.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
