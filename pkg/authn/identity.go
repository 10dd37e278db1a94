package authn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/jwt"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
)

// ErrUserNotFound is returned by stores for missing and soft-deleted users.
var ErrUserNotFound = errors.New("authn: user not found")

// User is the identity store record.
type User struct {
	ID            string
	AuthSubjectID string
	Email         string
	DeletedAt     *time.Time
}

// Identity is the authenticated caller, built per request.
type Identity struct {
	ID            string `json:"id"`
	AuthSubjectID string `json:"authSubjectId"`
	Email         string `json:"email"`
}

// IdentityStore resolves verified subjects to users. Implementations must
// return ErrUserNotFound for soft-deleted accounts.
type IdentityStore interface {
	FindActiveUserBySubject(ctx context.Context, subject string) (*User, error)
}

// TokenVerifier is satisfied by *jwt.Verifier.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the authenticator.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// LoggerExtractor adds user_id to log records.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := IdentityFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return logger.UserID(id.ID), true
	}
}
