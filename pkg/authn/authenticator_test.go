package authn_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/jwt"
)

var secret = []byte("authn-test-secret-authn-test-secret")

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindActiveUserBySubject(ctx context.Context, subject string) (*authn.User, error) {
	args := m.Called(ctx, subject)
	user, _ := args.Get(0).(*authn.User)
	return user, args.Error(1)
}

func setup(t *testing.T) (*authn.Authenticator, *mockStore, *jwt.Issuer) {
	t.Helper()
	verifier, err := jwt.NewVerifier(secret)
	require.NoError(t, err)
	issuer, err := jwt.NewIssuer(secret, "")
	require.NoError(t, err)
	store := &mockStore{}
	return authn.New(verifier, store), store, issuer
}

func bearer(t *testing.T, iss *jwt.Issuer, subject string, ttl time.Duration) string {
	t.Helper()
	token, err := iss.Generate(subject, "token@example.com", ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func requireCode(t *testing.T, err error, code apierror.Code, msg string) {
	t.Helper()
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
	if msg != "" {
		assert.Equal(t, msg, apiErr.Message)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("resolves identity", func(t *testing.T) {
		t.Parallel()
		a, store, iss := setup(t)
		store.On("FindActiveUserBySubject", mock.Anything, "auth|1").
			Return(&authn.User{ID: "user_1", AuthSubjectID: "auth|1", Email: "ann@example.com"}, nil)

		id, err := a.Authenticate(context.Background(), bearer(t, iss, "auth|1", time.Minute))
		require.NoError(t, err)
		assert.Equal(t, &authn.Identity{ID: "user_1", AuthSubjectID: "auth|1", Email: "ann@example.com"}, id)
		store.AssertExpectations(t)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()
		a, store, _ := setup(t)

		_, err := a.Authenticate(context.Background(), "")
		requireCode(t, err, apierror.CodeUnauthorized, apierror.MsgAuthRequired)
		store.AssertNotCalled(t, "FindActiveUserBySubject", mock.Anything, mock.Anything)
	})

	t.Run("malformed scheme", func(t *testing.T) {
		t.Parallel()
		a, _, _ := setup(t)

		_, err := a.Authenticate(context.Background(), "Basic dXNlcjpwYXNz")
		requireCode(t, err, apierror.CodeUnauthorized, apierror.MsgAuthRequired)
	})

	t.Run("expired and forged tokens share one message", func(t *testing.T) {
		t.Parallel()
		a, _, iss := setup(t)
		forger, err := jwt.NewIssuer([]byte("forged-secret-forged-secret-forged"), "")
		require.NoError(t, err)

		_, expiredErr := a.Authenticate(context.Background(), bearer(t, iss, "auth|1", -time.Hour))
		_, forgedErr := a.Authenticate(context.Background(), bearer(t, forger, "auth|1", time.Minute))

		requireCode(t, expiredErr, apierror.CodeUnauthorized, apierror.MsgInvalidToken)
		requireCode(t, forgedErr, apierror.CodeUnauthorized, apierror.MsgInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()
		a, _, iss := setup(t)

		_, err := a.Authenticate(context.Background(), bearer(t, iss, "", time.Minute))
		requireCode(t, err, apierror.CodeUnauthorized, apierror.MsgInvalidToken)
	})

	t.Run("deactivated user", func(t *testing.T) {
		t.Parallel()
		a, store, iss := setup(t)
		store.On("FindActiveUserBySubject", mock.Anything, "auth|gone").Return(nil, authn.ErrUserNotFound)

		_, err := a.Authenticate(context.Background(), bearer(t, iss, "auth|gone", time.Minute))
		requireCode(t, err, apierror.CodeUnauthorized, apierror.MsgUserNotFound)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		t.Parallel()
		a, store, iss := setup(t)
		store.On("FindActiveUserBySubject", mock.Anything, "auth|1").Return(nil, errors.New("boom"))

		_, err := a.Authenticate(context.Background(), bearer(t, iss, "auth|1", time.Minute))
		requireCode(t, err, apierror.CodeInternal, "")
	})

	t.Run("unreachable store is unavailable", func(t *testing.T) {
		t.Parallel()
		a, store, iss := setup(t)
		store.On("FindActiveUserBySubject", mock.Anything, "auth|1").Return(nil, apierror.ErrUnavailable)

		_, err := a.Authenticate(context.Background(), bearer(t, iss, "auth|1", time.Minute))
		requireCode(t, err, apierror.CodeServiceUnavailable, "")
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects without calling next", func(t *testing.T) {
		t.Parallel()
		a, _, _ := setup(t)
		called := false
		h := a.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/projects", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
	})

	t.Run("attaches identity", func(t *testing.T) {
		t.Parallel()
		a, store, iss := setup(t)
		store.On("FindActiveUserBySubject", mock.Anything, "auth|1").Return(&authn.User{ID: "user_1"}, nil)

		var got *authn.Identity
		h := a.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got, _ = authn.IdentityFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", bearer(t, iss, "auth|1", time.Minute))
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, got)
		assert.Equal(t, "user_1", got.ID)
		assert.Equal(t, "token@example.com", got.Email)
	})
}

func TestOptional(t *testing.T) {
	t.Parallel()

	a, store, iss := setup(t)
	store.On("FindActiveUserBySubject", mock.Anything, "auth|1").Return(nil, errors.New("db down"))

	for name, header := range map[string]string{
		"no header":     "",
		"bad token":     "Bearer nope",
		"store failure": bearer(t, iss, "auth|1", time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var attached bool
			h := a.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, attached = authn.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.False(t, attached)
		})
	}
}
