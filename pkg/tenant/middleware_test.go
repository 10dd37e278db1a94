package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	list := []tenant.MembershipWithTenant{
		membership("org_1", "Acme", rbac.RoleAdmin),
		membership("org_2", "Globex", rbac.RoleViewer),
	}

	serve := func(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *tenant.Context) {
		t.Helper()
		var got *tenant.Context
		h := tenant.Middleware(newResolver(t, list, nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = tenant.FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec, got
	}

	t.Run("resolves from header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(authn.WithIdentity(req.Context(), ann))
		req.Header.Set(tenant.DefaultHeader, "org_2")

		rec, tc := serve(t, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, tc)
		assert.Equal(t, "org_2", tc.TenantID)
	})

	t.Run("ambiguous without header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(authn.WithIdentity(req.Context(), ann))

		rec, tc := serve(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, tc)
		assert.Contains(t, rec.Body.String(), `"tenants":[{"id":"org_1","name":"Acme"},{"id":"org_2","name":"Globex"}]`)
	})

	t.Run("malformed header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(authn.WithIdentity(req.Context(), ann))
		req.Header.Set(tenant.DefaultHeader, "org\x01")

		rec, _ := serve(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing identity is a server error", func(t *testing.T) {
		t.Parallel()
		rec, tc := serve(t, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Nil(t, tc)
	})
}
