package reqmeta_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/reqmeta"
)

func capture(t *testing.T, req *http.Request, opts ...reqmeta.Option) (reqmeta.Meta, *httptest.ResponseRecorder) {
	t.Helper()
	var got reqmeta.Meta
	h := reqmeta.Middleware(opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = reqmeta.FromContext(r.Context())
		require.True(t, ok)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("keeps a valid request id", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(reqmeta.Header, "req_123")
		req.Header.Set("User-Agent", "curl/8.0")

		meta, rec := capture(t, req)
		assert.Equal(t, "req_123", meta.RequestID)
		assert.Equal(t, "req_123", rec.Header().Get(reqmeta.Header))
		assert.Equal(t, "curl/8.0", meta.UserAgent)
		assert.Equal(t, "192.0.2.1", meta.IP)
	})

	t.Run("replaces an invalid request id", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(reqmeta.Header, "bad id\n")

		meta, rec := capture(t, req)
		assert.NotEqual(t, "bad id\n", meta.RequestID)
		assert.Len(t, meta.RequestID, 36)
		assert.Equal(t, meta.RequestID, rec.Header().Get(reqmeta.Header))
	})

	t.Run("truncates long user agents", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", strings.Repeat("a", 2000))

		meta, _ := capture(t, req)
		assert.Len(t, meta.UserAgent, 512)
	})
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "garbage, 198.51.100.7, 10.0.0.2")

	assert.Equal(t, "10.0.0.1", reqmeta.ClientIP(req, false))
	assert.Equal(t, "198.51.100.7", reqmeta.ClientIP(req, true))

	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", reqmeta.ClientIP(req, true))
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	_, ok := reqmeta.RequestID(context.Background())
	assert.False(t, ok)

	ctx := reqmeta.WithContext(context.Background(), reqmeta.Meta{RequestID: "r1", IP: "203.0.113.1"})
	id, ok := reqmeta.RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "r1", id)

	ip, ok := reqmeta.IP(ctx)
	assert.True(t, ok)
	assert.Equal(t, "203.0.113.1", ip)

	_, ok = reqmeta.UserAgent(ctx)
	assert.False(t, ok)

	attr, ok := reqmeta.LoggerExtractor()(ctx)
	assert.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
}
