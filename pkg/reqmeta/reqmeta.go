// Package reqmeta captures per-request metadata (request id, client IP,
// user agent) once at the edge so logs and audit entries can read it from
// the context.
package reqmeta

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantguard/pkg/logger"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

const (
	maxIDLength        = 128
	maxUserAgentLength = 512
)

var validIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Meta is the captured request metadata.
type Meta struct {
	RequestID string
	IP        string
	UserAgent string
}

type contextKey struct{}

func WithContext(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

func FromContext(ctx context.Context) (Meta, bool) {
	if ctx == nil {
		return Meta{}, false
	}
	m, ok := ctx.Value(contextKey{}).(Meta)
	return m, ok
}

// RequestID, IP and UserAgent match audit.ContextExtractor.
func RequestID(ctx context.Context) (string, bool) {
	m, ok := FromContext(ctx)
	return m.RequestID, ok && m.RequestID != ""
}

func IP(ctx context.Context) (string, bool) {
	m, ok := FromContext(ctx)
	return m.IP, ok && m.IP != ""
}

func UserAgent(ctx context.Context) (string, bool) {
	m, ok := FromContext(ctx)
	return m.UserAgent, ok && m.UserAgent != ""
}

// LoggerExtractor adds request_id to log records.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := RequestID(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return logger.RequestID(id), true
	}
}

type config struct {
	trustProxy bool
}

// Option configures Middleware.
type Option func(*config)

// WithTrustProxyHeaders makes ClientIP honour forwarding headers. Enable it
// only behind a proxy that overwrites them.
func WithTrustProxyHeaders(trust bool) Option {
	return func(c *config) { c.trustProxy = trust }
}

// Middleware captures Meta, generating a request id when the client did not
// send a valid one, and echoes the id in the response.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if !isValidRequestID(id) {
				id = uuid.New().String()
			}
			w.Header().Set(Header, id)

			ua := r.UserAgent()
			if len(ua) > maxUserAgentLength {
				ua = ua[:maxUserAgentLength]
			}

			meta := Meta{RequestID: id, IP: ClientIP(r, cfg.trustProxy), UserAgent: ua}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), meta)))
		})
	}
}

func isValidRequestID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}

// ClientIP returns the caller's IP. With trustProxy the priority is
// CF-Connecting-IP, X-Forwarded-For (first valid entry), X-Real-IP, then
// RemoteAddr; without it only RemoteAddr is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
			return ip
		}
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			for part := range strings.SplitSeq(forwarded, ",") {
				if ip := parseIP(part); ip != "" {
					return ip
				}
			}
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
