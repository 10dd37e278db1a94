package ratelimiter

import (
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/reqmeta"
)

const maxKeyLength = 64

// KeyFunc extracts the bucket key. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByIP keys on the client IP resolved by reqmeta.Middleware, falling back
// to the connection's remote address.
func ByIP(r *http.Request) string {
	if ip, ok := reqmeta.IP(r.Context()); ok {
		return "ip:" + ip
	}
	return "ip:" + reqmeta.ClientIP(r, false)
}

// Composite joins non-empty keys. Keys longer than 64 bytes are hashed
// with FNV-1a.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			h := fnv.New64a()
			_, _ = h.Write([]byte(combined))
			return strconv.FormatUint(h.Sum64(), 36)
		}
		return combined
	}
}

// Recorder counts rejected requests. *metrics.Metrics satisfies it.
type Recorder interface {
	RateLimited()
}

type middlewareConfig struct {
	logger   *slog.Logger
	recorder Recorder
}

type MiddlewareOption func(*middlewareConfig)

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r Recorder) MiddlewareOption {
	return func(c *middlewareConfig) { c.recorder = r }
}

// Middleware answers 429 RATE_LIMIT_EXCEEDED once a key's bucket is empty.
// Store failures let the request through and are logged.
func Middleware(limiter RateLimiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{logger: logger.Discard()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				cfg.logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					logger.Component("ratelimiter"),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if retryAfter := int(result.RetryAfter().Seconds()); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				} else {
					w.Header().Set("Retry-After", "1")
				}
				if cfg.recorder != nil {
					cfg.recorder.RateLimited()
				}
				apierror.Write(w, apierror.New(apierror.CodeRateLimitExceeded, apierror.MsgRateLimitExceeded))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
