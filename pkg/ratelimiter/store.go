package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. ConsumeTokens never takes tokens from a bucket
// that cannot cover the request; it reports a negative remaining instead.
// Consuming zero tokens reads the state.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}
