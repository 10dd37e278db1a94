// Package ratelimiter is a token bucket limiter with two stores and an
// HTTP middleware.
//
// MemoryStore keeps a golang.org/x/time/rate limiter per key and suits a
// single instance. RedisStore runs the bucket as a Lua script so several
// instances share one budget per key.
//
//	bucket, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       60,
//		RefillRate:     1,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimiter.Middleware(bucket, ratelimiter.ByIP))
//
// Rejected requests get the standard error envelope with code
// RATE_LIMIT_EXCEEDED plus X-RateLimit-* and Retry-After headers.
package ratelimiter
