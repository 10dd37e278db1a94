// Package redis connects go-redis clients from REDIS_* configuration and
// exposes a readiness check. The rate limiter's Redis store is the main
// consumer:
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	store := ratelimiter.NewRedisStore(client)
package redis
