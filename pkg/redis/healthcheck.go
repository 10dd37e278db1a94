package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
)

// Healthcheck returns a readiness check that pings client.
func Healthcheck(client redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			if IsConnectionError(err) {
				return errors.Join(ErrHealthcheckFailed, apierror.ErrUnavailable, err)
			}
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
