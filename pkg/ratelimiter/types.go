package ratelimiter

import "time"

// Result is the outcome of one limiter call.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // negative when the call was denied
	ResetAt   time.Time // when the next token becomes available
}

func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is zero for allowed calls.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(time.Until(r.ResetAt), 0)
}

// Config is a token bucket: Capacity is the burst, RefillRate tokens are
// added every RefillInterval.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"60"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}
