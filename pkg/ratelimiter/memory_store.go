package ratelimiter

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const staleAfter = time.Hour

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryStore keeps one rate.Limiter per key. Refill is continuous rather
// than stepped per interval.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	closeOnce       sync.Once
}

type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle keys are evicted. Zero disables
// the cleanup goroutine.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		entries:         make(map[string]*entry),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}
	return ms
}

func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	limit := rate.Limit(float64(config.RefillRate) / config.RefillInterval.Seconds())
	e, ok := ms.entries[key]
	if !ok || e.limiter.Burst() != config.Capacity || e.limiter.Limit() != limit {
		e = &entry{limiter: rate.NewLimiter(limit, config.Capacity)}
		ms.entries[key] = e
	}
	e.lastAccess = now

	if tokens > 0 && !e.limiter.AllowN(now, tokens) {
		available := e.limiter.TokensAt(now)
		wait := time.Duration((float64(tokens) - available) / float64(limit) * float64(time.Second))
		return int(math.Floor(available)) - tokens, now.Add(wait), nil
	}

	available := e.limiter.TokensAt(now)
	return int(math.Floor(available)), now.Add(nextToken(available, limit)), nil
}

// nextToken is the wait until the fractional part of available reaches the
// next whole token.
func nextToken(available float64, limit rate.Limit) time.Duration {
	frac := 1 - (available - math.Floor(available))
	return time.Duration(frac / float64(limit) * float64(time.Second))
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.entries, key)
	return nil
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	now := ms.now()
	for key, e := range ms.entries {
		if now.Sub(e.lastAccess) > staleAfter {
			delete(ms.entries, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stop) })
}
