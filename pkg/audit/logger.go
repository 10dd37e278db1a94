package audit

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Defaults for NewLogger.
const (
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 5 * time.Second
)

// Server-owned metadata keys. They override caller metadata.
const (
	MetaActorRole = "actorRole"
	MetaTimestamp = "timestamp"
	MetaRequestID = "requestId"
)

// Recorder counts audit outcomes. Implementations must not block.
type Recorder interface {
	AuditWritten()
	AuditDropped()
	AuditFailed()
}

type nopRecorder struct{}

func (nopRecorder) AuditWritten() {}
func (nopRecorder) AuditDropped() {}
func (nopRecorder) AuditFailed()  {}

// ContextExtractor reads a request-scoped string from ctx.
type ContextExtractor func(context.Context) (string, bool)

// Logger writes audit entries. Safe for concurrent use.
type Logger struct {
	store        Store
	queue        chan Entry
	writeTimeout time.Duration
	logger       *slog.Logger
	recorder     Recorder
	now          func() time.Time

	requestIDExtractor ContextExtractor
	ipExtractor        ContextExtractor
	userAgentExtractor ContextExtractor

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

type loggerConfig struct {
	queueSize int
	l         *Logger
}

// Option configures a Logger.
type Option func(*loggerConfig)

// WithQueueSize bounds the number of pending fire-and-forget entries.
func WithQueueSize(n int) Option {
	return func(c *loggerConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithWriteTimeout bounds each store append.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *loggerConfig) {
		if d > 0 {
			c.l.writeTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *loggerConfig) {
		if l != nil {
			c.l.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *loggerConfig) {
		if r != nil {
			c.l.recorder = r
		}
	}
}

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *loggerConfig) {
		if now != nil {
			c.l.now = now
		}
	}
}

func WithRequestIDExtractor(fn ContextExtractor) Option {
	return func(c *loggerConfig) { c.l.requestIDExtractor = fn }
}

func WithIPExtractor(fn ContextExtractor) Option {
	return func(c *loggerConfig) { c.l.ipExtractor = fn }
}

func WithUserAgentExtractor(fn ContextExtractor) Option {
	return func(c *loggerConfig) { c.l.userAgentExtractor = fn }
}

// NewLogger starts the background worker. Call Close to drain it.
func NewLogger(store Store, opts ...Option) *Logger {
	if store == nil {
		panic("audit: store cannot be nil")
	}

	l := &Logger{
		store:        store,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger.Discard(),
		recorder:     nopRecorder{},
		now:          time.Now,
		done:         make(chan struct{}),
	}
	cfg := &loggerConfig{queueSize: DefaultQueueSize, l: l}
	for _, opt := range opts {
		opt(cfg)
	}
	l.queue = make(chan Entry, cfg.queueSize)

	go l.worker()
	return l
}

// Write enqueues an entry for tc and returns immediately. Failures are
// logged and counted, never returned.
func (l *Logger) Write(ctx context.Context, tc *tenant.Context, ev Event) {
	entry, err := l.build(ctx, tc, ev)
	if err != nil {
		l.recorder.AuditDropped()
		l.logger.ErrorContext(ctx, "audit entry rejected",
			logger.Component("audit"),
			logger.Event(ev.Action),
			logger.Error(err),
		)
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop(ctx, entry, "logger closed")
		return
	}
	select {
	case l.queue <- entry:
	default:
		l.drop(ctx, entry, "queue full")
	}
}

// WriteSync appends an entry for tc before returning and reports whether
// the store accepted it.
func (l *Logger) WriteSync(ctx context.Context, tc *tenant.Context, ev Event) bool {
	entry, err := l.build(ctx, tc, ev)
	if err != nil {
		l.recorder.AuditFailed()
		l.logger.ErrorContext(ctx, "audit entry rejected",
			logger.Component("audit"),
			logger.Event(ev.Action),
			logger.Error(err),
		)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, l.writeTimeout)
	defer cancel()
	return l.append(ctx, entry)
}

// Close stops accepting entries and waits for the queue to drain or ctx to
// expire. Entries still queued when ctx expires are lost.
func (l *Logger) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
	})

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) worker() {
	defer close(l.done)
	for entry := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
		l.append(ctx, entry)
		cancel()
	}
}

func (l *Logger) append(ctx context.Context, entry Entry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			l.recorder.AuditFailed()
			l.logger.ErrorContext(ctx, "audit store panicked",
				logger.Component("audit"),
				logger.TenantID(entry.TenantID),
				slog.String("audit_id", entry.ID),
				slog.Any("panic", r),
			)
		}
	}()

	if err := l.store.Append(ctx, entry); err != nil {
		l.recorder.AuditFailed()
		l.logger.ErrorContext(ctx, "audit write failed",
			logger.Component("audit"),
			logger.TenantID(entry.TenantID),
			logger.UserID(entry.ActorUserID),
			logger.Event(entry.Action),
			slog.String("audit_id", entry.ID),
			logger.Error(err),
		)
		return false
	}
	l.recorder.AuditWritten()
	return true
}

func (l *Logger) drop(ctx context.Context, entry Entry, reason string) {
	l.recorder.AuditDropped()
	l.logger.WarnContext(ctx, "audit entry dropped",
		logger.Component("audit"),
		logger.TenantID(entry.TenantID),
		logger.Event(entry.Action),
		slog.String("audit_id", entry.ID),
		slog.String("reason", reason),
	)
}

func (l *Logger) build(ctx context.Context, tc *tenant.Context, ev Event) (Entry, error) {
	if tc == nil {
		return Entry{}, ErrNoTenantContext
	}
	if err := ev.Validate(); err != nil {
		return Entry{}, err
	}

	now := l.now().UTC()
	entry := Entry{
		ID:            newID(now),
		TenantID:      tc.TenantID,
		ActorUserID:   tc.Membership.UserID,
		Action:        ev.Action,
		ResourceType:  ev.ResourceType,
		ResourceID:    ev.ResourceID,
		ResourceName:  ev.ResourceName,
		PreviousState: ev.PreviousState,
		NewState:      ev.NewState,
		CreatedAt:     now,
	}

	entry.Metadata = make(map[string]any, len(ev.Metadata)+3)
	maps.Copy(entry.Metadata, ev.Metadata)
	entry.Metadata[MetaActorRole] = tc.Role
	entry.Metadata[MetaTimestamp] = now.Format(time.RFC3339Nano)

	if fn := l.requestIDExtractor; fn != nil {
		if v, ok := fn(ctx); ok {
			entry.Metadata[MetaRequestID] = v
		}
	}
	if fn := l.ipExtractor; fn != nil {
		if v, ok := fn(ctx); ok {
			entry.IPAddress = v
		}
	}
	if fn := l.userAgentExtractor; fn != nil {
		if v, ok := fn(ctx); ok {
			entry.UserAgent = v
		}
	}

	if entry.TenantID == "" {
		return Entry{}, fmt.Errorf("%w: empty tenant id", ErrNoTenantContext)
	}
	return entry, nil
}
