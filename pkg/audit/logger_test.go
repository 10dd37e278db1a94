package audit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
	entered chan struct{}
	gate    chan struct{}
	foreign []audit.Entry
	queried audit.Filter
}

func (s *fakeStore) Append(ctx context.Context, e audit.Entry) error {
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeStore) Query(_ context.Context, tenantID string, f audit.Filter) (audit.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queried = f
	var out []audit.Entry
	for _, e := range s.entries {
		if e.TenantID == tenantID && f.Matches(e) {
			out = append(out, e)
		}
	}
	out = append(out, s.foreign...)
	return audit.Page{Entries: out, Total: len(out)}, nil
}

func (s *fakeStore) snapshot() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

type counters struct {
	written, dropped, failed atomic.Int64
}

func (c *counters) AuditWritten() { c.written.Add(1) }
func (c *counters) AuditDropped() { c.dropped.Add(1) }
func (c *counters) AuditFailed()  { c.failed.Add(1) }

func adminContext() *tenant.Context {
	return tenant.NewContext(
		tenant.Tenant{ID: "org_1", Name: "Acme"},
		tenant.Membership{ID: "m_1", TenantID: "org_1", UserID: "user_1", Role: rbac.RoleAdmin, IsActive: true},
		nil,
	)
}

func closeLogger(t *testing.T, l *audit.Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))
}

func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("appends in the background with server metadata", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		rec := &counters{}
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		l := audit.NewLogger(store,
			audit.WithRecorder(rec),
			audit.WithClock(func() time.Time { return fixed }),
			audit.WithIPExtractor(func(context.Context) (string, bool) { return "203.0.113.7", true }),
			audit.WithUserAgentExtractor(func(context.Context) (string, bool) { return "curl/8", true }),
		)

		l.Write(context.Background(), adminContext(), audit.NewEvent("project.created", "project",
			audit.WithResource("p1", "Apollo"),
			audit.WithMetadata("source", "api"),
			audit.WithMetadata(audit.MetaActorRole, "owner"),
		))
		closeLogger(t, l)

		entries := store.snapshot()
		require.Len(t, entries, 1)
		e := entries[0]
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "org_1", e.TenantID)
		assert.Equal(t, "user_1", e.ActorUserID)
		assert.Equal(t, "Apollo", e.ResourceName)
		assert.Equal(t, "203.0.113.7", e.IPAddress)
		assert.Equal(t, "curl/8", e.UserAgent)
		assert.Equal(t, fixed, e.CreatedAt)
		assert.Equal(t, "api", e.Metadata["source"])
		assert.Equal(t, rbac.RoleAdmin, e.Metadata[audit.MetaActorRole])
		assert.Equal(t, "2026-01-02T03:04:05Z", e.Metadata[audit.MetaTimestamp])
		assert.EqualValues(t, 1, rec.written.Load())
	})

	t.Run("drops and counts when the queue is full", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{entered: make(chan struct{}, 1), gate: make(chan struct{})}
		rec := &counters{}
		l := audit.NewLogger(store, audit.WithQueueSize(1), audit.WithRecorder(rec))
		ctx := context.Background()
		ev := audit.NewEvent("project.updated", "project")

		l.Write(ctx, adminContext(), ev)
		<-store.entered // worker holds the first entry

		l.Write(ctx, adminContext(), ev) // fills the queue
		l.Write(ctx, adminContext(), ev) // dropped
		assert.EqualValues(t, 1, rec.dropped.Load())

		close(store.gate)
		closeLogger(t, l)
		assert.Len(t, store.snapshot(), 2)
	})

	t.Run("store failure is swallowed and counted", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{err: errors.New("audit db down")}
		rec := &counters{}
		l := audit.NewLogger(store, audit.WithRecorder(rec))

		assert.NotPanics(t, func() {
			l.Write(context.Background(), adminContext(), audit.NewEvent("project.created", "project"))
		})
		closeLogger(t, l)
		assert.EqualValues(t, 1, rec.failed.Load())
	})

	t.Run("missing tenant context is dropped", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		rec := &counters{}
		l := audit.NewLogger(store, audit.WithRecorder(rec))

		l.Write(context.Background(), nil, audit.NewEvent("project.created", "project"))
		closeLogger(t, l)
		assert.Empty(t, store.snapshot())
		assert.EqualValues(t, 1, rec.dropped.Load())
	})

	t.Run("writes after close are dropped", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		rec := &counters{}
		l := audit.NewLogger(store, audit.WithRecorder(rec))
		closeLogger(t, l)

		l.Write(context.Background(), adminContext(), audit.NewEvent("project.created", "project"))
		assert.EqualValues(t, 1, rec.dropped.Load())
		closeLogger(t, l)
	})
}

func TestWriteSync(t *testing.T) {
	t.Parallel()

	t.Run("reports success", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		l := audit.NewLogger(store)
		defer closeLogger(t, l)

		ok := l.WriteSync(context.Background(), adminContext(), audit.NewEvent("project.deleted", "project",
			audit.WithResource("p1", "Apollo"),
			audit.WithPreviousState(map[string]string{"name": "Apollo"}),
		))
		assert.True(t, ok)
		require.Len(t, store.snapshot(), 1)
		assert.Equal(t, "project.deleted", store.snapshot()[0].Action)
	})

	t.Run("reports failure", func(t *testing.T) {
		t.Parallel()
		l := audit.NewLogger(&fakeStore{err: errors.New("down")})
		defer closeLogger(t, l)

		assert.False(t, l.WriteSync(context.Background(), adminContext(), audit.NewEvent("project.deleted", "project")))
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{gate: make(chan struct{})}
		l := audit.NewLogger(store, audit.WithWriteTimeout(20*time.Millisecond))
		defer func() {
			close(store.gate)
			closeLogger(t, l)
		}()

		assert.False(t, l.WriteSync(context.Background(), adminContext(), audit.NewEvent("project.deleted", "project")))
	})

	t.Run("rejects invalid events", func(t *testing.T) {
		t.Parallel()
		l := audit.NewLogger(&fakeStore{})
		defer closeLogger(t, l)

		assert.False(t, l.WriteSync(context.Background(), adminContext(), audit.Event{}))
	})
}
