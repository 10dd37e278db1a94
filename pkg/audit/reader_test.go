package audit_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

func TestReaderFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	t.Run("requires a tenant", func(t *testing.T) {
		t.Parallel()
		_, err := audit.NewReader(&fakeStore{}).Find(ctx, " ", audit.Filter{})
		assert.ErrorIs(t, err, audit.ErrTenantRequired)
	})

	t.Run("never returns other tenants' entries", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{
			entries: []audit.Entry{
				{ID: "1", TenantID: "org_1", ResourceType: "project"},
				{ID: "2", TenantID: "org_2", ResourceType: "project"},
			},
			foreign: []audit.Entry{{ID: "3", TenantID: "org_2", ResourceType: "project"}},
		}
		filters := []audit.Filter{
			{},
			{ResourceType: "project"},
			{ActorUserID: "user_1"},
			{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
		}
		for _, f := range filters {
			page, err := audit.NewReader(store).Find(ctx, "org_1", f)
			require.NoError(t, err)
			for _, e := range page.Entries {
				assert.Equal(t, "org_1", e.TenantID)
			}
			assert.Equal(t, len(page.Entries), page.Total)
		}
	})

	t.Run("applies pagination bounds", func(t *testing.T) {
		t.Parallel()
		store := &fakeStore{}
		r := audit.NewReader(store)

		page, err := r.Find(ctx, "org_1", audit.Filter{})
		require.NoError(t, err)
		assert.Equal(t, audit.DefaultLimit, page.Limit)

		page, err = r.Find(ctx, "org_1", audit.Filter{Limit: 10_000, Offset: 5})
		require.NoError(t, err)
		assert.Equal(t, audit.MaxLimit, page.Limit)
		assert.Equal(t, 5, page.Offset)
		assert.Equal(t, audit.MaxLimit, store.queried.Limit)
	})

	t.Run("rejects invalid filters field by field", func(t *testing.T) {
		t.Parallel()
		cases := map[string]audit.Filter{
			"from":         {From: now, To: now.Add(-time.Minute)},
			"limit":        {Limit: -1},
			"offset":       {Offset: -5},
			"resourceType": {ResourceType: strings.Repeat("r", audit.MaxFilterValueLength+1)},
		}
		for field, f := range cases {
			_, err := audit.NewReader(&fakeStore{}).Find(ctx, "org_1", f)
			require.ErrorIs(t, err, audit.ErrInvalidFilter, field)
			assert.Equal(t, []string{field}, validator.ExtractValidationErrors(err).Fields())
		}
	})
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := audit.Entry{ResourceType: "project", ActorUserID: "user_1", Action: "project.created", CreatedAt: at}

	assert.True(t, audit.Filter{}.Matches(e))
	assert.True(t, audit.Filter{ResourceType: "project", ActorUserID: "user_1"}.Matches(e))
	assert.False(t, audit.Filter{ResourceType: "user"}.Matches(e))
	assert.False(t, audit.Filter{Action: "project.deleted"}.Matches(e))
	assert.False(t, audit.Filter{From: at.Add(time.Second)}.Matches(e))
	assert.False(t, audit.Filter{To: at.Add(-time.Second)}.Matches(e))
}
