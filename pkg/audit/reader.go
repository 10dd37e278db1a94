package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

// Pagination bounds for Reader.Find.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// MaxFilterValueLength bounds the string filters accepted by Reader.Find.
const MaxFilterValueLength = 255

// Reader is the tenant-scoped read path.
type Reader struct {
	store Store
}

func NewReader(store Store) *Reader {
	if store == nil {
		panic("audit: store cannot be nil")
	}
	return &Reader{store: store}
}

// Find returns one page of tenantID's entries, newest first.
func (r *Reader) Find(ctx context.Context, tenantID string, filter Filter) (Page, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return Page{}, ErrTenantRequired
	}

	filter, err := normalize(filter)
	if err != nil {
		return Page{}, err
	}

	page, err := r.store.Query(ctx, tenantID, filter)
	if err != nil {
		return Page{}, fmt.Errorf("audit: query: %w", err)
	}

	scoped := make([]Entry, 0, len(page.Entries))
	for _, e := range page.Entries {
		if e.TenantID == tenantID {
			scoped = append(scoped, e)
		}
	}
	// A store that leaks rows must not inflate the count either.
	page.Total = max(page.Total-(len(page.Entries)-len(scoped)), len(scoped))
	page.Entries = scoped
	page.Limit = filter.Limit
	page.Offset = filter.Offset
	return page, nil
}

// normalize rejects contradictory or negative filters and applies the
// pagination bounds. A zero limit means DefaultLimit.
func normalize(f Filter) (Filter, error) {
	f.ResourceType = strings.TrimSpace(f.ResourceType)
	f.ActorUserID = strings.TrimSpace(f.ActorUserID)
	f.Action = strings.TrimSpace(f.Action)

	if err := validator.Apply(
		validator.MaxLenString("resourceType", f.ResourceType, MaxFilterValueLength),
		validator.MaxLenString("actorUserId", f.ActorUserID, MaxFilterValueLength),
		validator.MaxLenString("action", f.Action, MaxFilterValueLength),
		validator.DateNotAfter("from", f.From, f.To),
		validator.MinNum("limit", f.Limit, 0),
		validator.MinNum("offset", f.Offset, 0),
	); err != nil {
		return f, errors.Join(ErrInvalidFilter, err)
	}

	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	f.Limit = min(f.Limit, MaxLimit)
	return f, nil
}

// Matches reports whether e satisfies f, ignoring pagination. Stores that
// filter in memory use it.
func (f Filter) Matches(e Entry) bool {
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ActorUserID != "" && e.ActorUserID != f.ActorUserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}
