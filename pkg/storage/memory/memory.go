// Package memory implements every store interface in process memory. It
// backs tests and the STORAGE_DRIVER=memory demo mode.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/project"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Store is safe for concurrent use. Values are copied in and out.
type Store struct {
	mu          sync.RWMutex
	users       map[string]authn.User
	tenants     map[string]tenant.Tenant
	memberships []tenant.Membership
	projects    map[string]project.Project
	entries     []audit.Entry
}

func New() *Store {
	return &Store{
		users:    make(map[string]authn.User),
		tenants:  make(map[string]tenant.Tenant),
		projects: make(map[string]project.Project),
	}
}

// AddUser registers u under its auth subject id.
func (s *Store) AddUser(u authn.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.AuthSubjectID] = u
}

func (s *Store) AddTenant(t tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *Store) AddMembership(m tenant.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, m)
}

func (s *Store) FindActiveUserBySubject(_ context.Context, subject string) (*authn.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[subject]
	if !ok || u.DeletedAt != nil {
		return nil, authn.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) ListActiveMembershipsWithTenant(_ context.Context, userID string) ([]tenant.MembershipWithTenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []tenant.MembershipWithTenant
	for _, m := range s.memberships {
		if m.UserID != userID || !m.IsActive {
			continue
		}
		t, ok := s.tenants[m.TenantID]
		if !ok {
			continue
		}
		out = append(out, tenant.MembershipWithTenant{Membership: m, Tenant: t})
	}
	slices.SortFunc(out, func(a, b tenant.MembershipWithTenant) int {
		return cmp.Or(a.Membership.JoinedAt.Compare(b.Membership.JoinedAt), cmp.Compare(a.Tenant.ID, b.Tenant.ID))
	})
	return out, nil
}

func (s *Store) CreateProject(_ context.Context, p project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return fmt.Errorf("memory: project %s already exists", p.ID)
	}
	s.projects[p.ID] = p
	return nil
}

func (s *Store) GetProject(_ context.Context, tenantID, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok || p.TenantID != tenantID {
		return nil, project.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProject(_ context.Context, p project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[p.ID]
	if !ok || cur.TenantID != p.TenantID {
		return project.ErrNotFound
	}
	s.projects[p.ID] = p
	return nil
}

func (s *Store) DeleteProject(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.TenantID != tenantID {
		return project.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) ListProjects(_ context.Context, tenantID string) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []project.Project
	for _, p := range s.projects {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b project.Project) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) Append(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// Query returns tenantID's matching entries, newest first.
func (s *Store) Query(_ context.Context, tenantID string, f audit.Filter) (audit.Page, error) {
	s.mu.RLock()
	var matched []audit.Entry
	for _, e := range s.entries {
		if e.TenantID == tenantID && f.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b audit.Entry) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})

	page := audit.Page{Total: len(matched), Limit: f.Limit, Offset: f.Offset, Entries: []audit.Entry{}}
	if f.Offset >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if f.Limit > 0 {
		end = min(end, f.Offset+f.Limit)
	}
	page.Entries = matched[f.Offset:end]
	return page, nil
}
