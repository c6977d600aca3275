package rbac

import (
	"context"
	"sort"
	"sync"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

type memoryRole struct {
	tenant int64
	role   Role
}

type memoryStore struct {
	mu          sync.Mutex
	permissions map[string]Permission
	roles       map[int64]*memoryRole
	grants      map[int64]map[string]struct{}
	assignments map[[3]int64]struct{}
	nextID      int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		permissions: make(map[string]Permission),
		roles:       make(map[int64]*memoryRole),
		grants:      make(map[int64]map[string]struct{}),
		assignments: make(map[[3]int64]struct{}),
	}
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return fn(ctx, s)
}

func (s *memoryStore) EnsurePermission(ctx context.Context, p Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.permissions[p.Name]
	if !ok {
		s.nextID++
		existing = Permission{ID: s.nextID, Name: p.Name}
	}
	existing.Description = p.Description
	s.permissions[p.Name] = existing
	return nil
}

func (s *memoryStore) UpsertRole(ctx context.Context, tenant shared.Tenant, name, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.roles {
		if r.tenant == tenant.ID() && r.role.Name == name {
			r.role.Description = description
			return id, nil
		}
	}
	s.nextID++
	s.roles[s.nextID] = &memoryRole{tenant: tenant.ID(), role: Role{ID: s.nextID, Name: name, Description: description}}
	return s.nextID, nil
}

func (s *memoryStore) SetRolePermissions(ctx context.Context, tenant shared.Tenant, roleID int64, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := s.permissions[n]; ok {
			set[n] = struct{}{}
		}
	}
	s.grants[roleID] = set
	return nil
}

func (s *memoryStore) AssignRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID]
	if !ok || r.tenant != tenant.ID() {
		return ErrNotFound
	}
	s.assignments[[3]int64{tenant.ID(), userID, roleID}] = struct{}{}
	return nil
}

func (s *memoryStore) RemoveRole(ctx context.Context, tenant shared.Tenant, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, [3]int64{tenant.ID(), userID, roleID})
	return nil
}

func (s *memoryStore) ListRoles(ctx context.Context, tenant shared.Tenant) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Role
	for id, r := range s.roles {
		if r.tenant != tenant.ID() {
			continue
		}
		role := r.role
		role.Permissions = sortedKeys(s.grants[id])
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStore) EffectivePermissions(ctx context.Context, tenant shared.Tenant, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{})
	for key := range s.assignments {
		if key[0] != tenant.ID() || key[1] != userID {
			continue
		}
		for p := range s.grants[key[2]] {
			set[p] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
