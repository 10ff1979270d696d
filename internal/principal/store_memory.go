package principal

import (
	"context"
	"sync"
	"time"

	"balangay/internal/geo"
	id "balangay/pkg/domain"
	"balangay/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres store's concurrency contract with a
// single mutex: the duplicate-identity check, the admin-slot check, and the
// insert happen under one lock hold.
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.PrincipalID]*Principal
	byExternal map[id.ExternalIdentityID]id.PrincipalID
	adminSlots map[geo.Code]id.PrincipalID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[id.PrincipalID]*Principal),
		byExternal: make(map[id.ExternalIdentityID]id.PrincipalID),
		adminSlots: make(map[geo.Code]id.PrincipalID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byExternal[p.ExternalIdentityID]; exists {
		return sentinel.ErrConflict
	}
	if p.RoleName == RoleBarangayAdmin && p.IsActive {
		if _, taken := s.adminSlots[p.BarangayCode]; taken {
			return sentinel.ErrAdminSlotTaken
		}
		s.adminSlots[p.BarangayCode] = p.ID
	}

	cp := *p
	s.byID[p.ID] = &cp
	s.byExternal[p.ExternalIdentityID] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, pid id.PrincipalID) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[pid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindByExternalIdentity(_ context.Context, ext id.ExternalIdentityID) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pid, ok := s.byExternal[ext]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[pid]
	return &cp, nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, pid id.PrincipalID, now time.Time) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[pid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !p.IsActive {
		return nil, sentinel.ErrInvalidState
	}

	p.ApplyDeactivation(now)
	if p.RoleName == RoleBarangayAdmin && s.adminSlots[p.BarangayCode] == pid {
		delete(s.adminSlots, p.BarangayCode)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) CountActiveAdmins(_ context.Context, barangay geo.Code) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, taken := s.adminSlots[barangay]; taken {
		return 1, nil
	}
	return 0, nil
}

// InMemoryRoleStore serves the static role catalog.
type InMemoryRoleStore struct {
	roles map[RoleName]Role
}

// NewInMemoryRoleStore seeds the default role catalog.
func NewInMemoryRoleStore() *InMemoryRoleStore {
	return &InMemoryRoleStore{roles: map[RoleName]Role{
		RoleSuperAdmin:    {Name: RoleSuperAdmin, Scope: ScopeNational},
		RoleBarangayAdmin: {Name: RoleBarangayAdmin, Scope: ScopeBarangay},
		RoleResident:      {Name: RoleResident, Scope: ScopeBarangay},
	}}
}

// NewEmptyRoleStore returns a catalog with no roles, for configuration-error
// tests.
func NewEmptyRoleStore() *InMemoryRoleStore {
	return &InMemoryRoleStore{roles: map[RoleName]Role{}}
}

func (s *InMemoryRoleStore) FindByName(_ context.Context, name RoleName) (*Role, error) {
	role, ok := s.roles[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &role, nil
}
