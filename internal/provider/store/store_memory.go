package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"provdir/internal/provider/models"
	"provdir/pkg/platform/sentinel"
)

// InMemoryStore is the test and development twin of the postgres store.
type InMemoryStore struct {
	mu        sync.RWMutex
	providers map[uuid.UUID]*models.Provider
	byNPI     map[models.NPI]uuid.UUID
	statuses  map[uuid.UUID]models.RegistrationStatus
	customers map[uuid.UUID]*models.Customer
	groups    map[uuid.UUID]*models.ProviderGroup
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		providers: make(map[uuid.UUID]*models.Provider),
		byNPI:     make(map[models.NPI]uuid.UUID),
		statuses:  make(map[uuid.UUID]models.RegistrationStatus),
		customers: make(map[uuid.UUID]*models.Customer),
		groups:    make(map[uuid.UUID]*models.ProviderGroup),
	}
}

func (s *InMemoryStore) ListProviders(_ context.Context) ([]models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := customerKey(out[i].CustomerID), customerKey(out[j].CustomerID)
		if ci != cj {
			return ci < cj
		}
		return out[i].NPI < out[j].NPI
	})
	return out, nil
}

func (s *InMemoryStore) FindProviderByNPI(_ context.Context, npi models.NPI) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNPI[npi]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.providers[id]
	return &cp, nil
}

func (s *InMemoryStore) ExistingNPIs(_ context.Context, npis []models.NPI) (map[models.NPI]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.NPI]uuid.UUID, len(npis))
	for _, npi := range npis {
		if id, ok := s.byNPI[npi]; ok {
			out[npi] = id
		}
	}
	return out, nil
}

func (s *InMemoryStore) CreateProviders(_ context.Context, providers []*models.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range providers {
		if _, exists := s.byNPI[p.NPI]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, p := range providers {
		cp := *p
		s.providers[cp.ID] = &cp
		s.byNPI[cp.NPI] = cp.ID
	}
	return nil
}

func (s *InMemoryStore) PatchProvider(_ context.Context, providerID uuid.UUID, patch models.ProviderPatch, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[providerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	patch.Apply(p, now)
	return nil
}

func (s *InMemoryStore) UpsertRegistrationStatus(_ context.Context, status models.RegistrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[status.ProviderID]; !ok {
		return sentinel.ErrNotFound
	}
	// Full replacement, never a merge.
	s.statuses[status.ProviderID] = status
	return nil
}

func (s *InMemoryStore) ListRegistrationStatuses(_ context.Context) (map[uuid.UUID]models.RegistrationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]models.RegistrationStatus, len(s.statuses))
	for id, st := range s.statuses {
		out[id] = st
	}
	return out, nil
}

func (s *InMemoryStore) EnsureSystemCustomer(_ context.Context, now time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.customers {
		if c.IsSystem() {
			return id, nil
		}
	}
	c := &models.Customer{
		ID:        uuid.New(),
		Name:      models.SystemCustomerName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.customers[c.ID] = c
	return c.ID, nil
}

func (s *InMemoryStore) CreateCustomer(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if strings.EqualFold(existing.Name, c.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *c
	s.customers[cp.ID] = &cp
	return nil
}

func (s *InMemoryStore) RenameCustomer(_ context.Context, customerID uuid.UUID, name string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.IsSystem() {
		return sentinel.ErrInvalidState
	}
	for id, existing := range s.customers {
		if id != customerID && strings.EqualFold(existing.Name, name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	c.Name = name
	c.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) CustomerNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if c, ok := s.customers[id]; ok {
			out[id] = c.Name
		}
	}
	return out, nil
}

func (s *InMemoryStore) GroupNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if g, ok := s.groups[id]; ok {
			out[id] = g.Name
		}
	}
	return out, nil
}

// CreateGroup seeds a provider group; groups are read-only for the engines
// but tests and dev fixtures need a way in.
func (s *InMemoryStore) CreateGroup(_ context.Context, g *models.ProviderGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *g
	s.groups[cp.ID] = &cp
	return nil
}

func customerKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
