package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"provdir/internal/provider/models"
	"provdir/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Millisecond)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newProvider(npi string) *models.Provider {
	p, err := models.NewProvider(uuid.New(), models.NPI(npi), s.now)
	s.Require().NoError(err)
	return p
}

// TestProviderCreationAndLookups verifies batched creates and NPI lookups.
func (s *MemoryStoreSuite) TestProviderCreationAndLookups() {
	s.Run("creates and finds provider by NPI", func() {
		p := s.newProvider("1234567890")
		p.Name = "Dr. Adams"
		s.Require().NoError(s.store.CreateProviders(s.ctx, []*models.Provider{p}))

		found, err := s.store.FindProviderByNPI(s.ctx, "1234567890")
		s.Require().NoError(err)
		s.Equal("Dr. Adams", found.Name)
		s.Equal(p.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown NPI", func() {
		_, err := s.store.FindProviderByNPI(s.ctx, "0000000000")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate NPI without partial insert", func() {
		a := s.newProvider("1111111111")
		s.Require().NoError(s.store.CreateProviders(s.ctx, []*models.Provider{a}))

		dup := s.newProvider("1111111111")
		fresh := s.newProvider("2222222222")
		err := s.store.CreateProviders(s.ctx, []*models.Provider{fresh, dup})
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		_, err = s.store.FindProviderByNPI(s.ctx, "2222222222")
		s.ErrorIs(err, sentinel.ErrNotFound, "batch with a conflict must insert nothing")
	})

	s.Run("reports existing NPIs for a mixed batch", func() {
		p := s.newProvider("3333333333")
		s.Require().NoError(s.store.CreateProviders(s.ctx, []*models.Provider{p}))

		existing, err := s.store.ExistingNPIs(s.ctx, []models.NPI{"3333333333", "4444444444"})
		s.Require().NoError(err)
		s.Len(existing, 1)
		s.Equal(p.ID, existing["3333333333"])
	})
}

// TestPatchProvider verifies the sparse-update semantics.
func (s *MemoryStoreSuite) TestPatchProvider() {
	s.Run("applies only non-nil fields", func() {
		p := s.newProvider("5555555555")
		p.Name = "Original"
		p.City = "Boston"
		s.Require().NoError(s.store.CreateProviders(s.ctx, []*models.Provider{p}))

		name := "Renamed"
		remoteID := "remote-42"
		err := s.store.PatchProvider(s.ctx, p.ID, models.ProviderPatch{
			Name:             &name,
			RemoteProviderID: &remoteID,
		}, s.now.Add(time.Minute))
		s.Require().NoError(err)

		found, err := s.store.FindProviderByNPI(s.ctx, "5555555555")
		s.Require().NoError(err)
		s.Equal("Renamed", found.Name)
		s.Equal("remote-42", found.RemoteProviderID)
		s.Equal("Boston", found.City, "unset patch fields must not clear data")
		s.Equal(s.now.Add(time.Minute), found.UpdatedAt)
	})

	s.Run("returns ErrNotFound for unknown provider", func() {
		name := "ghost"
		err := s.store.PatchProvider(s.ctx, uuid.New(), models.ProviderPatch{Name: &name}, s.now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestRegistrationStatuses verifies the full-replacement upsert.
func (s *MemoryStoreSuite) TestRegistrationStatuses() {
	s.Run("upsert replaces the whole row", func() {
		p := s.newProvider("6666666666")
		s.Require().NoError(s.store.CreateProviders(s.ctx, []*models.Provider{p}))

		first := models.RegistrationStatus{
			ProviderID:        p.ID,
			RemoteProviderID:  "remote-1",
			RegisteredForEmdr: true,
			Stage:             "ACTIVE",
			Errors:            []string{"stale error"},
			FetchedAt:         s.now,
		}
		s.Require().NoError(s.store.UpsertRegistrationStatus(s.ctx, first))

		second := models.RegistrationStatus{
			ProviderID:       p.ID,
			RemoteProviderID: "remote-1",
			FetchedAt:        s.now.Add(time.Hour),
		}
		s.Require().NoError(s.store.UpsertRegistrationStatus(s.ctx, second))

		statuses, err := s.store.ListRegistrationStatuses(s.ctx)
		s.Require().NoError(err)
		got := statuses[p.ID]
		s.False(got.RegisteredForEmdr, "replacement must not merge old flags")
		s.Empty(got.Stage)
		s.Empty(got.Errors)
		s.Equal(s.now.Add(time.Hour), got.FetchedAt)
	})

	s.Run("rejects status for unknown provider", func() {
		err := s.store.UpsertRegistrationStatus(s.ctx, models.RegistrationStatus{
			ProviderID: uuid.New(),
			FetchedAt:  s.now,
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestSystemCustomer verifies the sentinel customer lifecycle.
func (s *MemoryStoreSuite) TestSystemCustomer() {
	s.Run("ensure is idempotent", func() {
		first, err := s.store.EnsureSystemCustomer(s.ctx, s.now)
		s.Require().NoError(err)
		second, err := s.store.EnsureSystemCustomer(s.ctx, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("rename refuses the sentinel customer", func() {
		id, err := s.store.EnsureSystemCustomer(s.ctx, s.now)
		s.Require().NoError(err)

		err = s.store.RenameCustomer(s.ctx, id, "Acme Health", s.now)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		names, err := s.store.CustomerNames(s.ctx, []uuid.UUID{id})
		s.Require().NoError(err)
		s.Equal(models.SystemCustomerName, names[id])
	})

	s.Run("rename works for ordinary customers", func() {
		c := &models.Customer{ID: uuid.New(), Name: "Clinic A", CreatedAt: s.now, UpdatedAt: s.now}
		s.Require().NoError(s.store.CreateCustomer(s.ctx, c))

		s.Require().NoError(s.store.RenameCustomer(s.ctx, c.ID, "Clinic B", s.now))
		names, err := s.store.CustomerNames(s.ctx, []uuid.UUID{c.ID})
		s.Require().NoError(err)
		s.Equal("Clinic B", names[c.ID])
	})

	s.Run("rejects creating a customer named like the sentinel", func() {
		_, err := s.store.EnsureSystemCustomer(s.ctx, s.now)
		s.Require().NoError(err)

		err = s.store.CreateCustomer(s.ctx, &models.Customer{
			ID: uuid.New(), Name: "system", CreatedAt: s.now, UpdatedAt: s.now,
		})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rename to an existing name conflicts case-insensitively", func() {
		a := &models.Customer{ID: uuid.New(), Name: "Alpha", CreatedAt: s.now, UpdatedAt: s.now}
		b := &models.Customer{ID: uuid.New(), Name: "Beta", CreatedAt: s.now, UpdatedAt: s.now}
		s.Require().NoError(s.store.CreateCustomer(s.ctx, a))
		s.Require().NoError(s.store.CreateCustomer(s.ctx, b))

		err := s.store.RenameCustomer(s.ctx, b.ID, "ALPHA", s.now)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

// TestListOrdering verifies the deterministic listing order rows are
// composed in.
func (s *MemoryStoreSuite) TestListOrdering() {
	customerID, err := s.store.EnsureSystemCustomer(s.ctx, s.now)
	s.Require().NoError(err)

	unassigned := s.newProvider("9999999999")
	assignedLow := s.newProvider("1000000001")
	assignedHigh := s.newProvider("1000000002")
	assignedLow.CustomerID = &customerID
	assignedHigh.CustomerID = &customerID

	s.Require().NoError(s.store.CreateProviders(s.ctx, []*models.Provider{assignedHigh, unassigned, assignedLow}))

	listed, err := s.store.ListProviders(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	s.Equal(models.NPI("9999999999"), listed[0].NPI, "unassigned providers sort first")
	s.Equal(models.NPI("1000000001"), listed[1].NPI)
	s.Equal(models.NPI("1000000002"), listed[2].NPI)
}
