//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"provdir/internal/provider/models"
	"provdir/internal/provider/store"
	"provdir/pkg/platform/sentinel"
	"provdir/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "registration_statuses", "providers", "provider_groups", "customers")
	s.Require().NoError(err)
}

func newTestProvider(npi string) *models.Provider {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Provider{
		ID:        uuid.New(),
		NPI:       models.NPI(npi),
		Name:      "Provider " + npi,
		Street:    "1 Main St",
		City:      "Springfield",
		State:     "MA",
		Zip:       "01101",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestProviderRoundTrip verifies create, lookup and snapshot persistence.
func (s *PostgresStoreSuite) TestProviderRoundTrip() {
	ctx := context.Background()
	fetchedAt := time.Now().UTC().Truncate(time.Millisecond)

	p := newTestProvider("1234567890")
	p.LastListSnapshot = models.NewListSnapshot(models.ListDetail{
		RemoteProviderID:  "remote-1",
		Name:              p.Name,
		RegisteredForEmdr: true,
		TransactionIDs:    "tx-1,tx-2",
	}, fetchedAt)
	p.LastListAt = &fetchedAt

	s.Require().NoError(s.store.CreateProviders(ctx, []*models.Provider{p}))

	found, err := s.store.FindProviderByNPI(ctx, "1234567890")
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)
	s.Equal(p.Name, found.Name)
	s.Require().NotNil(found.LastListSnapshot)
	s.Equal("remote-1", found.LastListSnapshot.Detail.RemoteProviderID)
	s.True(found.LastListSnapshot.Detail.RegisteredForEmdr)
	s.Equal("tx-1,tx-2", found.LastListSnapshot.Detail.TransactionIDs)
	s.Require().NotNil(found.LastListAt)
	s.True(found.LastListAt.Equal(fetchedAt))
}

// TestDuplicateNPI verifies the unique constraint maps to ErrConflict.
func (s *PostgresStoreSuite) TestDuplicateNPI() {
	ctx := context.Background()

	first := newTestProvider("1111111111")
	s.Require().NoError(s.store.CreateProviders(ctx, []*models.Provider{first}))

	dup := newTestProvider("1111111111")
	err := s.store.CreateProviders(ctx, []*models.Provider{dup})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

// TestExistingNPIs verifies the batched existence lookup.
func (s *PostgresStoreSuite) TestExistingNPIs() {
	ctx := context.Background()

	a := newTestProvider("2222222222")
	b := newTestProvider("3333333333")
	s.Require().NoError(s.store.CreateProviders(ctx, []*models.Provider{a, b}))

	existing, err := s.store.ExistingNPIs(ctx, []models.NPI{"2222222222", "3333333333", "4444444444"})
	s.Require().NoError(err)
	s.Len(existing, 2)
	s.Equal(a.ID, existing["2222222222"])
	s.Equal(b.ID, existing["3333333333"])
}

// TestPatchProvider verifies the dynamic sparse update.
func (s *PostgresStoreSuite) TestPatchProvider() {
	ctx := context.Background()

	p := newTestProvider("5555555555")
	s.Require().NoError(s.store.CreateProviders(ctx, []*models.Provider{p}))

	name := "Renamed Provider"
	remoteID := "remote-55"
	now := time.Now().UTC().Truncate(time.Millisecond)
	snap := &models.UpdateSnapshot{
		Version:          1,
		Operation:        "update",
		RemoteProviderID: remoteID,
		Status:           "OK",
		ReceivedAt:       now,
	}
	err := s.store.PatchProvider(ctx, p.ID, models.ProviderPatch{
		Name:             &name,
		RemoteProviderID: &remoteID,
		LastUpdateSnap:   snap,
		LastUpdateAt:     &now,
	}, now)
	s.Require().NoError(err)

	found, err := s.store.FindProviderByNPI(ctx, "5555555555")
	s.Require().NoError(err)
	s.Equal(name, found.Name)
	s.Equal(remoteID, found.RemoteProviderID)
	s.Equal("1 Main St", found.Street, "unset patch fields must survive")
	s.Require().NotNil(found.LastUpdateSnap)
	s.Equal("update", found.LastUpdateSnap.Operation)

	s.Run("unknown provider returns ErrNotFound", func() {
		err := s.store.PatchProvider(ctx, uuid.New(), models.ProviderPatch{Name: &name}, now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestRegistrationStatusUpsert verifies the full-replacement upsert and jsonb
// round-trip of nested fields.
func (s *PostgresStoreSuite) TestRegistrationStatusUpsert() {
	ctx := context.Background()
	fetchedAt := time.Now().UTC().Truncate(time.Millisecond)

	p := newTestProvider("6666666666")
	s.Require().NoError(s.store.CreateProviders(ctx, []*models.Provider{p}))

	first := models.RegistrationStatus{
		ProviderID:        p.ID,
		RemoteProviderID:  "remote-6",
		RegisteredForEmdr: true,
		Stage:             "ACTIVE",
		TransactionIDs:    "tx-9",
		StatusChanges: []models.StatusChange{
			{Title: "Registered", Status: "DONE", TransactionID: "tx-9", ChangedAt: fetchedAt},
		},
		Errors:    []string{"first error"},
		FetchedAt: fetchedAt,
	}
	s.Require().NoError(s.store.UpsertRegistrationStatus(ctx, first))

	statuses, err := s.store.ListRegistrationStatuses(ctx)
	s.Require().NoError(err)
	got := statuses[p.ID]
	s.Require().Len(got.StatusChanges, 1)
	s.Equal("Registered", got.StatusChanges[0].Title)
	s.Equal([]string{"first error"}, got.Errors)

	second := models.RegistrationStatus{
		ProviderID:       p.ID,
		RemoteProviderID: "remote-6",
		FetchedAt:        fetchedAt.Add(time.Hour),
	}
	s.Require().NoError(s.store.UpsertRegistrationStatus(ctx, second))

	statuses, err = s.store.ListRegistrationStatuses(ctx)
	s.Require().NoError(err)
	got = statuses[p.ID]
	s.False(got.RegisteredForEmdr, "upsert must fully replace")
	s.Empty(got.Stage)
	s.Empty(got.StatusChanges)
	s.Empty(got.Errors)
	s.True(got.FetchedAt.Equal(fetchedAt.Add(time.Hour)))
}

// TestConcurrentEnsureSystemCustomer verifies exactly one sentinel customer
// exists no matter how many ensures race.
func (s *PostgresStoreSuite) TestConcurrentEnsureSystemCustomer() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var failures atomic.Int32
	ids := make([]uuid.UUID, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			id, err := s.store.EnsureSystemCustomer(ctx, time.Now())
			if err != nil {
				failures.Add(1)
				return
			}
			ids[idx] = id
		}(i)
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "every ensure should succeed")
	for i := 1; i < goroutines; i++ {
		s.Equal(ids[0], ids[i], "all ensures must resolve the same customer")
	}
}

// TestRenameCustomer verifies sentinel protection and conflict mapping.
func (s *PostgresStoreSuite) TestRenameCustomer() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	systemID, err := s.store.EnsureSystemCustomer(ctx, now)
	s.Require().NoError(err)

	s.Run("refuses the sentinel customer", func() {
		err := s.store.RenameCustomer(ctx, systemID, "Acme", now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown customer returns ErrNotFound", func() {
		err := s.store.RenameCustomer(ctx, uuid.New(), "Ghost", now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("renames an ordinary customer", func() {
		c := &models.Customer{ID: uuid.New(), Name: "Clinic A " + uuid.NewString(), CreatedAt: now, UpdatedAt: now}
		s.Require().NoError(s.store.CreateCustomer(ctx, c))
		s.Require().NoError(s.store.RenameCustomer(ctx, c.ID, "Clinic B "+uuid.NewString(), now))
	})

	s.Run("duplicate name maps to ErrAlreadyUsed", func() {
		c := &models.Customer{ID: uuid.New(), Name: "Clinic C " + uuid.NewString(), CreatedAt: now, UpdatedAt: now}
		s.Require().NoError(s.store.CreateCustomer(ctx, c))
		err := s.store.RenameCustomer(ctx, c.ID, models.SystemCustomerName, now)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

// TestTransactionalChunk verifies a chunked write rolls back as a unit.
func (s *PostgresStoreSuite) TestTransactionalChunk() {
	ctx := context.Background()

	existing := newTestProvider("7777777777")
	s.Require().NoError(s.store.CreateProviders(ctx, []*models.Provider{existing}))

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txStore := store.NewPostgresTx(tx)

	fresh := newTestProvider("8888888888")
	dup := newTestProvider("7777777777")

	s.Require().NoError(txStore.CreateProviders(ctx, []*models.Provider{fresh}))
	err = txStore.CreateProviders(ctx, []*models.Provider{dup})
	s.Require().True(errors.Is(err, sentinel.ErrConflict))
	s.Require().NoError(tx.Rollback())

	_, err = s.store.FindProviderByNPI(ctx, "8888888888")
	s.ErrorIs(err, sentinel.ErrNotFound, "rolled-back chunk must leave no rows")
}
