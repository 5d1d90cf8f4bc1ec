package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provdir/internal/provider/models"
	"provdir/internal/registry"
)

func ptr[T any](v T) *T {
	return &v
}

func TestListItemToDetail(t *testing.T) {
	t.Run("maps present fields and canonicalizes transaction ids", func(t *testing.T) {
		item := registry.ListItem{
			NPI:               "1234567890",
			ProviderID:        ptr("remote-1"),
			Name:              ptr("Dr. Adams"),
			City:              ptr("Boston"),
			RegisteredForEmdr: ptr(true),
			TransactionIDList: registry.TransactionIDList{"tx-1", "tx-2"},
			Errors:            []string{"dup", "dup", "other"},
			ErrorList:         []string{"other", "third"},
		}

		detail := ListItemToDetail(item)
		assert.Equal(t, "remote-1", detail.RemoteProviderID)
		assert.Equal(t, "Dr. Adams", detail.Name)
		assert.Equal(t, "Boston", detail.City)
		assert.True(t, detail.RegisteredForEmdr)
		assert.Equal(t, "tx-1,tx-2", detail.TransactionIDs)
		assert.Equal(t, []string{"dup", "other", "third"}, detail.Errors, "errors merged and deduplicated")
	})

	t.Run("missing optionals map to zero values", func(t *testing.T) {
		detail := ListItemToDetail(registry.ListItem{NPI: "1234567890"})
		assert.Empty(t, detail.Name)
		assert.False(t, detail.RegisteredForEmdr)
		assert.Nil(t, detail.Errors)
	})
}

func TestUpdateFromListItem(t *testing.T) {
	item := registry.ListItem{
		NPI:        "1234567890",
		Name:       ptr("Dr. Adams"),
		ProviderID: ptr("remote-1"),
	}

	patch := UpdateFromListItem(item)
	require.NotNil(t, patch.Name)
	assert.Equal(t, "Dr. Adams", *patch.Name)
	require.NotNil(t, patch.RemoteProviderID)
	assert.Equal(t, "remote-1", *patch.RemoteProviderID)
	assert.Nil(t, patch.Street, "absent fields stay nil so they never clear local data")
	assert.Nil(t, patch.CustomerID, "local ownership is never patched from registry data")
}

func TestRegistrationFromPayload(t *testing.T) {
	now := time.Now()
	p := models.Provider{ID: uuid.New(), NPI: "1234567890", RemoteProviderID: "remote-local"}

	t.Run("prefers the payload's provider id", func(t *testing.T) {
		status := RegistrationFromPayload(p, registry.RegistrationPayload{
			ProviderID:        "remote-fresh",
			RegisteredForEmdr: true,
			ElectronicOnly:    true,
		}, now)
		assert.Equal(t, "remote-fresh", status.RemoteProviderID)
		assert.Equal(t, models.StateRegisteredElectronicOnly, status.State())
		assert.Equal(t, now, status.FetchedAt)
	})

	t.Run("falls back to the stored provider id", func(t *testing.T) {
		status := RegistrationFromPayload(p, registry.RegistrationPayload{}, now)
		assert.Equal(t, "remote-local", status.RemoteProviderID)
	})
}

func TestFetchErrorStatus(t *testing.T) {
	now := time.Now()
	p := models.Provider{ID: uuid.New(), NPI: "1234567890", RemoteProviderID: "remote-1"}

	status := FetchErrorStatus(p, errors.New("connection refused"), now)
	assert.Equal(t, models.CallErrorFetch, status.CallErrorCode)
	assert.Equal(t, "connection refused", status.CallErrorDescription)
	assert.True(t, status.FetchFailed())
	assert.Equal(t, models.StateNotRegistered, status.State())
}

func TestRowFromPersisted(t *testing.T) {
	customerID := uuid.New()
	base := models.Provider{
		ID:         uuid.New(),
		NPI:        "1234567890",
		Name:       "Stored Name",
		Street:     "1 Main St",
		CustomerID: &customerID,
	}
	names := RowNames{Customers: map[string]string{customerID.String(): "Clinic A"}}

	t.Run("provider columns alone", func(t *testing.T) {
		row := RowFromPersisted(base, nil, nil, names)
		assert.Equal(t, "Stored Name", row.Name)
		assert.Equal(t, "Clinic A", row.CustomerName)
		assert.Equal(t, models.StateNotRegistered, row.RegistrationState)
	})

	t.Run("list detail overrides provider columns", func(t *testing.T) {
		detail := &models.ListDetail{Name: "Fresh Name", RegisteredForEmdr: true, Stage: "ACTIVE"}
		row := RowFromPersisted(base, detail, nil, names)
		assert.Equal(t, "Fresh Name", row.Name)
		assert.True(t, row.RegisteredForEmdr)
		assert.Equal(t, "ACTIVE", row.Stage)
		assert.Equal(t, models.StateRegistered, row.RegistrationState)
	})

	t.Run("registration status outranks list detail", func(t *testing.T) {
		detail := &models.ListDetail{RegisteredForEmdr: true, Stage: "ACTIVE"}
		fetchedAt := time.Now()
		status := &models.RegistrationStatus{
			ProviderID:     base.ID,
			ElectronicOnly: true,
			Stage:          "NARROWED",
			FetchedAt:      fetchedAt,
		}
		row := RowFromPersisted(base, detail, status, names)
		assert.Equal(t, models.StateRegisteredElectronicOnly, row.RegistrationState)
		assert.Equal(t, "NARROWED", row.Stage)
		require.NotNil(t, row.FetchedAt)
		assert.Equal(t, fetchedAt, *row.FetchedAt)
	})

	t.Run("failed fetch keeps list-derived flags", func(t *testing.T) {
		detail := &models.ListDetail{RegisteredForEmdr: true}
		status := &models.RegistrationStatus{
			ProviderID:           base.ID,
			CallErrorCode:        models.CallErrorFetch,
			CallErrorDescription: "boom",
		}
		row := RowFromPersisted(base, detail, status, names)
		assert.True(t, row.RegisteredForEmdr, "fetch failure must not zero the flags")
		assert.Equal(t, models.CallErrorFetch, row.CallErrorCode)
	})
}

func TestMergeRemoteIntoRows(t *testing.T) {
	customerID := uuid.New()
	base := []models.Row{
		{NPI: "2000000000", Name: "Local Two", CustomerID: &customerID, CustomerName: "Clinic A"},
		{NPI: "3000000000", Name: "Local Three"},
	}
	items := []registry.ListItem{
		{NPI: "2000000000", RegisteredForEmdr: ptr(true), Stage: ptr("ACTIVE")},
		{NPI: "1000000000", Name: ptr("Remote One"), ProviderID: ptr("remote-1")},
	}

	merged := MergeRemoteIntoRows(base, items)
	require.Len(t, merged, 3)
	assert.Equal(t, models.NPI("1000000000"), merged[0].NPI, "sorted by NPI")

	appended := merged[0]
	assert.Equal(t, "Remote One", appended.Name)
	assert.Equal(t, "remote-1", appended.RemoteProviderID)

	overlaid := merged[1]
	assert.True(t, overlaid.RegisteredForEmdr)
	assert.Equal(t, "ACTIVE", overlaid.Stage)
	assert.Equal(t, "Clinic A", overlaid.CustomerName, "local linkage survives the overlay")
	assert.Equal(t, "Local Two", overlaid.Name, "locally resolved name survives")

	untouched := merged[2]
	assert.Equal(t, "Local Three", untouched.Name)
	assert.False(t, untouched.RegisteredForEmdr)
}
