package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "provdir/pkg/domain-errors"
)

// NPI is the National Provider Identifier: the stable natural key joining a
// local provider record to the external registry.
type NPI string

func (n NPI) String() string {
	return string(n)
}

// Provider is the aggregate root for one healthcare provider.
//
// Invariants:
//   - NPI is globally unique and immutable after construction
//   - RemoteProviderID is empty until the registry assigns one; every
//     registration-state transition requires it to be non-empty
//   - LastListSnapshot/LastListAt track the most recent registry list payload
//     for this provider; LastUpdateSnapshot/LastUpdateAt track the most
//     recent update or registration response
//
// CustomerID and ProviderGroupID are locally owned: the reconciliation engine
// must never overwrite them from registry data once assigned.
type Provider struct {
	ID               uuid.UUID       `json:"id"`
	NPI              NPI             `json:"npi"`
	Name             string          `json:"name"`
	Street           string          `json:"street"`
	Street2          string          `json:"street_2"`
	City             string          `json:"city"`
	State            string          `json:"state"`
	Zip              string          `json:"zip"`
	RemoteProviderID string          `json:"remote_provider_id"`
	CustomerID       *uuid.UUID      `json:"customer_id"`
	ProviderGroupID  *uuid.UUID      `json:"provider_group_id"`
	LastListSnapshot *ListSnapshot   `json:"last_list_snapshot"`
	LastListAt       *time.Time      `json:"last_list_at"`
	LastUpdateSnap   *UpdateSnapshot `json:"last_update_snapshot"`
	LastUpdateAt     *time.Time      `json:"last_update_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasCompleteAddress reports whether the provider carries everything the
// registry requires for a registration lookup.
func (p *Provider) HasCompleteAddress() bool {
	return p.Street != "" && p.City != "" && p.State != "" && p.Zip != ""
}

// RegistrationCandidate reports whether the registration refresh engine may
// include this provider.
func (p *Provider) RegistrationCandidate() bool {
	return p.RemoteProviderID != "" && p.Name != "" && p.HasCompleteAddress()
}

// RequireRemoteID gates registration-state transitions: without a
// registry-assigned id there is nothing to transition.
func (p *Provider) RequireRemoteID() error {
	if p.RemoteProviderID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "provider has no registry id; update the provider first")
	}
	return nil
}

func NewProvider(providerID uuid.UUID, npi NPI, now time.Time) (*Provider, error) {
	if strings.TrimSpace(npi.String()) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "npi cannot be empty")
	}
	return &Provider{
		ID:        providerID,
		NPI:       npi,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ProviderPatch is a sparse update: nil fields are left untouched on write.
// The reconciliation engine builds these from registry list items so a field
// the registry omitted never nulls out local data.
type ProviderPatch struct {
	Name             *string
	Street           *string
	Street2          *string
	City             *string
	State            *string
	Zip              *string
	RemoteProviderID *string
	CustomerID       *uuid.UUID
	ProviderGroupID  *uuid.UUID
	LastListSnapshot *ListSnapshot
	LastListAt       *time.Time
	LastUpdateSnap   *UpdateSnapshot
	LastUpdateAt     *time.Time
}

// IsZero reports whether the patch would change nothing.
func (p ProviderPatch) IsZero() bool {
	return p == ProviderPatch{}
}

// Apply copies the non-nil patch fields onto the provider.
func (p ProviderPatch) Apply(target *Provider, now time.Time) {
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Street != nil {
		target.Street = *p.Street
	}
	if p.Street2 != nil {
		target.Street2 = *p.Street2
	}
	if p.City != nil {
		target.City = *p.City
	}
	if p.State != nil {
		target.State = *p.State
	}
	if p.Zip != nil {
		target.Zip = *p.Zip
	}
	if p.RemoteProviderID != nil {
		target.RemoteProviderID = *p.RemoteProviderID
	}
	if p.CustomerID != nil {
		target.CustomerID = p.CustomerID
	}
	if p.ProviderGroupID != nil {
		target.ProviderGroupID = p.ProviderGroupID
	}
	if p.LastListSnapshot != nil {
		target.LastListSnapshot = p.LastListSnapshot
	}
	if p.LastListAt != nil {
		target.LastListAt = p.LastListAt
	}
	if p.LastUpdateSnap != nil {
		target.LastUpdateSnap = p.LastUpdateSnap
	}
	if p.LastUpdateAt != nil {
		target.LastUpdateAt = p.LastUpdateAt
	}
	target.UpdatedAt = now
}

// SystemCustomerName is the reserved sentinel customer owning providers
// discovered in the registry before anyone claims them locally. Its name
// must never change.
const SystemCustomerName = "System"

// Customer is a scope container for providers.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSystem reports whether this is the reserved sentinel customer.
func (c *Customer) IsSystem() bool {
	return strings.EqualFold(c.Name, SystemCustomerName)
}

// ProviderGroup is a finer-grained scope under a customer. Read-only in this
// subsystem; assignment happens elsewhere.
type ProviderGroup struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
}
