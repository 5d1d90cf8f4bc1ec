package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationState is derived from the two eMDR flags every time it is
// needed; it is never persisted. Electronic-only implies registered.
type RegistrationState string

const (
	StateNotRegistered            RegistrationState = "NOT_REGISTERED"
	StateRegistered               RegistrationState = "REGISTERED"
	StateRegisteredElectronicOnly RegistrationState = "REGISTERED_ELECTRONIC_ONLY"
)

// DeriveRegistrationState computes the state machine position from the
// registry's two booleans.
func DeriveRegistrationState(registered, electronicOnly bool) RegistrationState {
	switch {
	case electronicOnly:
		return StateRegisteredElectronicOnly
	case registered:
		return StateRegistered
	default:
		return StateNotRegistered
	}
}

// CallErrorFetch marks a synthetic RegistrationStatus written when the
// registry lookup for a provider failed. Downstream consumers treat it like
// any other status, so no provider is ever in an "unknown" state.
const CallErrorFetch = "FETCH_ERROR"

// StatusChange is one timestamped registration event from the registry.
type StatusChange struct {
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	ChangedAt     time.Time `json:"changed_at"`
}

// RegistrationStatus is the most recent per-provider registration lookup.
// At most one exists per provider, and every write is a full replacement:
// partial merges would race the refresh engine against the state machine.
type RegistrationStatus struct {
	ProviderID           uuid.UUID      `json:"provider_id"`
	RemoteProviderID     string         `json:"remote_provider_id"`
	RegisteredForEmdr    bool           `json:"registered_for_emdr"`
	ElectronicOnly       bool           `json:"registered_for_emdr_electronic_only"`
	RegStatus            string         `json:"reg_status"`
	Stage                string         `json:"stage"`
	SubmissionStatus     string         `json:"submission_status"`
	Status               string         `json:"status"`
	CallErrorCode        string         `json:"call_error_code"`
	CallErrorDescription string         `json:"call_error_description"`
	TransactionIDs       string         `json:"transaction_ids"`
	StatusChanges        []StatusChange `json:"status_changes"`
	Errors               []string       `json:"errors"`
	FetchedAt            time.Time      `json:"fetched_at"`
}

// State derives the registration state from this status's flags.
func (s *RegistrationStatus) State() RegistrationState {
	return DeriveRegistrationState(s.RegisteredForEmdr, s.ElectronicOnly)
}

// FetchFailed reports whether this status records a lookup failure rather
// than registry data.
func (s *RegistrationStatus) FetchFailed() bool {
	return s.CallErrorCode != ""
}

// ListDetail is the normalized registration subset of a registry list item:
// everything this subsystem reads from the raw payload, with the
// transaction-id field already canonicalized to one comma-joined string.
type ListDetail struct {
	RemoteProviderID  string         `json:"remote_provider_id"`
	Name              string         `json:"name"`
	Street            string         `json:"street"`
	Street2           string         `json:"street_2"`
	City              string         `json:"city"`
	State             string         `json:"state"`
	Zip               string         `json:"zip"`
	RegisteredForEmdr bool           `json:"registered_for_emdr"`
	ElectronicOnly    bool           `json:"registered_for_emdr_electronic_only"`
	Stage             string         `json:"stage"`
	RegStatus         string         `json:"reg_status"`
	TransactionIDs    string         `json:"transaction_ids"`
	StatusChanges     []StatusChange `json:"status_changes"`
	Errors            []string       `json:"errors"`
}

// snapshotVersion tags persisted snapshot envelopes so a future shape change
// can migrate old rows instead of misreading them.
const snapshotVersion = 1

// ListSnapshot is the typed envelope persisted on Provider.LastListSnapshot.
type ListSnapshot struct {
	Version   int        `json:"version"`
	Detail    ListDetail `json:"detail"`
	FetchedAt time.Time  `json:"fetched_at"`
}

func NewListSnapshot(detail ListDetail, fetchedAt time.Time) *ListSnapshot {
	return &ListSnapshot{Version: snapshotVersion, Detail: detail, FetchedAt: fetchedAt}
}

// UpdateSnapshot is the typed envelope persisted on Provider.LastUpdateSnap:
// the registry's response to the most recent update or transition call.
type UpdateSnapshot struct {
	Version          int       `json:"version"`
	Operation        string    `json:"operation"`
	RemoteProviderID string    `json:"remote_provider_id"`
	Registered       bool      `json:"registered_for_emdr"`
	ElectronicOnly   bool      `json:"registered_for_emdr_electronic_only"`
	Status           string    `json:"status"`
	Errors           []string  `json:"errors,omitempty"`
	ReceivedAt       time.Time `json:"received_at"`
}
