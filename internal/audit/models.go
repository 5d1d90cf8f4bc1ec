package audit

import "time"

// Action names one auditable directory operation.
type Action string

const (
	ActionDirectorySynced        Action = "directory.synced"
	ActionRegistrationsRefreshed Action = "registrations.refreshed"
	ActionProviderUpdated        Action = "provider.updated"
	ActionProviderRegistered     Action = "provider.registered"
	ActionProviderDeregistered   Action = "provider.deregistered"
	ActionElectronicOnlySet      Action = "provider.electronic_only_set"
	ActionCustomerRenamed        Action = "customer.renamed"
)

// Event is emitted from domain logic to capture key directory actions. Keep
// it transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp        time.Time `json:"timestamp"`
	Action           Action    `json:"action"`
	Actor            string    `json:"actor,omitempty"`
	NPI              string    `json:"npi,omitempty"`
	RemoteProviderID string    `json:"remote_provider_id,omitempty"`
	Outcome          string    `json:"outcome"`
	Detail           string    `json:"detail,omitempty"`
	RequestID        string    `json:"request_id,omitempty"`
}
