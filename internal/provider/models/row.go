package models

import (
	"time"

	"github.com/google/uuid"
)

// Row is the read-facing view of one provider: persisted columns joined with
// the freshest registration data available. Field precedence when composing:
// RegistrationStatus > ListDetail > raw Provider column.
type Row struct {
	NPI               NPI               `json:"npi"`
	Name              string            `json:"name"`
	Street            string            `json:"street"`
	Street2           string            `json:"street_2"`
	City              string            `json:"city"`
	State             string            `json:"state"`
	Zip               string            `json:"zip"`
	RemoteProviderID  string            `json:"remote_provider_id"`
	CustomerID        *uuid.UUID        `json:"customer_id"`
	CustomerName      string            `json:"customer_name"`
	ProviderGroupID   *uuid.UUID        `json:"provider_group_id"`
	ProviderGroupName string            `json:"provider_group_name"`
	RegisteredForEmdr bool              `json:"registered_for_emdr"`
	ElectronicOnly    bool              `json:"registered_for_emdr_electronic_only"`
	RegistrationState RegistrationState `json:"registration_state"`
	RegStatus         string            `json:"reg_status"`
	Stage             string            `json:"stage"`
	SubmissionStatus  string            `json:"submission_status"`
	TransactionIDs    string            `json:"transaction_ids"`
	StatusChanges     []StatusChange    `json:"status_changes,omitempty"`
	Errors            []string          `json:"errors,omitempty"`
	CallErrorCode     string            `json:"call_error_code,omitempty"`
	CallErrorDesc     string            `json:"call_error_description,omitempty"`
	LastListAt        *time.Time        `json:"last_list_at"`
	LastUpdateAt      *time.Time        `json:"last_update_at"`
	FetchedAt         *time.Time        `json:"fetched_at"`
}
