// Package registry defines the client boundary to the external provider
// registry: the service of record for provider identity and eMDR
// registration. The rest of the system consumes the Client interface and
// never sees wire-level concerns.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Client is the narrow interface the sync and registration engines consume.
type Client interface {
	// ListProviders returns one page of the registry's full provider list.
	ListProviders(ctx context.Context, page, pageSize int) (ListPage, error)
	// UpdateProvider upserts provider identity data on the registry side and
	// returns the registry-assigned provider id.
	UpdateProvider(ctx context.Context, req UpdateRequest) (UpdateResponse, error)
	// SetEmdrRegistration enables or disables electronic delivery.
	SetEmdrRegistration(ctx context.Context, remoteProviderID string, enabled bool) (RegistrationPayload, error)
	// SetElectronicOnly narrows delivery to electronic correspondence only.
	SetElectronicOnly(ctx context.Context, remoteProviderID string) (RegistrationPayload, error)
	// GetProviderRegistration fetches the current registration status.
	GetProviderRegistration(ctx context.Context, remoteProviderID string) (RegistrationPayload, error)
}

// ListPage is one page of the registry list response.
type ListPage struct {
	Items      []ListItem `json:"items"`
	TotalPages int        `json:"total_pages"`
}

// ListItem is the wire shape of one registry list entry. Optional fields are
// pointers: absence means "registry did not send this", which downstream
// patch logic must not confuse with an empty value.
type ListItem struct {
	NPI               string            `json:"npi"`
	ProviderID        *string           `json:"provider_id,omitempty"`
	Name              *string           `json:"name,omitempty"`
	Street            *string           `json:"street,omitempty"`
	Street2           *string           `json:"street_2,omitempty"`
	City              *string           `json:"city,omitempty"`
	State             *string           `json:"state,omitempty"`
	Zip               *string           `json:"zip,omitempty"`
	RegisteredForEmdr *bool             `json:"registered_for_emdr,omitempty"`
	ElectronicOnly    *bool             `json:"registered_for_emdr_electronic_only,omitempty"`
	Stage             *string           `json:"stage,omitempty"`
	RegStatus         *string           `json:"reg_status,omitempty"`
	TransactionIDList TransactionIDList `json:"transaction_id_list,omitempty"`
	StatusChanges     []StatusChange    `json:"status_changes,omitempty"`
	Errors            []string          `json:"errors,omitempty"`
	ErrorList         []string          `json:"error_list,omitempty"`
}

// StatusChange is one timestamped registration event.
type StatusChange struct {
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	ChangedAt     time.Time `json:"changed_at"`
}

// UpdateRequest carries provider identity data to the registry.
type UpdateRequest struct {
	NPI     string `json:"npi"`
	Name    string `json:"name"`
	Street  string `json:"street"`
	Street2 string `json:"street_2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// UpdateResponse is the registry's answer to an identity upsert.
type UpdateResponse struct {
	ProviderID string   `json:"provider_id"`
	Status     string   `json:"status"`
	Errors     []string `json:"errors,omitempty"`
}

// RegistrationPayload is the registration subset of a list item, returned by
// the per-provider registration lookup and by the transition calls. The call
// error fields are set only when the registry itself reports a lookup
// failure.
type RegistrationPayload struct {
	ProviderID           string            `json:"provider_id"`
	RegisteredForEmdr    bool              `json:"registered_for_emdr"`
	ElectronicOnly       bool              `json:"registered_for_emdr_electronic_only"`
	Stage                string            `json:"stage,omitempty"`
	RegStatus            string            `json:"reg_status,omitempty"`
	SubmissionStatus     string            `json:"submission_status,omitempty"`
	Status               string            `json:"status,omitempty"`
	TransactionIDList    TransactionIDList `json:"transaction_id_list,omitempty"`
	StatusChanges        []StatusChange    `json:"status_changes,omitempty"`
	Errors               []string          `json:"errors,omitempty"`
	ErrorList            []string          `json:"error_list,omitempty"`
	CallErrorCode        string            `json:"call_error_code,omitempty"`
	CallErrorDescription string            `json:"call_error_description,omitempty"`
}

// TransactionIDList tolerates the registry sending either a single string or
// a JSON array for the transaction-id field.
type TransactionIDList []string

func (l *TransactionIDList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("transaction id list: %w", err)
		}
		if s == "" {
			*l = nil
			return nil
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*l = out
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("transaction id list: %w", err)
	}
	*l = arr
	return nil
}

// Joined returns the canonical comma-joined form.
func (l TransactionIDList) Joined() string {
	return strings.Join(l, ",")
}
