package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StubClient serves deterministic registry data with a configurable latency
// to mimic real-world calls. It backs local development when no registry is
// configured, and doubles as a test fake.
type StubClient struct {
	Latency time.Duration

	mu         sync.Mutex
	providers  map[string]RegistrationPayload // keyed by remote provider id
	byNPI      map[string]string              // npi -> remote provider id
	identities map[string]UpdateRequest
}

func NewStubClient() *StubClient {
	return &StubClient{
		providers:  make(map[string]RegistrationPayload),
		byNPI:      make(map[string]string),
		identities: make(map[string]UpdateRequest),
	}
}

// Seed registers a provider with the stub so it appears in list responses.
func (c *StubClient) Seed(req UpdateRequest, payload RegistrationPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if payload.ProviderID == "" {
		payload.ProviderID = uuid.NewString()
	}
	c.providers[payload.ProviderID] = payload
	c.byNPI[req.NPI] = payload.ProviderID
	c.identities[req.NPI] = req
}

func (c *StubClient) ListProviders(_ context.Context, page, pageSize int) (ListPage, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()

	npis := make([]string, 0, len(c.byNPI))
	for npi := range c.byNPI {
		npis = append(npis, npi)
	}
	sort.Strings(npis)

	items := make([]ListItem, 0, len(npis))
	for _, npi := range npis {
		remoteID := c.byNPI[npi]
		identity := c.identities[npi]
		payload := c.providers[remoteID]
		items = append(items, ListItem{
			NPI:               npi,
			ProviderID:        ptr(remoteID),
			Name:              ptr(identity.Name),
			Street:            ptr(identity.Street),
			Street2:           ptr(identity.Street2),
			City:              ptr(identity.City),
			State:             ptr(identity.State),
			Zip:               ptr(identity.Zip),
			RegisteredForEmdr: ptr(payload.RegisteredForEmdr),
			ElectronicOnly:    ptr(payload.ElectronicOnly),
			Stage:             ptr(payload.Stage),
			RegStatus:         ptr(payload.RegStatus),
			TransactionIDList: payload.TransactionIDList,
			StatusChanges:     payload.StatusChanges,
		})
	}

	totalPages := (len(items) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return ListPage{Items: nil, TotalPages: totalPages}, nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return ListPage{Items: items[start:end], TotalPages: totalPages}, nil
}

func (c *StubClient) UpdateProvider(_ context.Context, req UpdateRequest) (UpdateResponse, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()

	remoteID, ok := c.byNPI[req.NPI]
	if !ok {
		remoteID = uuid.NewString()
		c.byNPI[req.NPI] = remoteID
		c.providers[remoteID] = RegistrationPayload{ProviderID: remoteID}
	}
	c.identities[req.NPI] = req
	return UpdateResponse{ProviderID: remoteID, Status: "accepted"}, nil
}

func (c *StubClient) SetEmdrRegistration(_ context.Context, remoteProviderID string, enabled bool) (RegistrationPayload, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := c.providers[remoteProviderID]
	payload.ProviderID = remoteProviderID
	payload.RegisteredForEmdr = enabled
	if !enabled {
		payload.ElectronicOnly = false
	}
	payload.Status = "ok"
	c.providers[remoteProviderID] = payload
	return payload, nil
}

func (c *StubClient) SetElectronicOnly(_ context.Context, remoteProviderID string) (RegistrationPayload, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := c.providers[remoteProviderID]
	payload.ProviderID = remoteProviderID
	payload.RegisteredForEmdr = true
	payload.ElectronicOnly = true
	payload.Status = "ok"
	c.providers[remoteProviderID] = payload
	return payload, nil
}

func (c *StubClient) GetProviderRegistration(_ context.Context, remoteProviderID string) (RegistrationPayload, error) {
	time.Sleep(c.Latency)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providers[remoteProviderID], nil
}

func ptr[T any](v T) *T {
	return &v
}
