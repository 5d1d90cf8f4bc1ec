package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"provdir/internal/platform/config"
	dErrors "provdir/pkg/domain-errors"
)

// HTTPClient talks to the registry's REST API.
type HTTPClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewHTTPClient builds a registry client from configuration. The http.Client
// timeout is the per-call ceiling; operations add their own context deadlines
// on top.
func NewHTTPClient(cfg config.RegistryConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *HTTPClient) ListProviders(ctx context.Context, page, pageSize int) (ListPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var out ListPage
	if err := c.do(ctx, http.MethodGet, "/providers?"+q.Encode(), nil, &out); err != nil {
		return ListPage{}, fmt.Errorf("list providers page %d: %w", page, err)
	}
	return out, nil
}

func (c *HTTPClient) UpdateProvider(ctx context.Context, req UpdateRequest) (UpdateResponse, error) {
	var out UpdateResponse
	if err := c.do(ctx, http.MethodPost, "/providers", req, &out); err != nil {
		return UpdateResponse{}, fmt.Errorf("update provider %s: %w", req.NPI, err)
	}
	return out, nil
}

func (c *HTTPClient) SetEmdrRegistration(ctx context.Context, remoteProviderID string, enabled bool) (RegistrationPayload, error) {
	body := struct {
		Enabled bool `json:"enabled"`
	}{Enabled: enabled}

	var out RegistrationPayload
	path := "/providers/" + url.PathEscape(remoteProviderID) + "/emdr-registration"
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return RegistrationPayload{}, fmt.Errorf("set emdr registration: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) SetElectronicOnly(ctx context.Context, remoteProviderID string) (RegistrationPayload, error) {
	var out RegistrationPayload
	path := "/providers/" + url.PathEscape(remoteProviderID) + "/electronic-only"
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return RegistrationPayload{}, fmt.Errorf("set electronic only: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) GetProviderRegistration(ctx context.Context, remoteProviderID string) (RegistrationPayload, error) {
	var out RegistrationPayload
	path := "/providers/" + url.PathEscape(remoteProviderID) + "/registration"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return RegistrationPayload{}, fmt.Errorf("get provider registration: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep a short excerpt so error strings stay loggable.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dErrors.Newf(dErrors.CodeUnavailable, "registry returned %d: %s", resp.StatusCode, excerpt)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "decode registry response")
	}
	return nil
}
