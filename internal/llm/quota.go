package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrQuotaNotConfigured means no quota endpoint was set; the status command
// reports this as an unavailable status rather than failing the pipeline.
var ErrQuotaNotConfigured = errors.New("quota endpoint not configured")

// QuotaStatus is the usage report of the generation backend.
type QuotaStatus struct {
	Total     int64 `json:"total"`
	Remaining int64 `json:"remaining"`
}

// QuotaClient fetches QuotaStatus from a plain JSON endpoint.
type QuotaClient struct {
	url        string
	httpClient *http.Client
}

func NewQuotaClient(url string, timeout time.Duration) *QuotaClient {
	return &QuotaClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *QuotaClient) Status(ctx context.Context) (*QuotaStatus, error) {
	if c.url == "" {
		return nil, ErrQuotaNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building quota request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling quota endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quota endpoint returned status %d", resp.StatusCode)
	}

	var status QuotaStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("error decoding quota response: %w", err)
	}
	return &status, nil
}
