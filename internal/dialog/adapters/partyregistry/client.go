package partyregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type practitionerDTO struct {
	Name string `json:"name"`
}

// Client resolves counterparty (practitioner) display names from the external
// party registry.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a party registry client. A nil httpClient gets a default
// with a 10 second timeout.
func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "partyregistry_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// ResolvePractitionerName returns the display name registered for the
// practitioner.
func (c *Client) ResolvePractitionerName(ctx context.Context, practitionerID string) (string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/practitioners/%s", c.baseURL, url.PathEscape(practitionerID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("create practitioner request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call party registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("party registry returned status %d for practitioner %s", resp.StatusCode, practitionerID)
	}

	var dto practitionerDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return "", fmt.Errorf("decode practitioner response: %w", err)
	}
	if dto.Name == "" {
		return "", fmt.Errorf("party registry returned empty name for practitioner %s", practitionerID)
	}
	return dto.Name, nil
}
