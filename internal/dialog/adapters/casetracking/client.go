package casetracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type caseWindowDTO struct {
	Active bool `json:"active"`
}

// Client answers the time-boxed-eligibility question: does the subject have an
// active, qualifying case-tracking window right now.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a case tracking client. A nil httpClient gets a default
// with a 10 second timeout.
func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "casetracking_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// HasActiveCaseWindow reports whether the subject is inside an active case
// window. Used to gate uncorrelated inbound messages.
func (c *Client) HasActiveCaseWindow(ctx context.Context, subjectID string) (bool, error) {
	reqURL := fmt.Sprintf("%s/api/v1/casewindows/%s/active", c.baseURL, url.PathEscape(subjectID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("create case window request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("call case tracking: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("case tracking returned status %d for subject", resp.StatusCode)
	}

	var dto caseWindowDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return false, fmt.Errorf("decode case window response: %w", err)
	}
	return dto.Active, nil
}
