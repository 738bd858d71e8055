package leaderelection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// leaderResponse is the elector sidecar's answer: the name of the pod that
// currently holds leadership.
type leaderResponse struct {
	Name string `json:"name"`
}

// Client asks the elector sidecar who the current leader is and compares the
// answer against the local hostname. The elector is assumed to return exactly
// one leader at a time; the answer is not re-verified mid-job.
type Client struct {
	httpClient *http.Client
	electorURL string
	hostname   string
}

// NewClient creates a leader-election client for this process instance.
func NewClient(electorURL string) (*Client, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		electorURL: electorURL,
		hostname:   hostname,
	}, nil
}

// IsLeader reports whether this instance currently holds leadership.
func (c *Client) IsLeader(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.electorURL, nil)
	if err != nil {
		return false, fmt.Errorf("build elector request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("call elector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("elector returned status %d", resp.StatusCode)
	}

	var leader leaderResponse
	if err := json.NewDecoder(resp.Body).Decode(&leader); err != nil {
		return false, fmt.Errorf("decode elector response: %w", err)
	}

	return leader.Name == c.hostname, nil
}
