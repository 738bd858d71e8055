package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Request is passed to the archive system to journal one outbound message.
// ExternalReferenceID is the idempotency key; the archive guarantees at most
// one entry per reference id.
type Request struct {
	ExternalReferenceID string `json:"externalReferenceId"`
	SubjectID           string `json:"subjectId"`
	RecipientName       string `json:"recipientName"`
	Title               string `json:"title"`
	PDF                 []byte `json:"pdf"`
}

// Response carries the archive id assigned to the journaled document.
type Response struct {
	ArchiveID string `json:"archiveId"`
}

// Client journals documents in the external archive system.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an archive client. A nil httpClient gets a default with a
// 10 second timeout.
func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "archive_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// Archive journals the document and returns the archive id. A 409 conflict
// means a prior attempt already archived under the same reference id and is
// treated as success, returning the pre-existing archive id.
func (c *Client) Archive(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal archive request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/journalposts", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("create archive request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call archive: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusConflict:
		c.logger.InfoContext(ctx, "Archive returned conflict, document already journaled",
			"external_reference_id", req.ExternalReferenceID)
	default:
		return "", fmt.Errorf("archive returned status %d for reference %s", resp.StatusCode, req.ExternalReferenceID)
	}

	var archiveResp Response
	if err := json.NewDecoder(resp.Body).Decode(&archiveResp); err != nil {
		return "", fmt.Errorf("decode archive response: %w", err)
	}
	if archiveResp.ArchiveID == "" {
		return "", fmt.Errorf("archive response missing archive id for reference %s", req.ExternalReferenceID)
	}
	return archiveResp.ArchiveID, nil
}
