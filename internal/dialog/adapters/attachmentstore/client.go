package attachmentstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/velferd/behandlerdialog/internal/dialog/domain"
)

// attachmentDTO is one attachment as returned by the external store.
type attachmentDTO struct {
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // base64
}

// Client fetches inbound message attachments from the external attachment
// store, keyed by the provider-assigned message id.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an attachment store client. A nil httpClient gets a
// default with a 10 second timeout.
func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "attachmentstore_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// FetchAttachments returns the attachments of an inbound message. Any failure
// is returned to the caller so ingestion aborts and the stream batch is
// redelivered.
func (c *Client) FetchAttachments(ctx context.Context, externalMessageID string) ([]domain.Attachment, error) {
	reqURL := fmt.Sprintf("%s/api/v1/messages/%s/attachments", c.baseURL, url.PathEscape(externalMessageID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create attachment request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call attachment store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("attachment store returned status %d for message %s", resp.StatusCode, externalMessageID)
	}

	var dtos []attachmentDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode attachment response: %w", err)
	}

	attachments := make([]domain.Attachment, 0, len(dtos))
	for _, dto := range dtos {
		data, err := base64.StdEncoding.DecodeString(dto.Data)
		if err != nil {
			return nil, fmt.Errorf("decode attachment data for message %s: %w", externalMessageID, err)
		}
		attachments = append(attachments, domain.Attachment{
			ContentType: dto.ContentType,
			Data:        data,
		})
	}
	return attachments, nil
}
