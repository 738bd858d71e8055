package pdfgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// renderRequest is the document model handed to the external PDF renderer.
type renderRequest struct {
	Document         json.RawMessage `json:"document"`
	PractitionerName string          `json:"practitionerName"`
}

// Client renders message documents to PDF via the external renderer.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a pdfgen client. A nil httpClient gets a default with a
// 30 second timeout; rendering is slower than the other collaborators.
func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "pdfgen_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// RenderMessagePDF renders the structured document of a message and returns
// the PDF bytes.
func (c *Client) RenderMessagePDF(ctx context.Context, document json.RawMessage, practitionerName string) ([]byte, error) {
	body, err := json.Marshal(renderRequest{Document: document, PractitionerName: practitionerName})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/dialogmessage/pdf", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call pdfgen: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pdfgen returned status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	return pdf, nil
}
