// Package embed calls an external embedding service for semantic drift
// estimation. The drift detector falls back to its local embedding whenever
// the service is unreachable or slow, so this client reports errors instead
// of retrying.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
)

// HTTPEmbedder implements contract.Embedder against a JSON-over-HTTP
// embedding service.
type HTTPEmbedder struct {
	url    string
	client *http.Client
}

var _ contract.Embedder = &HTTPEmbedder{} // Compile-time check

// embedRequest is the request payload sent to the service.
type embedRequest struct {
	Text string `json:"text"`
}

// embedResponse is the response payload expected from the service.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewHTTPEmbedder returns an embedder that POSTs to the given URL. The
// timeout bounds each call on top of any context deadline.
func NewHTTPEmbedder(url string, timeout time.Duration) *HTTPEmbedder {
	if timeout <= 0 {
		timeout = contract.DefaultEmbedTimeout
	}
	return &HTTPEmbedder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Embed returns the service's vector for the given text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed service unavailable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed service returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed service returned an empty vector")
	}
	return out.Embedding, nil
}
