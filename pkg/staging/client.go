package staging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrExtraction is returned when the extraction endpoint fails. It is
// non-fatal: the operator retries via refresh.
var ErrExtraction = errors.New("extraction failed")

// Extractor is the extraction endpoint collaborator.
type Extractor interface {
	Extract(ctx context.Context, modelRef string) (*Extraction, error)
}

// Client talks JSON over HTTP to the extraction and import endpoints.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a client for the given service base URL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, hc: hc}
}

// Extract requests a fresh decode of the model's tagged objects.
func (c *Client) Extract(ctx context.Context, modelRef string) (*Extraction, error) {
	var out Extraction
	err := c.post(ctx, "/extract", map[string]string{"modelRef": modelRef}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return &out, nil
}

// Import commits one category's selection.
func (c *Client) Import(ctx context.Context, cat Category, req ImportRequest) (ImportResult, error) {
	var out ImportResult
	if err := c.post(ctx, "/import/"+string(cat), req, &out); err != nil {
		return ImportResult{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var (
	_ Extractor = (*Client)(nil)
	_ Importer  = (*Client)(nil)
)
