package modelsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPSource fetches models over HTTP(S). The ref is the full URL.
type HTTPSource struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Fetch downloads the model body.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	hc := s.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch model: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch model: %w", err)
	}
	return data, nil
}
