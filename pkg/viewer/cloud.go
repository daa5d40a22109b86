package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fortio.org/log"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TokenProvider returns a short-lived credential for the hosted viewer.
// It is invoked once per viewer bring-up.
type TokenProvider func(ctx context.Context) (string, error)

// Event is a notification pushed by the hosted viewer.
type Event struct {
	Type     string `json:"type"` // "object-selected", "model-loaded", ...
	ObjectID string `json:"objectId,omitempty"`
}

// CloudConfig configures the hosted viewer backend.
type CloudConfig struct {
	BaseURL string
	Model   string // model URN to load
	Token   TokenProvider
	Client  *http.Client
	// PollInterval between document-load status checks. Defaults to 500ms.
	PollInterval time.Duration
	// SearchCacheSize bounds the name-search result cache. Defaults to 1024.
	SearchCacheSize int
}

// Cloud drives a hosted viewer through its REST surface. The hosted side
// owns the scene; external ids resolve lazily through name-based search,
// batched behind a completed-count barrier so a highlight never applies to
// a partially resolved set. Search results are LRU-cached per session.
type Cloud struct {
	cfg    CloudConfig
	client *http.Client

	token     string
	sessionID string
	cache     *lru.Cache[string, []string]

	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	events chan Event

	mu     sync.Mutex
	closed bool
}

// NewCloud creates an unstarted cloud viewer.
func NewCloud(cfg CloudConfig) (*Cloud, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cloud viewer: base URL is required")
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("cloud viewer: token provider is required")
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.SearchCacheSize <= 0 {
		cfg.SearchCacheSize = 1024
	}
	cache, err := lru.New[string, []string](cfg.SearchCacheSize)
	if err != nil {
		return nil, err
	}
	return &Cloud{
		cfg:    cfg,
		client: cfg.Client,
		cache:  cache,
		events: make(chan Event, 16),
	}, nil
}

// Start runs the multi-stage bring-up: token, session, document load,
// event feed. Every stage is gated on ctx so a teardown mid-initialization
// never mutates state afterward. Any stage failure wraps ErrViewerInit.
func (c *Cloud) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	token, err := c.cfg.Token(c.ctx)
	if err != nil {
		return fmt.Errorf("%w: token: %v", ErrViewerInit, err)
	}
	if c.ctx.Err() != nil {
		return c.ctx.Err()
	}
	c.token = token

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(http.MethodPost, "/sessions", map[string]string{"model": c.cfg.Model}, &created); err != nil {
		return fmt.Errorf("%w: create session: %v", ErrViewerInit, err)
	}
	if c.ctx.Err() != nil {
		return c.ctx.Err()
	}
	c.sessionID = created.ID

	if err := c.waitDocumentLoaded(); err != nil {
		return fmt.Errorf("%w: document load: %v", ErrViewerInit, err)
	}

	// The event feed is best-effort; highlight and fit work without it.
	if err := c.connectEvents(); err != nil {
		log.Warnf("cloud viewer: event feed unavailable: %v", err)
	}
	return nil
}

// waitDocumentLoaded polls the session until the hosted viewer reports the
// document ready.
func (c *Cloud) waitDocumentLoaded() error {
	for {
		var status struct {
			Status string `json:"status"`
		}
		if err := c.do(http.MethodGet, "/sessions/"+c.sessionID, nil, &status); err != nil {
			return err
		}
		switch status.Status {
		case "ready":
			return nil
		case "failed":
			return fmt.Errorf("document load reported failure")
		}
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// connectEvents dials the websocket event feed and pumps decoded events
// until teardown.
func (c *Cloud) connectEvents() error {
	wsURL := strings.Replace(c.cfg.BaseURL, "http", "ws", 1) + "/sessions/" + c.sessionID + "/events"
	header := http.Header{"Authorization": {"Bearer " + c.token}}
	conn, resp, err := websocket.DefaultDialer.DialContext(c.ctx, wsURL, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	c.conn = conn

	go func() {
		defer close(c.events)
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				if c.ctx.Err() == nil {
					log.Warnf("cloud viewer: event feed closed: %v", err)
				}
				return
			}
			select {
			case c.events <- ev:
			case <-c.ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Events returns the viewer event feed. The channel closes when the feed
// drops or the viewer is closed.
func (c *Cloud) Events() <-chan Event {
	return c.events
}

// resolve maps external ids to cloud object ids via concurrent name-based
// searches. Results merge only after every outstanding search completes,
// so callers never act on a partially resolved batch. Ids that resolve to
// nothing contribute nothing.
func (c *Cloud) resolve(ids []string) ([]string, error) {
	type result struct {
		id    string
		found []string
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]result, 0, len(ids))
	)
	for _, id := range ids {
		if found, ok := c.cache.Get(id); ok {
			results = append(results, result{id: id, found: found})
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			var out struct {
				IDs []string `json:"ids"`
			}
			err := c.do(http.MethodGet, "/sessions/"+c.sessionID+"/search?name="+url.QueryEscape(id), nil, &out)
			if err != nil {
				log.Warnf("cloud viewer: search %q: %v", id, err)
				return
			}
			mu.Lock()
			results = append(results, result{id: id, found: out.IDs})
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	merged := make([]string, 0, len(results))
	for _, r := range results {
		c.cache.Add(r.id, r.found)
		merged = append(merged, r.found...)
	}
	return merged, nil
}

// Highlight applies a theming color overlay to the resolved objects. The
// hosted viewer does not expose raw materials, so clear+apply is a single
// overlay replacement on its side.
func (c *Cloud) Highlight(ids []string) error {
	if err := c.ClearHighlight(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	resolved, err := c.resolve(ids)
	if err != nil {
		return err
	}
	if len(resolved) == 0 {
		return nil
	}
	body := map[string]any{"ids": resolved, "color": [4]float64{0, 0.8, 1, 1}}
	return c.do(http.MethodPost, "/sessions/"+c.sessionID+"/theming", body, nil)
}

// ClearHighlight removes the theming overlay.
func (c *Cloud) ClearHighlight() error {
	return c.do(http.MethodDelete, "/sessions/"+c.sessionID+"/theming", nil, nil)
}

// FitToSelection invokes the hosted viewer's native fit-to-view with the
// resolved handles, non-animated.
func (c *Cloud) FitToSelection(ids []string) error {
	resolved, err := c.resolve(ids)
	if err != nil {
		return err
	}
	if len(resolved) == 0 {
		return nil
	}
	return c.do(http.MethodPost, "/sessions/"+c.sessionID+"/fit", map[string]any{"ids": resolved}, nil)
}

// SetIsolation isolates the resolved objects; disabled or empty shows all.
func (c *Cloud) SetIsolation(enabled bool, ids []string) error {
	if !enabled || len(ids) == 0 {
		return c.do(http.MethodPost, "/sessions/"+c.sessionID+"/isolation", map[string]any{"ids": []string{}}, nil)
	}
	resolved, err := c.resolve(ids)
	if err != nil {
		return err
	}
	return c.do(http.MethodPost, "/sessions/"+c.sessionID+"/isolation", map[string]any{"ids": resolved}, nil)
}

// Close tears down the session. Errors during disposal are swallowed;
// teardown never blocks on the collaborator.
func (c *Cloud) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	} else {
		// the feed never started, so no reader goroutine owns the channel
		close(c.events)
	}
	return nil
}

// do issues one JSON request against the hosted viewer.
func (c *Cloud) do(method, path string, body, out any) error {
	if c.ctx == nil {
		return fmt.Errorf("cloud viewer: not started")
	}
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(c.ctx, method, c.cfg.BaseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
