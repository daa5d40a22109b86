package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viewerStub simulates the hosted viewer's REST and websocket surface.
type viewerStub struct {
	mu        sync.Mutex
	polls     int // status checks before reporting ready
	searches  int
	themings  [][]string
	fits      [][]string
	isolates  [][]string
	clears    int
	lastToken string

	refuseEvents bool

	upgrader websocket.Upgrader
	srv      *httptest.Server
}

func newViewerStub(t *testing.T, pendingPolls int) *viewerStub {
	t.Helper()
	s := &viewerStub{polls: pendingPolls}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *viewerStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastToken = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/sessions":
		json.NewEncoder(w).Encode(map[string]string{"id": "sess-1"})
	case r.Method == http.MethodGet && r.URL.Path == "/sessions/sess-1" && r.URL.RawQuery == "":
		s.mu.Lock()
		status := "ready"
		if s.polls > 0 {
			s.polls--
			status = "pending"
		}
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	case r.URL.Path == "/sessions/sess-1/search":
		s.mu.Lock()
		s.searches++
		s.mu.Unlock()
		name := r.URL.Query().Get("name")
		ids := []string{}
		if name != "ghost" {
			ids = []string{"dbid-" + name}
		}
		json.NewEncoder(w).Encode(map[string][]string{"ids": ids})
	case r.Method == http.MethodPost && r.URL.Path == "/sessions/sess-1/theming":
		var body struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.themings = append(s.themings, body.IDs)
		s.mu.Unlock()
	case r.Method == http.MethodDelete && r.URL.Path == "/sessions/sess-1/theming":
		s.mu.Lock()
		s.clears++
		s.mu.Unlock()
	case r.Method == http.MethodPost && r.URL.Path == "/sessions/sess-1/fit":
		var body struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.fits = append(s.fits, body.IDs)
		s.mu.Unlock()
	case r.Method == http.MethodPost && r.URL.Path == "/sessions/sess-1/isolation":
		var body struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.isolates = append(s.isolates, body.IDs)
		s.mu.Unlock()
	case r.URL.Path == "/sessions/sess-1/events":
		if s.refuseEvents {
			http.Error(w, "no feed", http.StatusServiceUnavailable)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteJSON(Event{Type: "object-selected", ObjectID: "dbid-wall"})
	default:
		http.NotFound(w, r)
	}
}

func (s *viewerStub) searchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

func (s *viewerStub) token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

func startedCloud(t *testing.T, stub *viewerStub) *Cloud {
	t.Helper()
	c, err := NewCloud(CloudConfig{
		BaseURL:      stub.srv.URL,
		Model:        "urn:model-1",
		Token:        func(context.Context) (string, error) { return "tok-1", nil },
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCloudStartPollsUntilReady(t *testing.T) {
	stub := newViewerStub(t, 3)
	c := startedCloud(t, stub)
	assert.Equal(t, "sess-1", c.sessionID)
	assert.Equal(t, "tok-1", stub.token())
}

func TestCloudStartTokenFailure(t *testing.T) {
	stub := newViewerStub(t, 0)
	c, err := NewCloud(CloudConfig{
		BaseURL: stub.srv.URL,
		Token:   func(context.Context) (string, error) { return "", errors.New("denied") },
	})
	require.NoError(t, err)
	err = c.Start(context.Background())
	require.ErrorIs(t, err, ErrViewerInit)
}

func TestCloudStartDocumentLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/sessions" {
			json.NewEncoder(w).Encode(map[string]string{"id": "sess-1"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "failed"})
	}))
	defer srv.Close()

	c, err := NewCloud(CloudConfig{
		BaseURL:      srv.URL,
		Token:        func(context.Context) (string, error) { return "t", nil },
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.ErrorIs(t, c.Start(context.Background()), ErrViewerInit)
}

func TestCloudStartCancelled(t *testing.T) {
	stub := newViewerStub(t, 0)
	c, err := NewCloud(CloudConfig{
		BaseURL: stub.srv.URL,
		Token:   func(context.Context) (string, error) { return "t", nil },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, c.Start(ctx))
}

func TestCloudHighlightResolvesWholeBatch(t *testing.T) {
	stub := newViewerStub(t, 0)
	c := startedCloud(t, stub)

	require.NoError(t, c.Highlight([]string{"wall-1", "wall-2", "ghost"}))

	// Clear-then-apply: one delete, one theming call with every resolved id.
	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, 1, stub.clears)
	require.Len(t, stub.themings, 1)
	assert.ElementsMatch(t, []string{"dbid-wall-1", "dbid-wall-2"}, stub.themings[0])
}

func TestCloudResolveCachesSearches(t *testing.T) {
	stub := newViewerStub(t, 0)
	c := startedCloud(t, stub)

	require.NoError(t, c.Highlight([]string{"wall-1", "wall-2"}))
	first := stub.searchCount()
	assert.Equal(t, 2, first)

	require.NoError(t, c.FitToSelection([]string{"wall-1", "wall-2"}))
	assert.Equal(t, first, stub.searchCount(), "cached names must not search again")
}

func TestCloudHighlightEmptyOnlyClears(t *testing.T) {
	stub := newViewerStub(t, 0)
	c := startedCloud(t, stub)

	require.NoError(t, c.Highlight(nil))
	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, 1, stub.clears)
	assert.Empty(t, stub.themings)
}

func TestCloudIsolationEmptyShowsAll(t *testing.T) {
	stub := newViewerStub(t, 0)
	c := startedCloud(t, stub)

	require.NoError(t, c.SetIsolation(true, []string{"wall-1"}))
	require.NoError(t, c.SetIsolation(true, nil))
	require.NoError(t, c.SetIsolation(false, []string{"wall-1"}))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.isolates, 3)
	assert.Equal(t, []string{"dbid-wall-1"}, stub.isolates[0])
	assert.Empty(t, stub.isolates[1])
	assert.Empty(t, stub.isolates[2])
}

func TestCloudEventFeed(t *testing.T) {
	stub := newViewerStub(t, 0)
	c := startedCloud(t, stub)

	select {
	case ev := <-c.Events():
		assert.Equal(t, "object-selected", ev.Type)
		assert.Equal(t, "dbid-wall", ev.ObjectID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestCloudCloseEndsEventFeedWhenNeverConnected(t *testing.T) {
	stub := newViewerStub(t, 0)
	stub.refuseEvents = true
	c := startedCloud(t, stub)

	require.NoError(t, c.Close())
	select {
	case _, open := <-c.Events():
		assert.False(t, open, "event channel must close so readers do not block")
	case <-time.After(2 * time.Second):
		t.Fatal("event channel still open after Close")
	}
}

func TestCloudCloseIdempotent(t *testing.T) {
	stub := newViewerStub(t, 0)
	c := startedCloud(t, stub)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
