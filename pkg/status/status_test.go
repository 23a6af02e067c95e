package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/regsort/pkg/search"
)

// mockProvider implements SnapshotProvider for testing.
type mockProvider struct {
	mu   sync.Mutex
	snap search.Snapshot
}

func (m *mockProvider) Snapshot() search.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockProvider) set(s search.Snapshot) {
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
}

func newProvider() *mockProvider {
	return &mockProvider{snap: search.Snapshot{
		Outcome:   search.Searching,
		Layout:    "n=3 s=1",
		Strategy:  "astar",
		Heuristic: "rank-patterns",
		MaxLength: 11,
		Stats: search.Stats{
			Visited:   42,
			Expanded:  40,
			Generated: 1200,
			Duplicate: 900,
			Open:      17,
			MaxOpen:   30,
			Length:    5,
		},
		StoreSize: 250,
	}}
}

func TestDefaultsApplied(t *testing.T) {
	s := New(Config{}, newProvider(), nil)
	assert.Equal(t, DefaultConfig().Addr, s.Address())
	assert.Equal(t, DefaultConfig().ReadTimeout, s.config.ReadTimeout)
	assert.Equal(t, DefaultConfig().IdleTimeout, s.config.IdleTimeout)
}

func TestHandleStatus(t *testing.T) {
	s := New(Config{}, newProvider(), nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, search.Searching, got.Outcome)
	assert.Equal(t, "n=3 s=1", got.Layout)
	assert.Equal(t, uint64(42), got.Stats.Visited)
	assert.Equal(t, uint64(250), got.StoreSize)
	assert.GreaterOrEqual(t, got.UptimeSeconds, 0.0)
}

func TestHandleStatusRejectsPost(t *testing.T) {
	s := New(Config{}, newProvider(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestHealth(t *testing.T) {
	s := New(Config{}, newProvider(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	p := newProvider()
	s := New(Config{}, p, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	scrape := func() string {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(b)
	}

	body := scrape()
	assert.Contains(t, body, "regsort_search_visited_total 42")
	assert.Contains(t, body, "regsort_search_open 17")
	assert.Contains(t, body, "regsort_search_store_entries 250")
	assert.Contains(t, body, `regsort_search_outcome{outcome="searching"} 1`)
	assert.Contains(t, body, `regsort_search_outcome{outcome="exhausted"} 0`)

	snap := p.Snapshot()
	snap.Outcome = search.SolutionFound
	snap.BestLength = 11
	snap.Stats.Solutions = 1
	p.set(snap)

	body = scrape()
	assert.Contains(t, body, `regsort_search_outcome{outcome="solution-found"} 1`)
	assert.Contains(t, body, "regsort_search_best_length 11")
	assert.Contains(t, body, "regsort_search_solutions_total 1")
}

func TestCollectorCount(t *testing.T) {
	c := newCollector(newProvider())
	// 9 counters, 7 gauges and one outcome series per driver state.
	assert.Equal(t, 9+7+5, testutil.CollectAndCount(c))
}

func TestStartStopsOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"}, newProvider(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
	assert.NoError(t, s.Stop())
}

func TestStopBeforeStart(t *testing.T) {
	s := New(Config{}, newProvider(), nil)
	assert.NoError(t, s.Stop())
}
