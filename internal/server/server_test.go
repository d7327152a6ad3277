package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kube-topology/internal/config"
	"kube-topology/internal/metrics"
	"kube-topology/internal/resource"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	items []string
	err   error
	calls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Snapshot(context.Context) (*resource.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	items := resource.NewItems()
	for _, id := range f.items {
		items.Set(&resource.Item{ID: id, Kind: resource.KindPod, Metadata: resource.Metadata{UID: id, Name: id}})
	}
	return &resource.Snapshot{Items: items}, nil
}

func (f *fakeSource) set(items ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestServer(src *fakeSource, m *metrics.Registry) *Server {
	return New(src, config.ServerConfig{Addr: "127.0.0.1:0", PollInterval: time.Hour}, nil, m)
}

func TestPing(t *testing.T) {
	s := newTestServer(&fakeSource{}, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestTopologyData(t *testing.T) {
	src := &fakeSource{items: []string{"p1", "p2"}}
	s := newTestServer(src, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/topology-data", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `"p1"`)
	assert.Less(t, strings.Index(body, `"p1"`), strings.Index(body, `"p2"`))

	// served from the published snapshot
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/topology-data", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, src.calls)
}

func TestTopologyDataSourceError(t *testing.T) {
	s := newTestServer(&fakeSource{err: errors.New("unreachable")}, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/topology-data", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}

func TestRefresh(t *testing.T) {
	reg := metrics.NewRegistry()
	src := &fakeSource{items: []string{"p1"}}
	s := newTestServer(src, reg)
	ctx := context.Background()

	changed, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, uint64(1), s.Version())

	src.set("p1", "p2")
	changed, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint64(2), s.Version())

	src.fail(errors.New("boom"))
	_, err = s.Refresh(ctx)
	assert.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.SnapshotRefreshes.WithLabelValues("changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.SnapshotRefreshes.WithLabelValues("unchanged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.SnapshotRefreshes.WithLabelValues("error")))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	s := newTestServer(&fakeSource{items: []string{"p1"}}, reg)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `kube_topology_snapshot_refreshes_total{result="changed"} 1`)
}

func TestWatchTopology(t *testing.T) {
	reg := metrics.NewRegistry()
	src := &fakeSource{items: []string{"p1"}}
	s := newTestServer(src, reg)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/topology-data/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(first), `"p1"`)
	assert.NotContains(t, string(first), `"p2"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.WatchClients))

	src.set("p1", "p2")
	changed, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(second), `"p2"`)
}

func TestWatchTopologySendsEachSnapshotOnce(t *testing.T) {
	src := &fakeSource{items: []string{"p1"}}
	s := newTestServer(src, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// Nothing has been published yet, so the connect itself refreshes.
	require.Equal(t, uint64(0), s.Version())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/topology-data/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Version())

	changed, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	src.set("p1", "p2")
	changed, err = s.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(second))
	assert.Contains(t, string(second), `"p2"`)
}

func TestPublishKeepsLatest(t *testing.T) {
	ch := make(chan []byte, 1)
	publish(ch, []byte("a"))
	publish(ch, []byte("b"))
	assert.Equal(t, []byte("b"), <-ch)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestServer(&fakeSource{items: []string{"p1"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	assert.Eventually(t, func() bool { return s.Version() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
