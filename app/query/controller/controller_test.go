package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/canopy-network/nodedist/app/query/types"
	"github.com/canopy-network/nodedist/pkg/analysis"
	"github.com/canopy-network/nodedist/pkg/config"
	"github.com/canopy-network/nodedist/pkg/db/models/reports"
	"github.com/canopy-network/nodedist/pkg/inventory"
	"github.com/canopy-network/nodedist/pkg/redis"
	"github.com/canopy-network/nodedist/pkg/report"
	"github.com/canopy-network/nodedist/pkg/tracking"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeHistory struct {
	pingErr   error
	provider  string
	continent string
	limit     int
}

func (f *fakeHistory) ProviderHistory(_ context.Context, chain, provider string, limit int) ([]reports.ProviderDistribution, error) {
	f.provider, f.limit = provider, limit
	return []reports.ProviderDistribution{{Chain: chain, Provider: provider, TotalNodes: 7}}, nil
}

func (f *fakeHistory) GeoHistory(_ context.Context, chain, continent string, limit int) ([]reports.GeoDistribution, error) {
	f.continent, f.limit = continent, limit
	return []reports.GeoDistribution{{Chain: chain, Continent: "Europe", Country: "Germany"}}, nil
}

func (f *fakeHistory) Ping(context.Context) error { return f.pingErr }

func (f *fakeHistory) Close() error { return nil }

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	r := analysis.NewChainReport("aptos", analysis.Generic{}, &inventory.Document{}, time.Now())
	r.TotalNodes = 2
	r.InvalidIPs = append(r.InvalidIPs, "10.0.0.1")

	tracked := tracking.NewSet()
	p := tracking.NewProvider("AWS", "Amazon", "aptos", time.Now())
	p.RecordNode("3.3.3.3", inventory.NodeRecord{Address: "a"}, tracking.Site{City: "Ashburn"}, "")
	tracked.AddProvider(p)

	_, err := report.NewWriter(dir, zaptest.NewLogger(t)).WriteAll(context.Background(), r, tracked)
	require.NoError(t, err)
}

func newTestRouter(t *testing.T, history *fakeHistory) http.Handler {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir)

	app := &types.App{
		Config:  config.Default(),
		Reports: report.NewReader(dir),
		Logger:  zaptest.NewLogger(t),
	}
	if history != nil {
		app.History = history
	}
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)
	return WithCORS(router)
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestReportRoutes(t *testing.T) {
	h := newTestRouter(t, nil)

	rec, body := get(t, h, "/chains")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"aptos"}, body["chains"])

	rec, body = get(t, h, "/chains/aptos/distribution")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total_nodes"])
	assert.EqualValues(t, 1, body["invalid_ips"])

	rec, body = get(t, h, "/chains/aptos/diagnostics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"10.0.0.1"}, body["invalid_ips"])

	rec, _ = get(t, h, "/chains/aptos/providers/Amazon")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = get(t, h, "/chains/aptos/countries/Germany")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, h, "/chains/solana/distribution")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestRouter(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = get(t, newTestRouter(t, &fakeHistory{pingErr: errors.New("down")}), "/health")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "errored", body["status"])
}

func TestHistoryDisabled(t *testing.T) {
	h := newTestRouter(t, nil)
	for _, path := range []string{"/chains/aptos/history/providers?provider=Amazon", "/chains/aptos/history/geo", "/runs"} {
		rec, _ := get(t, h, path)
		assert.Equal(t, http.StatusNotImplemented, rec.Code, path)
	}
}

func TestProviderHistory(t *testing.T) {
	history := &fakeHistory{}
	h := newTestRouter(t, history)

	rec, body := get(t, h, "/chains/aptos/history/providers?provider=Amazon&limit=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Amazon", history.provider)
	assert.Equal(t, maxLimit, history.limit)
	assert.Len(t, body["data"], 1)

	rec, _ = get(t, h, "/chains/aptos/history/providers")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, "/chains/aptos/history/providers?provider=Amazon&limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeoHistory(t *testing.T) {
	history := &fakeHistory{}
	h := newTestRouter(t, history)

	rec, _ := get(t, h, "/chains/aptos/history/geo?continent=Europe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Europe", history.continent)
	assert.Equal(t, defaultLimit, history.limit)
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/chains", nil)
	req.Header.Set("Origin", "https://dash.example")
	newTestRouter(t, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestRuns needs a Redis server; set REDIS_TEST_ADDR to run it.
func TestRuns(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	logger := zaptest.NewLogger(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx := context.Background()
	require.NoError(t, rdb.Del(ctx, redis.RunStream).Err())

	client := redis.Wrap(rdb, logger, 100)
	for _, chain := range []string{"aptos", "flow", "aptos"} {
		values, err := redis.RunEvent{ID: chain + "-run", Chain: chain, Nodes: 3, FinishedAt: time.Now()}.Values()
		require.NoError(t, err)
		require.NotEmpty(t, client.XAdd(ctx, redis.RunStream, values))
	}

	dir := t.TempDir()
	writeFixture(t, dir)
	app := &types.App{Config: config.Default(), Reports: report.NewReader(dir), Redis: client, Logger: logger}
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)

	rec, body := get(t, router, "/runs?chain=aptos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 2)
}
