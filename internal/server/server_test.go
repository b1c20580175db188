package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/di"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir: t.TempDir(),
		Port:    8080,
		DevMode: true,
		Engine: config.EngineConfig{
			PopulationSize: 30,
			Generations:    10,
			MutationRate:   0.1,
			ElitePercent:   0.1,
			DecayConstant:  20,
			HotFraction:    0.3,
			ColdFraction:   0.3,
		},
		DrawSyncSchedule:     "0 */30 * * * *",
		StatsRefreshSchedule: "0 5 * * * *",
		CacheCleanupSchedule: "0 */10 * * * *",
		BackupSchedule:       "0 30 3 * * *",
		MaintenanceSchedule:  "0 0 */6 * * *",
	}

	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(Config{
		Log:       zerolog.Nop(),
		Config:    cfg,
		Container: container,
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "drawgen", response["service"])
}

func TestModuleRoutesMounted(t *testing.T) {
	s := newTestServer(t)

	// Spot checks, one route per module.
	routes := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/lotteries", http.StatusOK},
		{http.MethodGet, "/api/batches", http.StatusOK},
		{http.MethodGet, "/api/settings", http.StatusOK},
		{http.MethodGet, "/api/strategies", http.StatusOK},
		{http.MethodGet, "/api/system/status", http.StatusOK},
		{http.MethodGet, "/api/system/jobs", http.StatusOK},
		{http.MethodGet, "/api/lotteries/nope/draws", http.StatusNotFound},
		{http.MethodGet, "/api/lotteries/nope/stats", http.StatusNotFound},
	}

	for _, tt := range routes {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestTriggerUnregisteredJobViaRouter(t *testing.T) {
	s := newTestServer(t)

	// No feed configured, so draw_sync is not registered.
	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/draw_sync", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "error", response["status"])
}
