package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/modules/settings"

	_ "modernc.org/sqlite"
)

func newTestRouter(t *testing.T) (chi.Router, *settings.Repository) {
	t.Helper()
	log := zerolog.Nop()

	catalogDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { catalogDB.Close() })
	_, err = catalogDB.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	repo := settings.NewRepository(catalogDB, log)
	router := chi.NewRouter()
	NewHandler(repo, log).RegisterRoutes(router)
	return router, repo
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleUpdateAndGet(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "PUT", "/api/settings/engine_generations",
		`{"value":"150","description":"search depth"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "150", updated["engine_generations"])

	w = doJSON(t, router, "GET", "/api/settings/engine_generations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "150", got["engine_generations"])
}

func TestHandleUpdateRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "PUT", "/api/settings/foo", `{"value":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetAll(t *testing.T) {
	router, repo := newTestRouter(t)
	require.NoError(t, repo.Set("a", "1", nil))
	require.NoError(t, repo.Set("b", "2", nil))

	w := doJSON(t, router, "GET", "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	var all map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)
}

func TestHandleGetMissingKey(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "GET", "/api/settings/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDelete(t *testing.T) {
	router, repo := newTestRouter(t)
	require.NoError(t, repo.Set("drawfeed_api_key", "secret", nil))

	w := doJSON(t, router, "DELETE", "/api/settings/drawfeed_api_key", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", "/api/settings/drawfeed_api_key", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting again is a no-op, not an error.
	w = doJSON(t, router, "DELETE", "/api/settings/drawfeed_api_key", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
