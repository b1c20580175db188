package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/lotteries"

	_ "modernc.org/sqlite"
)

// stubFeed serves canned draws, honoring the sinceContest cursor the
// way the real feed client does.
type stubFeed struct {
	draws []domain.Draw
	err   error
}

func (f *stubFeed) FetchDraws(_ context.Context, _ string, sinceContest int64) ([]domain.Draw, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Draw
	for _, d := range f.draws {
		if d.ContestID > sinceContest {
			out = append(out, d)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T, source domain.DrawSource) (chi.Router, *lotteries.Repository, *draws.Repository) {
	t.Helper()
	log := zerolog.Nop()

	catalogDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { catalogDB.Close() })
	_, err = catalogDB.Exec(`
		CREATE TABLE lotteries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			pool_size INTEGER NOT NULL,
			pick INTEGER NOT NULL,
			draw_days TEXT NOT NULL DEFAULT '',
			ticket_price TEXT NOT NULL DEFAULT '0',
			active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	historyDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { historyDB.Close() })
	_, err = historyDB.Exec(`
		CREATE TABLE draws (
			lottery_id TEXT NOT NULL,
			contest_id INTEGER NOT NULL,
			draw_date TEXT NOT NULL,
			numbers TEXT NOT NULL,
			prize_pool TEXT NOT NULL DEFAULT '0',
			jackpot_winners INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (lottery_id, contest_id)
		)
	`)
	require.NoError(t, err)

	catalog := lotteries.NewRepository(catalogDB, log)
	history := draws.NewRepository(historyDB, log)
	service := draws.NewService(history, source, nil, nil, nil, log)

	router := chi.NewRouter()
	NewHandler(service, catalog, log).RegisterRoutes(router)
	return router, catalog, history
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

func seedMegaSena(t *testing.T, catalog *lotteries.Repository) {
	t.Helper()
	require.NoError(t, catalog.Upsert(lotteries.Lottery{
		ID: "megasena", Name: "Mega-Sena", PoolSize: 60, Pick: 6, Active: true,
	}))
}

func TestHandleSubmitAndList(t *testing.T) {
	router, catalog, _ := newTestRouter(t, nil)
	seedMegaSena(t, catalog)

	w := doJSON(t, router, "POST", "/api/lotteries/megasena/draws",
		`{"contest_id":1,"date":"2026-01-03","numbers":[10,5,23,41,33,60],"prize_pool":"1000000.50"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "megasena", created["lottery_id"])
	assert.Equal(t, float64(1), created["contest_id"])

	w = doJSON(t, router, "GET", "/api/lotteries/megasena/draws", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []domain.Draw
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	// Numbers come back normalized to ascending order.
	assert.Equal(t, []int{5, 10, 23, 33, 41, 60}, list[0].Numbers)
	assert.True(t, list[0].PrizePool.Equal(decimal.RequireFromString("1000000.50")))
	assert.Equal(t, "2026-01-03", list[0].Date.Format("2006-01-02"))
}

func TestHandleSubmitDuplicate(t *testing.T) {
	router, catalog, _ := newTestRouter(t, nil)
	seedMegaSena(t, catalog)

	body := `{"contest_id":7,"numbers":[1,2,3,4,5,6]}`
	w := doJSON(t, router, "POST", "/api/lotteries/megasena/draws", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, "POST", "/api/lotteries/megasena/draws", body)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestHandleSubmitValidation(t *testing.T) {
	router, catalog, _ := newTestRouter(t, nil)
	seedMegaSena(t, catalog)

	tests := []struct {
		name string
		body string
	}{
		{"wrong number count", `{"contest_id":1,"numbers":[1,2,3]}`},
		{"number outside pool", `{"contest_id":1,"numbers":[1,2,3,4,5,61]}`},
		{"duplicate number", `{"contest_id":1,"numbers":[1,2,3,4,5,5]}`},
		{"zero contest id", `{"contest_id":0,"numbers":[1,2,3,4,5,6]}`},
		{"bad date", `{"contest_id":1,"date":"03/01/2026","numbers":[1,2,3,4,5,6]}`},
		{"bad prize pool", `{"contest_id":1,"numbers":[1,2,3,4,5,6],"prize_pool":"lots"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/lotteries/megasena/draws", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestHandleListLimit(t *testing.T) {
	router, catalog, history := newTestRouter(t, nil)
	seedMegaSena(t, catalog)
	for contest := 1; contest <= 3; contest++ {
		require.NoError(t, history.Insert(domain.Draw{
			LotteryID: "megasena",
			ContestID: int64(contest),
			Numbers:   []int{1, 2, 3, 4, 5, 6},
		}))
	}

	w := doJSON(t, router, "GET", "/api/lotteries/megasena/draws?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []domain.Draw
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	// Newest first.
	assert.Equal(t, int64(3), list[0].ContestID)
	assert.Equal(t, int64(2), list[1].ContestID)

	w = doJSON(t, router, "GET", "/api/lotteries/megasena/draws?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListUnknownLottery(t *testing.T) {
	router, _, _ := newTestRouter(t, nil)

	w := doJSON(t, router, "GET", "/api/lotteries/nope/draws", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSyncNoFeed(t *testing.T) {
	router, catalog, _ := newTestRouter(t, nil)
	seedMegaSena(t, catalog)

	w := doJSON(t, router, "POST", "/api/lotteries/megasena/draws/sync", "")
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
}

func TestHandleSync(t *testing.T) {
	feed := &stubFeed{draws: []domain.Draw{
		{ContestID: 1, Numbers: []int{1, 2, 3, 4, 5, 6}},
		{ContestID: 2, Numbers: []int{7, 8, 9, 10, 11, 12}},
	}}
	router, catalog, _ := newTestRouter(t, feed)
	seedMegaSena(t, catalog)

	w := doJSON(t, router, "POST", "/api/lotteries/megasena/draws/sync", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["synced"])

	// A second sync starts from the stored cursor and finds nothing new.
	w = doJSON(t, router, "POST", "/api/lotteries/megasena/draws/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["synced"])
}
