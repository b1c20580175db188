package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/batches"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/engine"
	"github.com/lottokit/drawgen/internal/modules/lotteries"

	_ "modernc.org/sqlite"
)

type testEnv struct {
	router  chi.Router
	catalog *lotteries.Repository
	history *draws.Repository
	ledger  *batches.Repository
}

func openTestDB(t *testing.T, ddl string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	catalogDB := openTestDB(t, `
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
	historyDB := openTestDB(t, `
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
	resultsDB := openTestDB(t, `
		CREATE TABLE batches (
			id TEXT PRIMARY KEY,
			lottery_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			params TEXT NOT NULL,
			games TEXT NOT NULL,
			scores TEXT NOT NULL,
			diversity_reduced INTEGER NOT NULL DEFAULT 0,
			structural_only INTEGER NOT NULL DEFAULT 0,
			seed INTEGER NOT NULL,
			seed_provided INTEGER NOT NULL DEFAULT 0,
			draw_count INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)
	`)

	env := &testEnv{
		catalog: lotteries.NewRepository(catalogDB, log),
		history: draws.NewRepository(historyDB, log),
		ledger:  batches.NewRepository(resultsDB, log),
	}

	cfg := engine.DefaultServiceConfig()
	cfg.Params.PopulationSize = 30
	cfg.Params.Generations = 8
	cfg.Workers = 2
	eng := engine.NewService(cfg, nil, log)

	router := chi.NewRouter()
	NewHandler(eng, env.catalog, env.history, env.ledger, log).RegisterRoutes(router)
	env.router = router
	return env
}

func (e *testEnv) seedLottery(t *testing.T, id string, poolSize, pick int) {
	t.Helper()
	require.NoError(t, e.catalog.Upsert(lotteries.Lottery{
		ID:       id,
		Name:     strings.ToUpper(id),
		PoolSize: poolSize,
		Pick:     pick,
		Active:   true,
	}))
}

func (e *testEnv) postGenerate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) engine.Result {
	t.Helper()
	var result engine.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestHandleGenerateForLottery(t *testing.T) {
	env := newTestEnv(t)
	env.seedLottery(t, "megasena", 60, 6)

	w := env.postGenerate(t, `{
		"lottery_id": "megasena",
		"num_games": 3,
		"params": {"seed": 7}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeResult(t, w)
	assert.NotEmpty(t, result.BatchID)
	require.Len(t, result.Games, 3)
	for _, game := range result.Games {
		require.NoError(t, game.Validate(60, 6))
	}
	assert.Equal(t, domain.StrategyStructural, result.Strategy)
	assert.True(t, result.SeedProvided)
	assert.Equal(t, 0, result.DrawCount)

	// The run landed on the ledger.
	recorded, err := env.ledger.Get(result.BatchID)
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Equal(t, "megasena", recorded.LotteryID)
	assert.Equal(t, result.Games, recorded.Games)
}

func TestHandleGenerateUnknownLottery(t *testing.T) {
	env := newTestEnv(t)

	w := env.postGenerate(t, `{"lottery_id": "quina", "num_games": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGenerateAdHocGeometry(t *testing.T) {
	env := newTestEnv(t)

	w := env.postGenerate(t, `{
		"pool_size": 25,
		"pick": 5,
		"num_games": 2,
		"params": {"seed": 11}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeResult(t, w)
	require.Len(t, result.Games, 2)
	for _, game := range result.Games {
		require.NoError(t, game.Validate(25, 5))
	}

	recorded, err := env.ledger.Get(result.BatchID)
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Empty(t, recorded.LotteryID)
}

func TestHandleGenerateUsesCatalogHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seedLottery(t, "megasena", 60, 6)
	for contest := 1; contest <= 40; contest++ {
		require.NoError(t, env.history.Insert(domain.Draw{
			LotteryID: "megasena",
			ContestID: int64(contest),
			Numbers:   []int{2, 9, 17, 28, 41, 53},
		}))
	}

	w := env.postGenerate(t, `{
		"lottery_id": "megasena",
		"num_games": 2,
		"strategy": "hot",
		"params": {"seed": 3}
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeResult(t, w)
	assert.Equal(t, 40, result.DrawCount)
	assert.False(t, result.StructuralOnly)
	assert.Equal(t, domain.StrategyHot, result.Strategy)
}

func TestHandleGenerateInlineDraws(t *testing.T) {
	env := newTestEnv(t)

	var drawsJSON []string
	for i := 0; i < 35; i++ {
		drawsJSON = append(drawsJSON, "[3, 8, 12, 15, 19]")
	}
	body := fmt.Sprintf(`{
		"pool_size": 20,
		"pick": 5,
		"num_games": 2,
		"strategy": "hot",
		"params": {"seed": 5},
		"draws": [%s]
	}`, strings.Join(drawsJSON, ","))

	w := env.postGenerate(t, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeResult(t, w)
	assert.Equal(t, 35, result.DrawCount)
	assert.False(t, result.StructuralOnly)
}

func TestHandleGenerateValidationError(t *testing.T) {
	env := newTestEnv(t)

	w := env.postGenerate(t, `{"pool_size": 10, "pick": 20, "num_games": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid parameter")
}

func TestHandleGenerateInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.postGenerate(t, `{"pool_size": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStrategies(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/strategies", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []engine.StrategyInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 5)

	names := make([]domain.Strategy, len(list))
	for i, info := range list {
		names[i] = info.Name
	}
	assert.ElementsMatch(t, names, []domain.Strategy{
		domain.StrategyStructural,
		domain.StrategyHot,
		domain.StrategyCold,
		domain.StrategyMixed,
		domain.StrategyCorrelated,
	})
}
