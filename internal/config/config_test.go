package config

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/modules/settings"

	_ "modernc.org/sqlite"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DRAWGEN_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 120, cfg.Engine.PopulationSize)
	assert.Equal(t, 80, cfg.Engine.Generations)
	assert.InDelta(t, 20.0, cfg.Engine.DecayConstant, 1e-9)
	assert.Equal(t, 30, cfg.Engine.MinHistoryDraws)
	assert.Equal(t, 15*time.Minute, cfg.Engine.CacheTTL)
	assert.Equal(t, 14, cfg.Backup.Retention)
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	t.Setenv("DRAWGEN_DATA_DIR", t.TempDir())
	t.Setenv("SCHEDULE_BACKUP", "whenever convenient")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULE_BACKUP")
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("DRAWGEN_DATA_DIR", t.TempDir())
	t.Setenv("DRAWGEN_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}

func TestUpdateFromSettings(t *testing.T) {
	t.Setenv("DRAWGEN_DATA_DIR", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	repo := settings.NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.Set("drawfeed_api_key", "sk-stored", nil))
	require.NoError(t, repo.SetInt("engine_population_size", 200))
	require.NoError(t, repo.SetFloat("engine_mutation_rate", 0.25))
	// Out-of-range stored values are ignored, not applied.
	require.NoError(t, repo.SetFloat("engine_elite_percent", 1.5))

	require.NoError(t, cfg.UpdateFromSettings(repo))

	assert.Equal(t, "sk-stored", cfg.Feed.APIKey)
	assert.Equal(t, 200, cfg.Engine.PopulationSize)
	assert.InDelta(t, 0.25, cfg.Engine.MutationRate, 1e-9)
	assert.InDelta(t, 0.10, cfg.Engine.ElitePercent, 1e-9)
}
