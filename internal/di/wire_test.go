package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Port:    8080,
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
}

func TestWireBuildsContainer(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.CatalogDB)
	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.ResultsDB)
	assert.NotNil(t, container.CacheDB)

	assert.NotNil(t, container.LotteryRepo)
	assert.NotNil(t, container.SettingsRepo)
	assert.NotNil(t, container.DrawRepo)
	assert.NotNil(t, container.BatchRepo)

	assert.NotNil(t, container.Cache)
	assert.NotNil(t, container.StatsProvider)
	assert.NotNil(t, container.CorrProvider)
	assert.NotNil(t, container.Engine)
	assert.NotNil(t, container.DrawService)
	assert.NotNil(t, container.Seeder)
	assert.NotNil(t, container.BackupService)
	assert.NotNil(t, container.Maintenance)
	assert.NotNil(t, container.Scheduler)
	assert.NotNil(t, container.JobHistory)

	// No feed and no backup store configured, so neither optional piece
	// nor their jobs exist.
	assert.Nil(t, container.FeedClient)
	assert.Nil(t, container.FeedSubscriber)
	assert.Nil(t, container.S3BackupService)
	assert.NotContains(t, container.Jobs, "draw_sync")
	assert.NotContains(t, container.Jobs, "backup")

	assert.Contains(t, container.Jobs, "stats_refresh")
	assert.Contains(t, container.Jobs, "cache_cleanup")
	assert.Contains(t, container.Jobs, "maintenance")
}

func TestWireRegistersFeedJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed.BaseURL = "https://feed.example.com"
	cfg.Feed.WSURL = "wss://feed.example.com/ws"

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.FeedClient)
	assert.NotNil(t, container.FeedSubscriber)
	assert.Contains(t, container.Jobs, "draw_sync")
}

func TestWireSchemasApplied(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	// The repositories only work if Migrate created their tables.
	count, err := container.LotteryRepo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	entries, err := container.JobHistory.Recent("", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWireRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.StatsRefreshSchedule = "not a schedule"

	_, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stats_refresh")
}