package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
	"github.com/lottokit/drawgen/internal/modules/stats"
)

// StatsRefreshJob rebuilds the statistics snapshot and correlation
// matrix for every active lottery, so the first request after new
// draws land does not pay the build cost. A failed rebuild only logs;
// the providers fall back to building lazily on demand.
type StatsRefreshJob struct {
	log     zerolog.Logger
	catalog *lotteries.Repository
	history *draws.Repository
	stats   *stats.Provider
	corr    *correlation.Provider
}

// StatsRefreshConfig holds configuration for the stats refresh job.
type StatsRefreshConfig struct {
	Log         zerolog.Logger
	Catalog     *lotteries.Repository
	History     *draws.Repository
	Stats       *stats.Provider
	Correlation *correlation.Provider
}

// NewStatsRefreshJob creates a new stats refresh job.
func NewStatsRefreshJob(cfg StatsRefreshConfig) *StatsRefreshJob {
	return &StatsRefreshJob{
		log:     cfg.Log.With().Str("job", "stats_refresh").Logger(),
		catalog: cfg.Catalog,
		history: cfg.History,
		stats:   cfg.Stats,
		corr:    cfg.Correlation,
	}
}

// Name returns the job name.
func (j *StatsRefreshJob) Name() string {
	return "stats_refresh"
}

// Run refreshes the derived views of every active lottery.
func (j *StatsRefreshJob) Run() error {
	active, err := j.catalog.GetActive()
	if err != nil {
		return fmt.Errorf("listing active lotteries: %w", err)
	}

	var refreshed, skipped int
	for _, lot := range active {
		all, err := j.history.ListAll(lot.ID)
		if err != nil {
			j.log.Error().Err(err).Str("lottery_id", lot.ID).Msg("Failed to load draw history")
			continue
		}
		if len(all) == 0 {
			skipped++
			j.log.Debug().Str("lottery_id", lot.ID).Msg("No draw history, skipping refresh")
			continue
		}

		if _, err := j.stats.Refresh(lot.ID, lot.PoolSize, all); err != nil {
			j.log.Error().Err(err).Str("lottery_id", lot.ID).Msg("Stats refresh failed")
			continue
		}
		if _, err := j.corr.Refresh(lot.ID, lot.PoolSize, all); err != nil {
			j.log.Error().Err(err).Str("lottery_id", lot.ID).Msg("Correlation refresh failed")
			continue
		}
		refreshed++
	}

	j.log.Info().
		Int("lotteries", len(active)).
		Int("refreshed", refreshed).
		Int("skipped", skipped).
		Msg("Stats refresh completed")

	return nil
}
