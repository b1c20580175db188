package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
)

const defaultSyncTimeout = 5 * time.Minute

// DrawSyncJob pulls new draw results from the feed for every active
// lottery. One lottery failing must not starve the rest, so per-lottery
// errors are logged and counted; the run itself fails only when the
// catalog cannot be read or every lottery fails.
type DrawSyncJob struct {
	log     zerolog.Logger
	catalog *lotteries.Repository
	draws   *draws.Service
	timeout time.Duration
}

// DrawSyncConfig holds configuration for the draw sync job.
type DrawSyncConfig struct {
	Log     zerolog.Logger
	Catalog *lotteries.Repository
	Draws   *draws.Service
	Timeout time.Duration
}

// NewDrawSyncJob creates a new draw sync job.
func NewDrawSyncJob(cfg DrawSyncConfig) *DrawSyncJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	return &DrawSyncJob{
		log:     cfg.Log.With().Str("job", "draw_sync").Logger(),
		catalog: cfg.Catalog,
		draws:   cfg.Draws,
		timeout: timeout,
	}
}

// Name returns the job name.
func (j *DrawSyncJob) Name() string {
	return "draw_sync"
}

// Run syncs every active lottery against the feed.
func (j *DrawSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	active, err := j.catalog.GetActive()
	if err != nil {
		return fmt.Errorf("listing active lotteries: %w", err)
	}
	if len(active) == 0 {
		j.log.Debug().Msg("No active lotteries to sync")
		return nil
	}

	var newDraws, failed int
	for _, lot := range active {
		n, err := j.draws.Sync(ctx, lot.ID, lot.PoolSize, lot.Pick)
		if err != nil {
			failed++
			j.log.Error().Err(err).Str("lottery_id", lot.ID).Msg("Draw sync failed")
			continue
		}
		newDraws += n
	}

	j.log.Info().
		Int("lotteries", len(active)).
		Int("new_draws", newDraws).
		Int("failed", failed).
		Msg("Draw sync completed")

	if failed == len(active) {
		return fmt.Errorf("draw sync failed for all %d active lotteries", failed)
	}
	return nil
}
