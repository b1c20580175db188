package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/cache"
)

const defaultHistoryRetention = 30 * 24 * time.Hour

// CacheCleanupJob evicts expired engine cache entries and prunes old
// job history rows. Both live in cache.db, which is rebuildable, so
// the job is safe to run at any time.
type CacheCleanupJob struct {
	log       zerolog.Logger
	cache     *cache.Cache
	history   *History
	retention time.Duration
}

// CacheCleanupConfig holds configuration for the cache cleanup job.
type CacheCleanupConfig struct {
	Log       zerolog.Logger
	Cache     *cache.Cache
	History   *History
	Retention time.Duration
}

// NewCacheCleanupJob creates a new cache cleanup job.
func NewCacheCleanupJob(cfg CacheCleanupConfig) *CacheCleanupJob {
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultHistoryRetention
	}
	return &CacheCleanupJob{
		log:       cfg.Log.With().Str("job", "cache_cleanup").Logger(),
		cache:     cfg.Cache,
		history:   cfg.History,
		retention: retention,
	}
}

// Name returns the job name.
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Run removes expired cache entries and stale job history.
func (j *CacheCleanupJob) Run() error {
	evicted, err := j.cache.DeleteExpired()
	if err != nil {
		return fmt.Errorf("deleting expired cache entries: %w", err)
	}

	var pruned int64
	if j.history != nil {
		pruned, err = j.history.Prune(j.retention)
		if err != nil {
			// The cache sweep already ran; stale history rows can wait.
			j.log.Error().Err(err).Msg("Failed to prune job history")
		}
	}

	j.log.Info().
		Int64("evicted", evicted).
		Int64("history_pruned", pruned).
		Msg("Cache cleanup completed")

	return nil
}
