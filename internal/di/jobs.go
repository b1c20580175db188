package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/scheduler"
)

// RegisterJobs builds the scheduler, wires the background jobs and
// registers their cron schedules. The scheduler is not started here;
// main starts it once the server is up.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.JobHistory = scheduler.NewHistory(container.CacheDB.Conn(), log)
	container.Scheduler = scheduler.New(container.JobHistory, log)
	container.Jobs = make(map[string]scheduler.Job)

	register := func(schedule string, job scheduler.Job) error {
		if err := container.Scheduler.AddJob(schedule, job); err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.Name(), err)
		}
		container.Jobs[job.Name()] = job
		return nil
	}

	// Draw sync only makes sense with a feed to pull from.
	if container.FeedClient != nil {
		syncJob := scheduler.NewDrawSyncJob(scheduler.DrawSyncConfig{
			Log:     log,
			Catalog: container.LotteryRepo,
			Draws:   container.DrawService,
		})
		if err := register(cfg.DrawSyncSchedule, syncJob); err != nil {
			return err
		}
	}

	statsJob := scheduler.NewStatsRefreshJob(scheduler.StatsRefreshConfig{
		Log:         log,
		Catalog:     container.LotteryRepo,
		History:     container.DrawRepo,
		Stats:       container.StatsProvider,
		Correlation: container.CorrProvider,
	})
	if err := register(cfg.StatsRefreshSchedule, statsJob); err != nil {
		return err
	}

	cleanupJob := scheduler.NewCacheCleanupJob(scheduler.CacheCleanupConfig{
		Log:     log,
		Cache:   container.Cache,
		History: container.JobHistory,
	})
	if err := register(cfg.CacheCleanupSchedule, cleanupJob); err != nil {
		return err
	}

	maintenanceJob := scheduler.NewMaintenanceJob(scheduler.MaintenanceConfig{
		Log:     log,
		Service: container.Maintenance,
	})
	if err := register(cfg.MaintenanceSchedule, maintenanceJob); err != nil {
		return err
	}

	if container.S3BackupService != nil {
		backupJob := scheduler.NewBackupJob(scheduler.BackupConfig{
			Log:           log,
			Backups:       container.S3BackupService,
			RetentionDays: cfg.Backup.Retention,
		})
		if err := register(cfg.BackupSchedule, backupJob); err != nil {
			return err
		}
	}

	log.Info().Int("jobs", len(container.Jobs)).Msg("Scheduler jobs registered")
	return nil
}
