package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/reliability"
)

const defaultBackupTimeout = 10 * time.Minute

// BackupJob archives the databases, uploads the archive to the
// configured object store and applies the retention policy. When no
// store is configured the job is a no-op, so the schedule can stay
// registered regardless of deployment.
type BackupJob struct {
	log           zerolog.Logger
	backups       *reliability.S3BackupService
	retentionDays int
	timeout       time.Duration
}

// BackupConfig holds configuration for the backup job.
type BackupConfig struct {
	Log           zerolog.Logger
	Backups       *reliability.S3BackupService
	RetentionDays int
	Timeout       time.Duration
}

// NewBackupJob creates a new backup job.
func NewBackupJob(cfg BackupConfig) *BackupJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBackupTimeout
	}
	return &BackupJob{
		log:           cfg.Log.With().Str("job", "backup").Logger(),
		backups:       cfg.Backups,
		retentionDays: cfg.RetentionDays,
		timeout:       timeout,
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates and uploads one backup archive, then rotates old ones.
func (j *BackupJob) Run() error {
	if j.backups == nil {
		j.log.Debug().Msg("Remote backups not configured, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.backups.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// The archive is already uploaded; rotation can wait for the
		// next run.
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}
