package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/reliability"
)

const defaultMaintenanceTimeout = 2 * time.Minute

// MaintenanceJob runs the database integrity and disk space checks.
type MaintenanceJob struct {
	log     zerolog.Logger
	service *reliability.MaintenanceService
	timeout time.Duration
}

// MaintenanceConfig holds configuration for the maintenance job.
type MaintenanceConfig struct {
	Log     zerolog.Logger
	Service *reliability.MaintenanceService
	Timeout time.Duration
}

// NewMaintenanceJob creates a new maintenance job.
func NewMaintenanceJob(cfg MaintenanceConfig) *MaintenanceJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMaintenanceTimeout
	}
	return &MaintenanceJob{
		log:     cfg.Log.With().Str("job", "maintenance").Logger(),
		service: cfg.Service,
		timeout: timeout,
	}
}

// Name returns the job name.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes one maintenance pass.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	return j.service.Run(ctx)
}
