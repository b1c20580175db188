package reliability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/lottokit/drawgen/internal/database"
)

// Free-space thresholds for the data directory.
const (
	diskCriticalBytes = 500 * 1024 * 1024
	diskLowBytes      = 5 * 1024 * 1024 * 1024
	diskWarnBytes     = 10 * 1024 * 1024 * 1024
)

// Vacuum thresholds. VACUUM rewrites the whole file, so it only runs
// when enough pages sit on the freelist to be worth reclaiming.
const (
	vacuumMinPages  = 1000
	vacuumFreeRatio = 0.2
)

// MaintenanceService runs the recurring database upkeep: integrity
// checks, WAL checkpoints and a disk-space watchdog.
type MaintenanceService struct {
	databases map[string]*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceService creates a new maintenance service.
func NewMaintenanceService(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("service", "maintenance").Logger(),
	}
}

// Run executes one maintenance pass. Corruption and critically low
// disk space are fatal; checkpoint and vacuum failures only log.
func (s *MaintenanceService) Run(ctx context.Context) error {
	s.log.Info().Msg("Starting maintenance pass")
	startTime := time.Now()

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := s.databases[name]

		// Corruption cannot be auto-recovered; stop and surface it.
		if err := db.HealthCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Not fatal; the next checkpoint usually succeeds.
			s.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}

		s.vacuumIfFragmented(db, name)
	}

	if err := s.checkDiskSpace(); err != nil {
		return err
	}

	s.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("databases", len(names)).
		Msg("Maintenance pass completed")
	return nil
}

// vacuumIfFragmented runs VACUUM when a significant share of the file
// is freelist pages. Failures are logged and skipped; the database
// stays usable either way.
func (s *MaintenanceService) vacuumIfFragmented(db *database.DB, name string) {
	stats, err := db.GetStats()
	if err != nil {
		s.log.Warn().Err(err).Str("database", name).Msg("Failed to read database stats")
		return
	}
	if stats.PageCount < vacuumMinPages {
		return
	}

	freeRatio := float64(stats.FreelistCount) / float64(stats.PageCount)
	if freeRatio < vacuumFreeRatio {
		return
	}

	sizeBefore := stats.SizeBytes
	if err := db.Vacuum(); err != nil {
		s.log.Error().Err(err).Str("database", name).Msg("VACUUM failed")
		return
	}

	var sizeAfter int64
	if after, err := db.GetStats(); err == nil {
		sizeAfter = after.SizeBytes
	}
	s.log.Info().
		Str("database", name).
		Float64("free_ratio", freeRatio).
		Int64("size_before_bytes", sizeBefore).
		Int64("size_after_bytes", sizeAfter).
		Msg("VACUUM completed")
}

// checkDiskSpace verifies the data directory's filesystem has room
// left. Critically low space is returned as an error so the caller can
// halt ingestion-side work.
func (s *MaintenanceService) checkDiskSpace() error {
	usage, err := disk.Usage(s.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	s.log.Debug().
		Uint64("free_bytes", usage.Free).
		Float64("used_percent", usage.UsedPercent).
		Msg("Disk space check")

	switch {
	case usage.Free < diskCriticalBytes:
		return fmt.Errorf("critically low disk space: %d MB free", usage.Free/1024/1024)
	case usage.Free < diskLowBytes:
		s.log.Error().Uint64("free_bytes", usage.Free).Msg("Low disk space, consider cleanup")
	case usage.Free < diskWarnBytes:
		s.log.Warn().Uint64("free_bytes", usage.Free).Msg("Disk space running low")
	}
	return nil
}
