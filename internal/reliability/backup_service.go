// Package reliability provides database backup, cloud archival and
// maintenance services.
package reliability

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/database"
)

// BackupService snapshots the sqlite databases to local files. Cloud
// archival builds on top of it (S3BackupService).
type BackupService struct {
	databases map[string]*database.DB
	backupDir string
	log       zerolog.Logger
}

// NewBackupService creates a new local backup service over the open
// databases, keyed by name (catalog, history, results, cache).
func NewBackupService(databases map[string]*database.DB, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		backupDir: backupDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// DatabaseNames returns the managed database names, sorted for stable
// iteration. includeCache controls whether the rebuildable cache
// database is part of the set.
func (s *BackupService) DatabaseNames(includeCache bool) []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		if !includeCache && name == "cache" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackupDatabase snapshots one database to destPath using VACUUM INTO,
// which produces a consistent copy without blocking writers.
func (s *BackupService) BackupDatabase(name, destPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("unknown database %q", name)
	}

	// VACUUM INTO refuses to overwrite.
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale backup %s: %w", destPath, err)
	}

	if _, err := db.Conn().Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", name, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("snapshot of %s missing after vacuum: %w", name, err)
	}

	s.log.Debug().
		Str("database", name).
		Str("path", destPath).
		Int64("size_bytes", info.Size()).
		Msg("Database snapshot written")
	return nil
}

// BackupAll snapshots every managed database into a timestamped
// directory under the backup dir and returns that directory.
func (s *BackupService) BackupAll(dirName string, includeCache bool) (string, error) {
	dir := filepath.Join(s.backupDir, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, name := range s.DatabaseNames(includeCache) {
		if err := s.BackupDatabase(name, filepath.Join(dir, name+".db")); err != nil {
			return "", err
		}
	}
	return dir, nil
}
