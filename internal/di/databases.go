package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/database"
)

// InitializeDatabases opens the four databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. catalog.db - Lottery catalog and runtime settings
	catalogDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/catalog.db",
		Profile: database.ProfileStandard,
		Name:    "catalog",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	container.CatalogDB = catalogDB

	// 2. history.db - Draw results, append-heavy
	historyDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/history.db",
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		catalogDB.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	container.HistoryDB = historyDB

	// 3. results.db - Immutable ledger of issued batches
	resultsDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/results.db",
		Profile: database.ProfileLedger, // Maximum safety for the issued-batch ledger
		Name:    "results",
	})
	if err != nil {
		catalogDB.Close()
		historyDB.Close()
		return nil, fmt.Errorf("failed to initialize results database: %w", err)
	}
	container.ResultsDB = resultsDB

	// 4. cache.db - Memoized results and job history, fully rebuildable
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/cache.db",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		catalogDB.Close()
		historyDB.Close()
		resultsDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// Apply schemas
	for name, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
		}
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("databases", len(container.Databases())).
		Msg("Databases initialized")

	return container, nil
}
