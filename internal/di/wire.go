package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/cache"
	"github.com/lottokit/drawgen/internal/clients/drawfeed"
	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/batches"
	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/engine"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
	"github.com/lottokit/drawgen/internal/modules/settings"
	"github.com/lottokit/drawgen/internal/modules/stats"
	"github.com/lottokit/drawgen/internal/reliability"
)

// Wire initializes all dependencies and returns a fully configured
// container. Order of operations:
// 1. Open databases and apply schemas
// 2. Build repositories
// 3. Apply settings overrides to the config
// 4. Build services and feed clients
// 5. Register scheduler jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	// Step 1: Databases
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Step 2: Repositories
	container.LotteryRepo = lotteries.NewRepository(container.CatalogDB.Conn(), log)
	container.SettingsRepo = settings.NewRepository(container.CatalogDB.Conn(), log)
	container.DrawRepo = draws.NewRepository(container.HistoryDB.Conn(), log)
	container.BatchRepo = batches.NewRepository(container.ResultsDB.Conn(), log)

	// Step 3: Settings overrides. Stored settings beat env defaults for
	// credentials and engine tunables.
	if err := cfg.UpdateFromSettings(container.SettingsRepo); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to apply settings overrides: %w", err)
	}

	// Step 4: Services
	container.Cache = cache.New(container.CacheDB.Conn())
	container.Seeder = lotteries.NewSeeder(container.LotteryRepo, log)

	statsCfg := stats.Config{
		DecayConstant: cfg.Engine.DecayConstant,
		HotFraction:   cfg.Engine.HotFraction,
		ColdFraction:  cfg.Engine.ColdFraction,
	}
	corrCfg := correlation.Config{MinScore: cfg.Engine.CorrelationMinScore}

	container.StatsProvider = stats.NewProvider(stats.NewBuilder(statsCfg, log), log)
	container.CorrProvider = correlation.NewProvider(correlation.NewBuilder(corrCfg, log), log)

	container.Engine = engine.NewService(engine.ServiceConfig{
		Params: engine.Params{
			PopulationSize: cfg.Engine.PopulationSize,
			Generations:    cfg.Engine.Generations,
			MutationRate:   cfg.Engine.MutationRate,
			ElitePercent:   cfg.Engine.ElitePercent,
			TournamentSize: cfg.Engine.TournamentSize,
			MaxConsecutive: cfg.Engine.MaxConsecutive,
			RepairSamples:  cfg.Engine.RepairSamples,
		},
		Stats:           statsCfg,
		Correlation:     corrCfg,
		MinHistoryDraws: cfg.Engine.MinHistoryDraws,
		Workers:         cfg.Engine.Workers,
		CacheTTL:        cfg.Engine.CacheTTL,
	}, container.Cache, log)

	// Feed clients are optional; without a base URL the sync job is not
	// registered and draws arrive only through the import API.
	var source domain.DrawSource
	if cfg.Feed.BaseURL != "" {
		container.FeedClient = drawfeed.NewClient(cfg.Feed.BaseURL, cfg.Feed.APIKey, log)
		source = container.FeedClient
	}

	container.DrawService = draws.NewService(
		container.DrawRepo,
		source,
		container.StatsProvider,
		container.CorrProvider,
		container.Cache,
		log,
	)

	if cfg.Feed.WSURL != "" {
		container.FeedSubscriber = drawfeed.NewSubscriber(cfg.Feed.WSURL, container.ingestPushedDraw(log), log)
	}

	// Reliability services
	container.BackupService = reliability.NewBackupService(container.Databases(), cfg.DataDir+"/backups", log)
	container.Maintenance = reliability.NewMaintenanceService(container.Databases(), cfg.DataDir, log)

	if cfg.Backup.Enabled {
		s3cfg := reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKey,
			SecretAccessKey: cfg.Backup.SecretKey,
			Bucket:          cfg.Backup.Bucket,
		}
		if !s3cfg.Configured() {
			log.Warn().Msg("Remote backups enabled but credentials incomplete, skipping")
		} else {
			store, err := reliability.NewS3Client(s3cfg, log)
			if err != nil {
				container.Close()
				return nil, fmt.Errorf("failed to initialize backup store: %w", err)
			}
			container.S3BackupService = reliability.NewS3BackupService(store, container.BackupService, cfg.DataDir, log)
		}
	}

	// Step 5: Scheduler jobs
	if err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	return container, nil
}

// ingestPushedDraw returns the websocket delivery callback: resolve the
// lottery geometry from the catalog, then hand the draw to the ingest
// pipeline. Unknown lotteries are dropped with a warning.
func (c *Container) ingestPushedDraw(log zerolog.Logger) drawfeed.DrawHandler {
	return func(d domain.Draw) {
		lot, err := c.LotteryRepo.Get(d.LotteryID)
		if err != nil {
			log.Error().Err(err).Str("lottery_id", d.LotteryID).Msg("Failed to resolve lottery for pushed draw")
			return
		}
		if lot == nil {
			log.Warn().Str("lottery_id", d.LotteryID).Msg("Pushed draw for unknown lottery, dropping")
			return
		}
		if err := c.DrawService.Ingest(d, lot.PoolSize, lot.Pick); err != nil {
			log.Error().Err(err).
				Str("lottery_id", d.LotteryID).
				Int64("contest_id", d.ContestID).
				Msg("Failed to ingest pushed draw")
		}
	}
}
