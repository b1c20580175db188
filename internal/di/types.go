// Package di wires the application: databases, repositories, services
// and scheduler jobs, in that order.
package di

import (
	"github.com/lottokit/drawgen/internal/cache"
	"github.com/lottokit/drawgen/internal/clients/drawfeed"
	"github.com/lottokit/drawgen/internal/database"
	"github.com/lottokit/drawgen/internal/modules/batches"
	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/engine"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
	"github.com/lottokit/drawgen/internal/modules/settings"
	"github.com/lottokit/drawgen/internal/modules/stats"
	"github.com/lottokit/drawgen/internal/reliability"
	"github.com/lottokit/drawgen/internal/scheduler"
)

// Container holds every wired dependency. Optional pieces (feed
// clients, remote backups) are nil when not configured.
type Container struct {
	// Databases
	CatalogDB *database.DB
	HistoryDB *database.DB
	ResultsDB *database.DB
	CacheDB   *database.DB

	// Repositories
	LotteryRepo  *lotteries.Repository
	SettingsRepo *settings.Repository
	DrawRepo     *draws.Repository
	BatchRepo    *batches.Repository

	// Services
	Cache         *cache.Cache
	StatsProvider *stats.Provider
	CorrProvider  *correlation.Provider
	Engine        *engine.Service
	DrawService   *draws.Service
	Seeder        *lotteries.Seeder

	// Feed clients, nil when no feed is configured
	FeedClient     *drawfeed.Client
	FeedSubscriber *drawfeed.Subscriber

	// Reliability
	BackupService   *reliability.BackupService
	S3BackupService *reliability.S3BackupService
	Maintenance     *reliability.MaintenanceService

	// Scheduler
	Scheduler  *scheduler.Scheduler
	JobHistory *scheduler.History
	Jobs       map[string]scheduler.Job
}

// Databases returns the open databases keyed by name.
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 4)
	if c.CatalogDB != nil {
		dbs["catalog"] = c.CatalogDB
	}
	if c.HistoryDB != nil {
		dbs["history"] = c.HistoryDB
	}
	if c.ResultsDB != nil {
		dbs["results"] = c.ResultsDB
	}
	if c.CacheDB != nil {
		dbs["cache"] = c.CacheDB
	}
	return dbs
}

// Close closes every open database connection.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.CatalogDB, c.HistoryDB, c.ResultsDB, c.CacheDB} {
		if db != nil {
			db.Close()
		}
	}
}
