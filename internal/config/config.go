// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/lottokit/drawgen/internal/modules/settings"
)

// scheduleParser matches the scheduler's cron flavor: six fields with
// seconds, plus @-descriptors. Used to reject bad schedules at load
// instead of at job registration.
var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for all databases (always absolute)
	LotterySeed string // Path to the lottery catalog seed file (YAML)
	LogLevel    string
	Port        int
	DevMode     bool

	Engine EngineConfig
	Feed   FeedConfig
	Backup BackupConfig

	// Cron schedules (robfig/cron syntax, with seconds)
	DrawSyncSchedule     string
	StatsRefreshSchedule string
	CacheCleanupSchedule string
	BackupSchedule       string
	MaintenanceSchedule  string
}

// EngineConfig holds the generation engine defaults. All values are
// tunables, not business law; the settings database can override them
// at startup and per-request params override them per call.
type EngineConfig struct {
	PopulationSize      int
	Generations         int
	MutationRate        float64
	ElitePercent        float64
	TournamentSize      int
	MaxConsecutive      int
	RepairSamples       int
	MinHistoryDraws     int     // below this, fall back to structural-only fitness
	DecayConstant       float64 // recency decay for weighted frequency
	HotFraction         float64 // share of pool classified hot
	ColdFraction        float64 // share of pool classified cold
	CorrelationMinScore float64 // |score| below this is dropped from the matrix
	CacheTTL            time.Duration
	Workers             int // 0 = GOMAXPROCS
}

// FeedConfig holds the external draw-result provider settings.
type FeedConfig struct {
	BaseURL string
	WSURL   string
	APIKey  string
}

// BackupConfig holds S3-compatible backup settings.
type BackupConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Retention int // days to keep remote backups
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory: DRAWGEN_DATA_DIR, defaulting to ./data,
	// always resolved to an absolute path that exists.
	dataDir := getEnv("DRAWGEN_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		LotterySeed: getEnv("DRAWGEN_LOTTERY_SEED", "configs/lotteries.yaml"),
		Port:        getEnvAsInt("DRAWGEN_PORT", 8080),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Engine: EngineConfig{
			PopulationSize:      getEnvAsInt("ENGINE_POPULATION_SIZE", 120),
			Generations:         getEnvAsInt("ENGINE_GENERATIONS", 80),
			MutationRate:        getEnvAsFloat("ENGINE_MUTATION_RATE", 0.10),
			ElitePercent:        getEnvAsFloat("ENGINE_ELITE_PERCENT", 0.10),
			TournamentSize:      getEnvAsInt("ENGINE_TOURNAMENT_SIZE", 3),
			MaxConsecutive:      getEnvAsInt("ENGINE_MAX_CONSECUTIVE", 2),
			RepairSamples:       getEnvAsInt("ENGINE_REPAIR_SAMPLES", 8),
			MinHistoryDraws:     getEnvAsInt("ENGINE_MIN_HISTORY_DRAWS", 30),
			DecayConstant:       getEnvAsFloat("ENGINE_DECAY_CONSTANT", 20.0),
			HotFraction:         getEnvAsFloat("ENGINE_HOT_FRACTION", 0.30),
			ColdFraction:        getEnvAsFloat("ENGINE_COLD_FRACTION", 0.30),
			CorrelationMinScore: getEnvAsFloat("ENGINE_CORRELATION_MIN_SCORE", 0.1),
			CacheTTL:            getEnvAsDuration("ENGINE_CACHE_TTL", 15*time.Minute),
			Workers:             getEnvAsInt("ENGINE_WORKERS", 0),
		},

		Feed: FeedConfig{
			BaseURL: getEnv("DRAWFEED_BASE_URL", ""),
			WSURL:   getEnv("DRAWFEED_WS_URL", ""),
			APIKey:  getEnv("DRAWFEED_API_KEY", ""),
		},

		Backup: BackupConfig{
			Enabled:   getEnvAsBool("BACKUP_ENABLED", false),
			Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:    getEnv("BACKUP_S3_REGION", "auto"),
			Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
			AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
			Retention: getEnvAsInt("BACKUP_RETENTION_DAYS", 14),
		},

		DrawSyncSchedule:     getEnv("SCHEDULE_DRAW_SYNC", "0 */30 * * * *"),
		StatsRefreshSchedule: getEnv("SCHEDULE_STATS_REFRESH", "0 5 * * * *"),
		CacheCleanupSchedule: getEnv("SCHEDULE_CACHE_CLEANUP", "0 */10 * * * *"),
		BackupSchedule:       getEnv("SCHEDULE_BACKUP", "0 30 3 * * *"),
		MaintenanceSchedule:  getEnv("SCHEDULE_MAINTENANCE", "0 0 */6 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromSettings updates configuration from the settings database.
// This should be called after the catalog database is initialized.
// Settings DB values take precedence over environment variables.
func (c *Config) UpdateFromSettings(settingsRepo *settings.Repository) error {
	apiKey, err := settingsRepo.Get("drawfeed_api_key")
	if err != nil {
		return fmt.Errorf("failed to get drawfeed_api_key from settings: %w", err)
	}
	if apiKey != nil && *apiKey != "" {
		c.Feed.APIKey = *apiKey
	}

	accessKey, err := settingsRepo.Get("backup_s3_access_key")
	if err != nil {
		return fmt.Errorf("failed to get backup_s3_access_key from settings: %w", err)
	}
	if accessKey != nil && *accessKey != "" {
		c.Backup.AccessKey = *accessKey
	}

	secretKey, err := settingsRepo.Get("backup_s3_secret_key")
	if err != nil {
		return fmt.Errorf("failed to get backup_s3_secret_key from settings: %w", err)
	}
	if secretKey != nil && *secretKey != "" {
		c.Backup.SecretKey = *secretKey
	}

	// Engine tunables stored as settings override env defaults. Invalid
	// stored values fall back to the current config value.
	if v, err := settingsRepo.GetInt("engine_population_size", c.Engine.PopulationSize); err == nil && v >= 2 {
		c.Engine.PopulationSize = v
	}
	if v, err := settingsRepo.GetInt("engine_generations", c.Engine.Generations); err == nil && v > 0 {
		c.Engine.Generations = v
	}
	if v, err := settingsRepo.GetFloat("engine_mutation_rate", c.Engine.MutationRate); err == nil && v >= 0 && v <= 1 {
		c.Engine.MutationRate = v
	}
	if v, err := settingsRepo.GetFloat("engine_elite_percent", c.Engine.ElitePercent); err == nil && v >= 0 && v < 1 {
		c.Engine.ElitePercent = v
	}
	if v, err := settingsRepo.GetFloat("engine_decay_constant", c.Engine.DecayConstant); err == nil && v > 0 {
		c.Engine.DecayConstant = v
	}
	if v, err := settingsRepo.GetInt("engine_min_history_draws", c.Engine.MinHistoryDraws); err == nil && v >= 0 {
		c.Engine.MinHistoryDraws = v
	}

	return nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Engine.PopulationSize < 2 {
		return fmt.Errorf("engine population size must be at least 2, got %d", c.Engine.PopulationSize)
	}
	if c.Engine.MutationRate < 0 || c.Engine.MutationRate > 1 {
		return fmt.Errorf("engine mutation rate must be within [0, 1], got %f", c.Engine.MutationRate)
	}
	if c.Engine.ElitePercent < 0 || c.Engine.ElitePercent >= 1 {
		return fmt.Errorf("engine elite percent must be within [0, 1), got %f", c.Engine.ElitePercent)
	}
	schedules := map[string]string{
		"SCHEDULE_DRAW_SYNC":     c.DrawSyncSchedule,
		"SCHEDULE_STATS_REFRESH": c.StatsRefreshSchedule,
		"SCHEDULE_CACHE_CLEANUP": c.CacheCleanupSchedule,
		"SCHEDULE_BACKUP":        c.BackupSchedule,
		"SCHEDULE_MAINTENANCE":   c.MaintenanceSchedule,
	}
	for name, schedule := range schedules {
		if _, err := scheduleParser.Parse(schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %s=%q: %w", name, schedule, err)
		}
	}
	// Backup credentials are optional; the backup job refuses to run
	// without them rather than failing startup.
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
