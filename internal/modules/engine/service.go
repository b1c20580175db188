package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/cache"
	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/stats"
)

// DefaultMinHistoryDraws is the minimum history length for the
// statistics-backed fitness terms. Below it the engine silently runs
// structural-only and flags the result.
const DefaultMinHistoryDraws = 30

// DefaultCacheTTL bounds how long a generated batch is served from
// cache before the search runs again.
const DefaultCacheTTL = 15 * time.Minute

// ServiceConfig carries the engine-wide defaults. Per-request params
// override the search tunables; the rest is fixed at construction.
type ServiceConfig struct {
	Params          Params
	Weights         Weights
	Stats           stats.Config
	Correlation     correlation.Config
	MinHistoryDraws int
	Workers         int
	CacheTTL        time.Duration
}

// DefaultServiceConfig returns the stock engine configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Params:          DefaultParams(),
		Weights:         DefaultWeights(),
		Stats:           stats.DefaultConfig(),
		Correlation:     correlation.Config{MinScore: correlation.DefaultMinScore},
		MinHistoryDraws: DefaultMinHistoryDraws,
		CacheTTL:        DefaultCacheTTL,
	}
}

// Service runs generation requests. The cache is optional; a nil cache
// simply recomputes every request.
type Service struct {
	cfg          ServiceConfig
	statsBuilder *stats.Builder
	corrBuilder  *correlation.Builder
	cache        *cache.Cache
	log          zerolog.Logger
}

func NewService(cfg ServiceConfig, c *cache.Cache, log zerolog.Logger) *Service {
	if cfg.MinHistoryDraws == 0 {
		cfg.MinHistoryDraws = DefaultMinHistoryDraws
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Params.PopulationSize == 0 {
		cfg.Params = DefaultParams()
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Service{
		cfg:          cfg,
		statsBuilder: stats.NewBuilder(cfg.Stats, log),
		corrBuilder:  correlation.NewBuilder(cfg.Correlation, log),
		cache:        c,
		log:          log.With().Str("component", "engine").Logger(),
	}
}

// Request describes one generation run. Draws are the lottery's
// historical results, most recent first; LotteryID only tags cache
// entries and may be empty for ad-hoc pool geometries.
type Request struct {
	LotteryID string          `json:"lottery_id,omitempty"`
	PoolSize  int             `json:"pool_size"`
	Pick      int             `json:"pick"`
	NumGames  int             `json:"num_games"`
	Strategy  domain.Strategy `json:"strategy,omitempty"`
	Params    Params          `json:"params"`
	Draws     []domain.Draw   `json:"-"`
}

// Generate runs the full pipeline: validate, derive statistics from
// the supplied draws, search, enforce batch diversity and assemble the
// result. Identical requests with an identical provided seed return
// identical batches. The context is honored before the search starts;
// a run in flight is never cancelled.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	params := req.Params.withDefaults(s.cfg.Params)
	if err := validateRequest(req, params); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	latestContest := latestContestID(req.Draws)
	key := s.cacheKey(req, params, latestContest)
	if s.cache != nil {
		var cached Result
		if err := s.cache.Get(key, &cached); err == nil {
			s.log.Debug().Str("lottery_id", req.LotteryID).Str("key", key).Msg("serving batch from cache")
			return &cached, nil
		}
	}

	seedProvided := params.Seed != nil
	var seed int64
	if seedProvided {
		seed = *params.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	weights := StrategyWeights(req.Strategy, s.cfg.Weights)
	needsStats := weights.Frequency != 0
	needsCorr := weights.Correlation != 0
	structuralOnly := false
	if (needsStats || needsCorr) && len(req.Draws) < s.cfg.MinHistoryDraws {
		structuralOnly = true
		weights.Frequency, weights.Correlation = 0, 0
		needsStats, needsCorr = false, false
		s.log.Warn().
			Str("lottery_id", req.LotteryID).
			Str("strategy", string(req.Strategy)).
			Int("draws", len(req.Draws)).
			Int("min_draws", s.cfg.MinHistoryDraws).
			Msg("draw history below minimum, falling back to structural fitness")
	}

	var sc StatsContext
	if needsStats {
		snap, err := s.statsBuilder.Build(req.Draws, req.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to build number statistics: %w", err)
		}
		sc.Stats = snap
	}
	if needsCorr {
		matrix, err := s.corrBuilder.Build(req.Draws, req.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to build correlation matrix: %w", err)
		}
		sc.Correlations = matrix
	}

	start := time.Now()
	evaluator := NewEvaluator(req.PoolSize, req.Pick, weights, sc)
	optimizer := NewOptimizer(OptimizerConfig{
		PoolSize:  req.PoolSize,
		Pick:      req.Pick,
		Params:    params,
		Evaluator: evaluator,
		RNG:       rng,
		Workers:   s.cfg.Workers,
		Log:       s.log,
	})
	ranked := optimizer.Run()

	enforcer := NewEnforcer(EnforcerConfig{
		PoolSize:           req.PoolSize,
		Pick:               req.Pick,
		MinHammingDistance: params.MinHammingDistance,
		MaxConsecutive:     params.MaxConsecutive,
		RepairSamples:      params.RepairSamples,
	}, evaluator, rng, s.log)
	batch, relaxed := enforcer.SelectBatch(ranked, req.NumGames)
	elapsed := time.Since(start)

	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.StrategyStructural
	}
	result := &Result{
		BatchID:          uuid.NewString(),
		Games:            make([]domain.Candidate, len(batch)),
		Scores:           make([]float64, len(batch)),
		Metrics:          make([]Metrics, len(batch)),
		DiversityReduced: relaxed,
		StructuralOnly:   structuralOnly,
		Strategy:         strategy,
		Seed:             seed,
		SeedProvided:     seedProvided,
		DrawCount:        len(req.Draws),
		Elapsed:          elapsed,
		ElapsedMs:        elapsed.Milliseconds(),
	}
	for i, ind := range batch {
		result.Games[i] = ind.Candidate
		result.Scores[i] = ind.Fitness
		result.Metrics[i] = ind.Metrics
	}

	if s.cache != nil {
		if err := s.cache.Set(key, result, req.LotteryID, s.cfg.CacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache batch")
		}
	}

	s.log.Info().
		Str("batch_id", result.BatchID).
		Str("lottery_id", req.LotteryID).
		Str("strategy", string(strategy)).
		Int("games", len(result.Games)).
		Bool("diversity_reduced", relaxed).
		Bool("structural_only", structuralOnly).
		Dur("elapsed", elapsed).
		Msg("batch generated")
	return result, nil
}

// Strategies lists the selectable strategies with their effective
// weights.
func (s *Service) Strategies() []StrategyInfo {
	return DescribeStrategies(s.cfg.Weights)
}

func validateRequest(req Request, params Params) error {
	if req.Pick <= 0 {
		return fmt.Errorf("pick must be positive, got %d: %w", req.Pick, domain.ErrInvalidParameter)
	}
	if req.Pick > req.PoolSize {
		return fmt.Errorf("pick %d exceeds pool size %d: %w", req.Pick, req.PoolSize, domain.ErrInvalidParameter)
	}
	if req.NumGames <= 0 {
		return fmt.Errorf("num_games must be positive, got %d: %w", req.NumGames, domain.ErrInvalidParameter)
	}
	if !req.Strategy.Valid() {
		return fmt.Errorf("unknown strategy %q: %w", req.Strategy, domain.ErrInvalidParameter)
	}
	if params.PopulationSize < 2 {
		return fmt.Errorf("population_size must be at least 2, got %d: %w", params.PopulationSize, domain.ErrInvalidParameter)
	}
	if params.MutationRate < 0 || params.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be within [0, 1], got %g: %w", params.MutationRate, domain.ErrInvalidParameter)
	}
	if params.ElitePercent < 0 || params.ElitePercent >= 1 {
		return fmt.Errorf("elite_percent must be within [0, 1), got %g: %w", params.ElitePercent, domain.ErrInvalidParameter)
	}
	if params.TournamentSize < 1 {
		return fmt.Errorf("tournament_size must be at least 1, got %d: %w", params.TournamentSize, domain.ErrInvalidParameter)
	}
	if params.Generations < 1 {
		return fmt.Errorf("generations must be at least 1, got %d: %w", params.Generations, domain.ErrInvalidParameter)
	}
	if params.MinHammingDistance < 0 {
		return fmt.Errorf("min_hamming_distance must not be negative, got %d: %w", params.MinHammingDistance, domain.ErrInvalidParameter)
	}
	return nil
}

func latestContestID(draws []domain.Draw) int64 {
	var latest int64
	for _, d := range draws {
		if d.ContestID > latest {
			latest = d.ContestID
		}
	}
	return latest
}

// cacheKey hashes everything the result depends on, so a stale entry
// can never be served after new draws arrive or parameters change.
func (s *Service) cacheKey(req Request, params Params, latestContest int64) string {
	seed := "none"
	if params.Seed != nil {
		seed = strconv.FormatInt(*params.Seed, 10)
	}
	parts := []string{
		"generate",
		req.LotteryID,
		strconv.Itoa(req.PoolSize),
		strconv.Itoa(req.Pick),
		strconv.Itoa(req.NumGames),
		string(req.Strategy),
		seed,
		strconv.Itoa(params.PopulationSize),
		strconv.Itoa(params.Generations),
		strconv.FormatFloat(params.MutationRate, 'g', -1, 64),
		strconv.FormatFloat(params.ElitePercent, 'g', -1, 64),
		strconv.Itoa(params.TournamentSize),
		strconv.Itoa(params.MinHammingDistance),
		strconv.Itoa(params.MaxConsecutive),
		strconv.Itoa(params.RepairSamples),
		strconv.Itoa(len(req.Draws)),
		strconv.FormatInt(latestContest, 10),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "engine:" + hex.EncodeToString(sum[:])[:32]
}
