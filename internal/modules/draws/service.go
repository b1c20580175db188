package draws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/cache"
	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/stats"
)

// Service validates and ingests draws, and keeps the derived caches
// honest: every successful ingest invalidates the lottery's statistics
// snapshot, correlation matrix and cached result batches.
type Service struct {
	repo      *Repository
	source    domain.DrawSource
	statsProv *stats.Provider
	corrProv  *correlation.Provider
	cache     *cache.Cache
	log       zerolog.Logger
}

// NewService wires the draw service. The source and cache may be nil;
// sync is then unavailable and cache invalidation is skipped.
func NewService(
	repo *Repository,
	source domain.DrawSource,
	statsProv *stats.Provider,
	corrProv *correlation.Provider,
	c *cache.Cache,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		source:    source,
		statsProv: statsProv,
		corrProv:  corrProv,
		cache:     c,
		log:       log.With().Str("component", "draws").Logger(),
	}
}

// Repo exposes the underlying repository for read paths.
func (s *Service) Repo() *Repository {
	return s.repo
}

// Ingest validates one draw against the lottery geometry and stores
// it. Numbers are normalized to sorted ascending before persisting.
func (s *Service) Ingest(d domain.Draw, poolSize, pick int) error {
	normalized, err := normalizeDraw(d, poolSize, pick)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(normalized); err != nil {
		return err
	}
	s.invalidate(normalized.LotteryID)

	s.log.Info().
		Str("lottery_id", normalized.LotteryID).
		Int64("contest_id", normalized.ContestID).
		Ints("numbers", normalized.Numbers).
		Msg("Draw recorded")
	return nil
}

// IngestBatch validates and stores many draws, skipping contests that
// are already recorded. Returns the number of new draws.
func (s *Service) IngestBatch(batch []domain.Draw, poolSize, pick int) (int, error) {
	normalized := make([]domain.Draw, 0, len(batch))
	for _, d := range batch {
		n, err := normalizeDraw(d, poolSize, pick)
		if err != nil {
			return 0, err
		}
		normalized = append(normalized, n)
	}

	inserted, err := s.repo.InsertBatch(normalized)
	if err != nil {
		return inserted, err
	}
	if inserted > 0 && len(normalized) > 0 {
		s.invalidate(normalized[0].LotteryID)
	}
	return inserted, nil
}

// Sync pulls draws newer than the stored history from the configured
// feed and ingests them. Returns the number of new draws.
func (s *Service) Sync(ctx context.Context, lotteryID string, poolSize, pick int) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("no draw feed configured for sync")
	}

	latest, err := s.repo.LatestContest(lotteryID)
	if err != nil {
		return 0, err
	}

	fetched, err := s.source.FetchDraws(ctx, lotteryID, latest)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch draws for %s: %w", lotteryID, err)
	}
	if len(fetched) == 0 {
		s.log.Debug().Str("lottery_id", lotteryID).Int64("latest_contest", latest).Msg("History already up to date")
		return 0, nil
	}

	for i := range fetched {
		fetched[i].LotteryID = lotteryID
	}
	inserted, err := s.IngestBatch(fetched, poolSize, pick)
	if err != nil {
		return inserted, err
	}

	s.log.Info().
		Str("lottery_id", lotteryID).
		Int("fetched", len(fetched)).
		Int("inserted", inserted).
		Msg("Draw history synced")
	return inserted, nil
}

// invalidate drops every derivation of the lottery's history.
func (s *Service) invalidate(lotteryID string) {
	if s.statsProv != nil {
		s.statsProv.Invalidate(lotteryID)
	}
	if s.corrProv != nil {
		s.corrProv.Invalidate(lotteryID)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateLottery(lotteryID); err != nil {
			s.log.Warn().Err(err).Str("lottery_id", lotteryID).Msg("Failed to invalidate result cache")
		}
	}
}

// normalizeDraw checks a draw against the lottery geometry and returns
// a copy with sorted numbers and a date defaulting to today.
func normalizeDraw(d domain.Draw, poolSize, pick int) (domain.Draw, error) {
	if d.LotteryID == "" {
		return domain.Draw{}, fmt.Errorf("draw lottery_id must not be empty: %w", domain.ErrInvalidParameter)
	}
	if d.ContestID <= 0 {
		return domain.Draw{}, fmt.Errorf("draw contest_id must be positive, got %d: %w", d.ContestID, domain.ErrInvalidParameter)
	}
	if len(d.Numbers) != pick {
		return domain.Draw{}, fmt.Errorf("draw has %d numbers, want %d: %w", len(d.Numbers), pick, domain.ErrInvalidParameter)
	}

	numbers := make([]int, len(d.Numbers))
	copy(numbers, d.Numbers)
	sort.Ints(numbers)
	for i, n := range numbers {
		if n < 1 || n > poolSize {
			return domain.Draw{}, fmt.Errorf("draw number %d outside pool [1, %d]: %w", n, poolSize, domain.ErrInvalidParameter)
		}
		if i > 0 && n == numbers[i-1] {
			return domain.Draw{}, fmt.Errorf("draw has duplicate number %d: %w", n, domain.ErrInvalidParameter)
		}
	}
	d.Numbers = numbers

	if d.Date.IsZero() {
		d.Date = time.Now().UTC()
	}
	return d, nil
}
