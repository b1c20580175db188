package correlation

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// Provider caches the latest Matrix per lottery for API reads and the
// scheduler's refresh job.
type Provider struct {
	builder *Builder
	log     zerolog.Logger

	mu       sync.RWMutex
	matrices map[string]*Matrix
}

// NewProvider creates a matrix provider around a builder.
func NewProvider(builder *Builder, log zerolog.Logger) *Provider {
	return &Provider{
		builder:  builder,
		log:      log.With().Str("component", "correlation_provider").Logger(),
		matrices: make(map[string]*Matrix),
	}
}

// Matrix returns the cached matrix for the lottery, if any.
func (p *Provider) Matrix(lotteryID string) (*Matrix, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.matrices[lotteryID]
	return m, ok
}

// GetOrBuild returns the cached matrix when it still matches the
// supplied history, rebuilding otherwise.
func (p *Provider) GetOrBuild(lotteryID string, poolSize int, draws []domain.Draw) (*Matrix, error) {
	var latest int64
	if len(draws) > 0 {
		latest = draws[0].ContestID
	}

	p.mu.RLock()
	m, ok := p.matrices[lotteryID]
	p.mu.RUnlock()
	if ok && m.PoolSize == poolSize && m.drawCount == len(draws) && m.latestContest == latest {
		return m, nil
	}

	return p.Refresh(lotteryID, poolSize, draws)
}

// Refresh rebuilds the matrix for the lottery and stores it.
func (p *Provider) Refresh(lotteryID string, poolSize int, draws []domain.Draw) (*Matrix, error) {
	m, err := p.builder.Build(draws, poolSize)
	if err != nil {
		return nil, err
	}
	m.LotteryID = lotteryID

	p.mu.Lock()
	p.matrices[lotteryID] = m
	p.mu.Unlock()

	p.log.Debug().
		Str("lottery", lotteryID).
		Int("pairs", m.Len()).
		Msg("Correlation matrix refreshed")

	return m, nil
}

// Invalidate drops the cached matrix for the lottery.
func (p *Provider) Invalidate(lotteryID string) {
	p.mu.Lock()
	delete(p.matrices, lotteryID)
	p.mu.Unlock()
}
