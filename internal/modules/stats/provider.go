package stats

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// Provider caches the latest Snapshot per lottery for API reads and
// the scheduler's refresh job. The builder itself stays pure; the
// provider owns all shared state behind a RWMutex.
type Provider struct {
	builder *Builder
	log     zerolog.Logger

	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewProvider creates a snapshot provider around a builder.
func NewProvider(builder *Builder, log zerolog.Logger) *Provider {
	return &Provider{
		builder:   builder,
		log:       log.With().Str("component", "stats_provider").Logger(),
		snapshots: make(map[string]*Snapshot),
	}
}

// Snapshot returns the cached snapshot for the lottery, if any.
func (p *Provider) Snapshot(lotteryID string) (*Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.snapshots[lotteryID]
	return snap, ok
}

// GetOrBuild returns the cached snapshot when it still matches the
// supplied history (same draw count and latest contest), rebuilding
// otherwise.
func (p *Provider) GetOrBuild(lotteryID string, poolSize int, draws []domain.Draw) (*Snapshot, error) {
	var latest int64
	if len(draws) > 0 {
		latest = draws[0].ContestID
	}

	p.mu.RLock()
	snap, ok := p.snapshots[lotteryID]
	p.mu.RUnlock()
	if ok && snap.PoolSize == poolSize && snap.DrawCount == len(draws) && snap.LatestContest == latest {
		return snap, nil
	}

	return p.Refresh(lotteryID, poolSize, draws)
}

// Refresh rebuilds the snapshot for the lottery and stores it.
func (p *Provider) Refresh(lotteryID string, poolSize int, draws []domain.Draw) (*Snapshot, error) {
	snap, err := p.builder.Build(draws, poolSize)
	if err != nil {
		return nil, err
	}
	snap.LotteryID = lotteryID

	p.mu.Lock()
	p.snapshots[lotteryID] = snap
	p.mu.Unlock()

	p.log.Debug().
		Str("lottery", lotteryID).
		Int("draws", snap.DrawCount).
		Msg("Statistics snapshot refreshed")

	return snap, nil
}

// Invalidate drops the cached snapshot for the lottery. Called when new
// draws are ingested.
func (p *Provider) Invalidate(lotteryID string) {
	p.mu.Lock()
	delete(p.snapshots, lotteryID)
	p.mu.Unlock()
}
