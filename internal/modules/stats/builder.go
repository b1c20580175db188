package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// Default tunables. These are empirically chosen configuration
// defaults, not business law; the settings database can override them.
const (
	DefaultDecayConstant = 20.0
	DefaultHotFraction   = 0.30
	DefaultColdFraction  = 0.30
)

// Config holds the statistics builder tunables.
type Config struct {
	// DecayConstant controls how fast older draws lose influence on the
	// weighted frequency. Larger values flatten the decay.
	DecayConstant float64
	// HotFraction is the share of the pool classified hot.
	HotFraction float64
	// ColdFraction is the share of the pool classified cold.
	ColdFraction float64
}

// DefaultConfig returns the default builder configuration.
func DefaultConfig() Config {
	return Config{
		DecayConstant: DefaultDecayConstant,
		HotFraction:   DefaultHotFraction,
		ColdFraction:  DefaultColdFraction,
	}
}

// Builder computes per-number statistics from draw history.
// Build is a pure function of its inputs; the builder holds only
// configuration and a logger.
type Builder struct {
	cfg Config
	log zerolog.Logger
}

// NewBuilder creates a statistics builder.
func NewBuilder(cfg Config, log zerolog.Logger) *Builder {
	if cfg.DecayConstant <= 0 {
		cfg.DecayConstant = DefaultDecayConstant
	}
	if cfg.HotFraction <= 0 {
		cfg.HotFraction = DefaultHotFraction
	}
	if cfg.ColdFraction <= 0 {
		cfg.ColdFraction = DefaultColdFraction
	}
	return &Builder{
		cfg: cfg,
		log: log.With().Str("component", "stats_builder").Logger(),
	}
}

// Build computes one NumberStat per number in [1, poolSize] from draws
// ordered most recent first.
//
// Weighted frequency is the sum over draws containing the number of
// exp(-drawIndex / decayConstant), with index 0 the most recent draw.
// Runs in O(draws × k) plus the O(poolSize log poolSize) tier sort.
//
// With empty history every number gets uniform zero stats and tier
// warm (flat prior). Numbers never drawn in a non-empty history are
// classified cold regardless of the percentile cut.
func (b *Builder) Build(draws []domain.Draw, poolSize int) (*Snapshot, error) {
	if poolSize < 1 {
		return nil, fmt.Errorf("%w: pool size must be positive, got %d", domain.ErrInvalidParameter, poolSize)
	}

	snap := &Snapshot{
		PoolSize:      poolSize,
		DrawCount:     len(draws),
		DecayConstant: b.cfg.DecayConstant,
		BuiltAt:       time.Now(),
		Stats:         make([]NumberStat, poolSize),
	}
	for i := range snap.Stats {
		snap.Stats[i] = NumberStat{Number: i + 1}
	}

	// Flat prior: nothing is hot or cold when there is no history.
	if len(draws) == 0 {
		for i := range snap.Stats {
			snap.Stats[i].Tier = TierWarm
		}
		return snap, nil
	}

	snap.LatestContest = draws[0].ContestID

	// lastSeen[n] is the most-recent-first index of the latest draw
	// containing n, or -1 if never drawn.
	lastSeen := make([]int, poolSize+1)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	skipped := 0
	for idx, draw := range draws {
		weight := math.Exp(-float64(idx) / b.cfg.DecayConstant)
		for _, n := range draw.Numbers {
			if n < 1 || n > poolSize {
				skipped++
				continue
			}
			st := &snap.Stats[n-1]
			st.RawFrequency++
			st.WeightedFrequency += weight
			if lastSeen[n] == -1 {
				lastSeen[n] = idx
			}
		}
	}
	if skipped > 0 {
		b.log.Warn().
			Int("skipped", skipped).
			Int("pool_size", poolSize).
			Msg("Draw history contains numbers outside the pool")
	}

	for i := range snap.Stats {
		if seen := lastSeen[i+1]; seen >= 0 {
			snap.Stats[i].DrawsSinceLastSeen = seen
		} else {
			snap.Stats[i].DrawsSinceLastSeen = len(draws)
		}
	}

	b.assignTiers(snap)

	return snap, nil
}

// assignTiers sorts numbers by weighted frequency descending (ties
// broken by number ascending so builds are deterministic) and splits
// hot / warm / cold by the configured fractions. Never-drawn numbers
// are forced cold afterwards.
func (b *Builder) assignTiers(snap *Snapshot) {
	n := len(snap.Stats)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, c int) bool {
		sa, sc := snap.Stats[order[a]], snap.Stats[order[c]]
		if sa.WeightedFrequency != sc.WeightedFrequency {
			return sa.WeightedFrequency > sc.WeightedFrequency
		}
		return sa.Number < sc.Number
	})

	hotCount := int(math.Ceil(float64(n) * b.cfg.HotFraction))
	coldCount := int(math.Ceil(float64(n) * b.cfg.ColdFraction))
	if hotCount+coldCount > n {
		coldCount = n - hotCount
	}

	for rank, idx := range order {
		switch {
		case rank < hotCount:
			snap.Stats[idx].Tier = TierHot
		case rank >= n-coldCount:
			snap.Stats[idx].Tier = TierCold
		default:
			snap.Stats[idx].Tier = TierWarm
		}
	}

	for i := range snap.Stats {
		if snap.Stats[i].RawFrequency == 0 {
			snap.Stats[i].Tier = TierCold
		}
	}
}
