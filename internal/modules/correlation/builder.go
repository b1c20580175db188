package correlation

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// DefaultMinScore is the magnitude below which pair entries are
// dropped from the matrix to bound memory.
const DefaultMinScore = 0.1

// Config holds the correlation builder tunables.
type Config struct {
	// MinScore drops entries with |score| below it. Zero uses the
	// default; negative keeps everything.
	MinScore float64
}

// DefaultConfig returns the default builder configuration.
func DefaultConfig() Config {
	return Config{MinScore: DefaultMinScore}
}

// Builder computes the pairwise correlation matrix from draw history.
type Builder struct {
	cfg Config
	log zerolog.Logger
}

// NewBuilder creates a correlation builder.
func NewBuilder(cfg Config, log zerolog.Logger) *Builder {
	if cfg.MinScore == 0 {
		cfg.MinScore = DefaultMinScore
	}
	return &Builder{
		cfg: cfg,
		log: log.With().Str("component", "correlation_builder").Logger(),
	}
}

// Build computes the sparse symmetric score matrix.
//
// For each draw every unordered pair present increments a co-occurrence
// counter; per-number marginal counts are tracked independently. With c
// the pair's co-occurrence count and total the number of draws,
// expected = countI * countJ / total and
// score = (c - expected) / sqrt(expected) when expected > 0, else 0.
//
// Counting is O(draws × k²): the per-draw pair loop is quadratic in
// the pick count and dominates for large-pick games on long histories.
// Scoring adds an O(poolSize²) pass over candidate pairs. Entries with
// |score| below MinScore are dropped.
func (b *Builder) Build(draws []domain.Draw, poolSize int) (*Matrix, error) {
	if poolSize < 1 {
		return nil, fmt.Errorf("%w: pool size must be positive, got %d", domain.ErrInvalidParameter, poolSize)
	}

	m := &Matrix{
		PoolSize:  poolSize,
		BuiltAt:   time.Now(),
		drawCount: len(draws),
		scores:    make(map[Pair]float64),
	}
	if len(draws) == 0 {
		return m, nil
	}
	m.latestContest = draws[0].ContestID

	marginals := make([]int, poolSize+1)
	cooccur := make(map[Pair]int)

	for _, draw := range draws {
		for i, a := range draw.Numbers {
			if a < 1 || a > poolSize {
				continue
			}
			marginals[a]++
			for _, c := range draw.Numbers[i+1:] {
				if c < 1 || c > poolSize || c == a {
					continue
				}
				key, _ := MakePair(a, c)
				cooccur[key]++
			}
		}
	}

	// Every pair whose numbers have both been drawn gets scored, even
	// with zero co-occurrences: pairs that never appear together score
	// negative. This scan is O(poolSize²), bounded by the pool rather
	// than the history.
	total := float64(len(draws))
	dropped := 0
	for lo := 1; lo < poolSize; lo++ {
		if marginals[lo] == 0 {
			continue
		}
		for hi := lo + 1; hi <= poolSize; hi++ {
			if marginals[hi] == 0 {
				continue
			}
			key := Pair{Lo: lo, Hi: hi}
			expected := float64(marginals[lo]) * float64(marginals[hi]) / total
			score := (float64(cooccur[key]) - expected) / math.Sqrt(expected)
			if math.Abs(score) < b.cfg.MinScore {
				dropped++
				continue
			}
			m.scores[key] = score
		}
	}

	b.log.Debug().
		Int("draws", len(draws)).
		Int("pairs", len(m.scores)).
		Int("dropped", dropped).
		Msg("Correlation matrix built")

	return m, nil
}
