package engine

import (
	"math"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/stats"
)

// Default structural weights. Positive weights reward, negative terms
// are subtracted inside Score, so all magnitudes here are positive.
const (
	DefaultBucketDiversityWeight = 15.0
	DefaultRunPenaltyWeight      = 8.0
	DefaultParityBalanceWeight   = 5.0
	DefaultSumDeviationWeight    = 0.05
)

// Weights controls the fitness function. The four structural weights
// are always applied; Correlation and Frequency default to zero and
// only contribute when a strategy switches them on and statistics
// context is available.
type Weights struct {
	BucketDiversity float64 `json:"bucket_diversity"`
	RunPenalty      float64 `json:"run_penalty"`
	ParityBalance   float64 `json:"parity_balance"`
	SumDeviation    float64 `json:"sum_deviation"`
	Correlation     float64 `json:"correlation"`
	Frequency       float64 `json:"frequency"`
}

// DefaultWeights returns the structural weight configuration.
func DefaultWeights() Weights {
	return Weights{
		BucketDiversity: DefaultBucketDiversityWeight,
		RunPenalty:      DefaultRunPenaltyWeight,
		ParityBalance:   DefaultParityBalanceWeight,
		SumDeviation:    DefaultSumDeviationWeight,
	}
}

// StatsContext carries the optional statistics inputs for the two
// history-derived fitness terms. Either field may be nil, in which
// case the corresponding term evaluates to zero.
type StatsContext struct {
	Stats        *stats.Snapshot
	Correlations *correlation.Matrix
}

// Evaluator scores candidates. It is pure: Score never mutates the
// candidate, touches shared state or draws randomness, so a single
// Evaluator is safe to share across worker goroutines.
type Evaluator struct {
	poolSize int
	pick     int
	weights  Weights
	stats    *stats.Snapshot
	corr     *correlation.Matrix

	bucketCount int
	bucketWidth int
	idealSum    float64
}

// NewEvaluator builds an evaluator for a pool of poolSize numbers and
// candidates of length pick. The number range [1, poolSize] is divided
// into ceil(poolSize/10) equal-width buckets; the last bucket absorbs
// the remainder when poolSize is not a multiple of the width.
func NewEvaluator(poolSize, pick int, weights Weights, sc StatsContext) *Evaluator {
	bucketCount := (poolSize + 9) / 10
	if bucketCount < 1 {
		bucketCount = 1
	}
	return &Evaluator{
		poolSize:    poolSize,
		pick:        pick,
		weights:     weights,
		stats:       sc.Stats,
		corr:        sc.Correlations,
		bucketCount: bucketCount,
		bucketWidth: (poolSize + bucketCount - 1) / bucketCount,
		idealSum:    float64(poolSize) / 2 * float64(pick),
	}
}

// PoolSize returns the number range size the evaluator was built for.
func (e *Evaluator) PoolSize() int { return e.poolSize }

// Pick returns the candidate length the evaluator was built for.
func (e *Evaluator) Pick() int { return e.pick }

// bucket maps a number in [1, poolSize] to its range bucket index.
func (e *Evaluator) bucket(n int) int {
	idx := (n - 1) / e.bucketWidth
	if idx >= e.bucketCount {
		idx = e.bucketCount - 1
	}
	return idx
}

// Score evaluates a sorted candidate and returns the weighted fitness
// together with the per-term breakdown. Higher is better.
func (e *Evaluator) Score(c domain.Candidate) (float64, Metrics) {
	var m Metrics

	sum := 0
	even := 0
	occupied := make([]bool, e.bucketCount)
	for i, n := range c {
		sum += n
		if n%2 == 0 {
			even++
		}
		occupied[e.bucket(n)] = true
		if i > 0 && n-c[i-1] == 1 {
			m.RunPenalty++
		}
	}
	for _, o := range occupied {
		if o {
			m.BucketDiversity++
		}
	}
	odd := len(c) - even
	m.ParityBalance = even - odd
	if m.ParityBalance < 0 {
		m.ParityBalance = -m.ParityBalance
	}
	m.SumDeviation = math.Abs(float64(sum) - e.idealSum)

	if e.corr != nil && len(c) > 1 {
		total := 0.0
		pairs := 0
		for i := 0; i < len(c); i++ {
			for j := i + 1; j < len(c); j++ {
				total += e.corr.Score(c[i], c[j])
				pairs++
			}
		}
		m.CorrelationMean = total / float64(pairs)
	}
	if e.stats != nil && len(c) > 0 {
		total := 0.0
		for _, n := range c {
			total += e.stats.WeightedFrequency(n)
		}
		m.FrequencyMean = total / float64(len(c))
	}

	score := e.weights.BucketDiversity*float64(m.BucketDiversity) -
		e.weights.RunPenalty*float64(m.RunPenalty) -
		e.weights.ParityBalance*float64(m.ParityBalance) -
		e.weights.SumDeviation*m.SumDeviation +
		e.weights.Correlation*m.CorrelationMean +
		e.weights.Frequency*m.FrequencyMean

	return score, m
}
