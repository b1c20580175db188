// Package stats builds per-number frequency, recency and tier
// statistics from historical draws. These feed the generation engine's
// optional frequency fitness term and the statistics API.
package stats

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Tier classifies a number's recent weighted frequency.
type Tier string

const (
	// TierHot marks numbers in the top slice of weighted frequency.
	TierHot Tier = "hot"
	// TierWarm marks numbers between the hot and cold cut-offs.
	TierWarm Tier = "warm"
	// TierCold marks numbers in the bottom slice, including numbers
	// never drawn.
	TierCold Tier = "cold"
)

// NumberStat holds the computed statistics for one pool number.
type NumberStat struct {
	Number             int     `json:"number"`
	RawFrequency       int     `json:"raw_frequency"`
	WeightedFrequency  float64 `json:"weighted_frequency"`
	Tier               Tier    `json:"tier"`
	DrawsSinceLastSeen int     `json:"draws_since_last_seen"`
}

// Snapshot is the full statistics build for one lottery at one point in
// time. Stats[i] describes number i+1; the tier partition covers the
// pool totally and disjointly (every number has exactly one tier).
type Snapshot struct {
	LotteryID     string       `json:"lottery_id,omitempty"`
	PoolSize      int          `json:"pool_size"`
	DrawCount     int          `json:"draw_count"`
	LatestContest int64        `json:"latest_contest"`
	DecayConstant float64      `json:"decay_constant"`
	BuiltAt       time.Time    `json:"built_at"`
	Stats         []NumberStat `json:"stats"`
}

// Stat returns the statistics for number n.
func (s *Snapshot) Stat(n int) (NumberStat, bool) {
	if n < 1 || n > len(s.Stats) {
		return NumberStat{}, false
	}
	return s.Stats[n-1], true
}

// WeightedFrequency returns the weighted frequency of number n, or 0
// for numbers outside the pool.
func (s *Snapshot) WeightedFrequency(n int) float64 {
	if n < 1 || n > len(s.Stats) {
		return 0
	}
	return s.Stats[n-1].WeightedFrequency
}

// TierOf returns the tier of number n, defaulting to warm for numbers
// outside the pool.
func (s *Snapshot) TierOf(n int) Tier {
	if n < 1 || n > len(s.Stats) {
		return TierWarm
	}
	return s.Stats[n-1].Tier
}

// ByTier groups pool numbers by their tier.
func (s *Snapshot) ByTier() map[Tier][]int {
	out := map[Tier][]int{TierHot: {}, TierWarm: {}, TierCold: {}}
	for _, st := range s.Stats {
		out[st.Tier] = append(out[st.Tier], st.Number)
	}
	return out
}

// Summary describes the weighted frequency distribution of a snapshot.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Summary computes distribution statistics over the weighted
// frequencies.
func (s *Snapshot) Summary() Summary {
	if len(s.Stats) == 0 {
		return Summary{}
	}

	values := make([]float64, len(s.Stats))
	for i, st := range s.Stats {
		values[i] = st.WeightedFrequency
	}
	sort.Float64s(values)

	return Summary{
		Mean:   stat.Mean(values, nil),
		StdDev: stat.StdDev(values, nil),
		Min:    values[0],
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		Max:    values[len(values)-1],
	}
}
