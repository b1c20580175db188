// Package engine implements the combinatorial number-selection engine:
// structural fitness evaluation, genetic population search and
// diversity enforcement over candidate number sets. The engine is a
// pure, synchronous computation over in-memory data; it performs no
// I/O and holds no shared mutable state between runs.
package engine

import (
	"math"
	"time"

	"github.com/lottokit/drawgen/internal/domain"
)

// Default search tunables. Empirically chosen defaults, overridable
// via configuration and per-request params.
const (
	DefaultPopulationSize = 120
	DefaultGenerations    = 80
	DefaultMutationRate   = 0.10
	DefaultElitePercent   = 0.10
	DefaultTournamentSize = 3
	DefaultMaxConsecutive = 2
	DefaultRepairSamples  = 8
)

// Params controls one optimization run. Zero-valued fields are filled
// from defaults before validation; MinHammingDistance additionally
// defaults to pick/2 once the pick count is known.
type Params struct {
	PopulationSize     int     `json:"population_size"`
	Generations        int     `json:"generations"`
	MutationRate       float64 `json:"mutation_rate"`
	ElitePercent       float64 `json:"elite_percent"`
	TournamentSize     int     `json:"tournament_size"`
	MinHammingDistance int     `json:"min_hamming_distance"`
	MaxConsecutive     int     `json:"max_consecutive"`
	RepairSamples      int     `json:"repair_samples"`
	// Seed makes runs reproducible: identical inputs plus an identical
	// seed produce an identical result batch. Nil derives a seed from
	// the clock and forfeits reproducibility.
	Seed *int64 `json:"seed,omitempty"`
}

// DefaultParams returns the default search parameters.
func DefaultParams() Params {
	return Params{
		PopulationSize: DefaultPopulationSize,
		Generations:    DefaultGenerations,
		MutationRate:   DefaultMutationRate,
		ElitePercent:   DefaultElitePercent,
		TournamentSize: DefaultTournamentSize,
		MaxConsecutive: DefaultMaxConsecutive,
		RepairSamples:  DefaultRepairSamples,
	}
}

// withDefaults fills zero-valued fields from base. The seed is left
// untouched: nil means "not provided".
func (p Params) withDefaults(base Params) Params {
	if p.PopulationSize == 0 {
		p.PopulationSize = base.PopulationSize
	}
	if p.Generations == 0 {
		p.Generations = base.Generations
	}
	if p.MutationRate == 0 {
		p.MutationRate = base.MutationRate
	}
	if p.ElitePercent == 0 {
		p.ElitePercent = base.ElitePercent
	}
	if p.TournamentSize == 0 {
		p.TournamentSize = base.TournamentSize
	}
	if p.MaxConsecutive == 0 {
		p.MaxConsecutive = base.MaxConsecutive
	}
	if p.RepairSamples == 0 {
		p.RepairSamples = base.RepairSamples
	}
	return p
}

// eliteCount returns ceil(populationSize × elitePercent).
func (p Params) eliteCount() int {
	return int(math.Ceil(float64(p.PopulationSize) * p.ElitePercent))
}

// Metrics is the per-candidate breakdown behind a fitness score.
type Metrics struct {
	// RunPenalty counts adjacent sorted pairs differing by exactly 1.
	RunPenalty int `json:"run_penalty"`
	// ParityBalance is |evenCount - oddCount|.
	ParityBalance int `json:"parity_balance"`
	// BucketDiversity counts occupied range buckets.
	BucketDiversity int `json:"bucket_diversity"`
	// SumDeviation is |sum - idealSum| with idealSum = (poolSize/2) × pick.
	SumDeviation float64 `json:"sum_deviation"`
	// CorrelationMean is the mean pairwise correlation score, 0 without
	// correlation context.
	CorrelationMean float64 `json:"correlation_mean"`
	// FrequencyMean is the mean weighted frequency, 0 without
	// statistics context.
	FrequencyMean float64 `json:"frequency_mean"`
}

// Individual is one population member: a candidate with its score.
// Individuals are owned by exactly one generation and replaced
// wholesale when the next generation is bred.
type Individual struct {
	Candidate domain.Candidate `json:"candidate"`
	Fitness   float64          `json:"fitness"`
	Metrics   Metrics          `json:"metrics"`
}

// Result is the final batch returned to the caller.
type Result struct {
	BatchID string             `json:"batch_id,omitempty"`
	Games   []domain.Candidate `json:"games"`
	Scores  []float64          `json:"scores"`
	Metrics []Metrics          `json:"metrics"`
	// DiversityReduced reports that the minimum pairwise Hamming
	// distance could not be satisfied and next-best candidates were
	// admitted instead. Never silently dropped.
	DiversityReduced bool `json:"diversity_reduced"`
	// StructuralOnly reports that optional statistics terms were
	// requested but suppressed because the draw history was below the
	// configured minimum.
	StructuralOnly bool            `json:"structural_only"`
	Strategy       domain.Strategy `json:"strategy"`
	Seed           int64           `json:"seed"`
	SeedProvided   bool            `json:"seed_provided"`
	DrawCount      int             `json:"draw_count"`
	Elapsed        time.Duration   `json:"-"`
	ElapsedMs      int64           `json:"elapsed_ms"`
}
