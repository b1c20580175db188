package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// repairBucketWidth is the fixed range-bucket width used by the
// structural repair rules. Unlike the fitness buckets, which stretch to
// cover small pools evenly, repair always reasons in blocks of ten.
const repairBucketWidth = 10

// EnforcerConfig controls batch selection. MinHammingDistance of 0
// defaults to pick/2; the symmetric difference of two equal-size sets
// is always even, so the effective threshold rounds up to the next
// even count.
type EnforcerConfig struct {
	PoolSize           int
	Pick               int
	MinHammingDistance int
	MaxConsecutive     int
	RepairSamples      int
}

// Enforcer turns a ranked population into the final batch: candidates
// are structurally repaired in rank order, then admitted greedily while
// they keep the configured pairwise Hamming distance from every
// already-admitted game. When the distance constraint cannot fill the
// batch it is relaxed rather than silently dropping games.
type Enforcer struct {
	cfg          EnforcerConfig
	maxPerBucket int
	evaluator    *Evaluator
	rng          *rand.Rand
	log          zerolog.Logger
}

func NewEnforcer(cfg EnforcerConfig, eval *Evaluator, rng *rand.Rand, log zerolog.Logger) *Enforcer {
	if cfg.MinHammingDistance == 0 {
		cfg.MinHammingDistance = cfg.Pick / 2
	}
	if cfg.MaxConsecutive == 0 {
		cfg.MaxConsecutive = DefaultMaxConsecutive
	}
	if cfg.RepairSamples == 0 {
		cfg.RepairSamples = DefaultRepairSamples
	}
	return &Enforcer{
		cfg:          cfg,
		maxPerBucket: int(math.Ceil(float64(cfg.Pick) / 3)),
		evaluator:    eval,
		rng:          rng,
		log:          log,
	}
}

// SelectBatch picks batchSize games from the ranked population. The
// returned flag reports that the Hamming constraint was relaxed or
// that fewer games than requested were available.
func (e *Enforcer) SelectBatch(ranked []Individual, batchSize int) ([]Individual, bool) {
	kept := make([]Individual, 0, batchSize)
	leftovers := make([]Individual, 0, len(ranked))

	for _, ind := range ranked {
		if len(kept) == batchSize {
			break
		}
		fixed := e.repair(ind)
		if e.spaced(fixed.Candidate, kept) {
			kept = append(kept, fixed)
		} else {
			leftovers = append(leftovers, fixed)
		}
	}
	if len(kept) == batchSize {
		return kept, false
	}

	// Relax: admit next-best candidates in rank order, preferring ones
	// not already in the batch, then anything that is left.
	relaxed := false
	admitted := make([]bool, len(leftovers))
	for _, preferDistinct := range []bool{true, false} {
		for i, ind := range leftovers {
			if len(kept) == batchSize {
				break
			}
			if admitted[i] {
				continue
			}
			if preferDistinct && containsCandidate(kept, ind.Candidate) {
				continue
			}
			kept = append(kept, ind)
			admitted[i] = true
			relaxed = true
		}
	}
	if len(kept) < batchSize {
		relaxed = true
		e.log.Warn().
			Int("requested", batchSize).
			Int("selected", len(kept)).
			Msg("population too small to fill batch")
	}
	if relaxed {
		e.log.Debug().
			Int("min_hamming", e.cfg.MinHammingDistance).
			Int("batch_size", batchSize).
			Msg("hamming distance constraint relaxed")
	}
	return kept, relaxed
}

// spaced reports whether c keeps the minimum Hamming distance from
// every already-kept candidate.
func (e *Enforcer) spaced(c domain.Candidate, kept []Individual) bool {
	for _, k := range kept {
		if domain.HammingDistance(c, k.Candidate) < e.cfg.MinHammingDistance {
			return false
		}
	}
	return true
}

func containsCandidate(kept []Individual, c domain.Candidate) bool {
	for _, k := range kept {
		if domain.HammingDistance(c, k.Candidate) == 0 {
			return true
		}
	}
	return false
}

// repair rewrites a candidate until it satisfies the structural rules:
// no run of more than MaxConsecutive consecutive numbers and no more
// than ceil(pick/3) numbers in any single ten-wide range bucket.
// Offending numbers are swapped for the best-scoring of a sampled set
// of unused replacements. Rules that the pool geometry makes
// unsatisfiable are abandoned, never looped on.
func (e *Enforcer) repair(ind Individual) Individual {
	if _, found := e.firstOffender(ind.Candidate); !found {
		return ind
	}
	c := ind.Candidate.Clone()
	for attempts := 0; attempts < 2*len(c); attempts++ {
		v, found := e.firstOffender(c)
		if !found {
			break
		}
		repl, ok := e.bestReplacement(c, v)
		if !ok {
			break
		}
		c = replaceValue(c, v, repl)
	}
	fitness, metrics := e.evaluator.Score(c)
	return Individual{Candidate: c, Fitness: fitness, Metrics: metrics}
}

// firstOffender returns the first number that breaks a structural
// rule: the member extending a run past MaxConsecutive, or the member
// overflowing a range bucket.
func (e *Enforcer) firstOffender(c domain.Candidate) (int, bool) {
	runLen := 1
	for i := 1; i < len(c); i++ {
		if c[i]-c[i-1] == 1 {
			runLen++
		} else {
			runLen = 1
		}
		if runLen > e.cfg.MaxConsecutive {
			return c[i], true
		}
	}
	perBucket := make(map[int]int)
	for _, n := range c {
		b := (n - 1) / repairBucketWidth
		perBucket[b]++
		if perBucket[b] > e.maxPerBucket {
			return n, true
		}
	}
	return 0, false
}

// violationCount counts rule-breaking numbers. Replacements are only
// accepted when they strictly lower this count, which bounds the
// repair loop.
func (e *Enforcer) violationCount(c domain.Candidate) int {
	count := 0
	runLen := 1
	for i := 1; i < len(c); i++ {
		if c[i]-c[i-1] == 1 {
			runLen++
		} else {
			runLen = 1
		}
		if runLen > e.cfg.MaxConsecutive {
			count++
		}
	}
	perBucket := make(map[int]int)
	for _, n := range c {
		b := (n - 1) / repairBucketWidth
		perBucket[b]++
		if perBucket[b] > e.maxPerBucket {
			count++
		}
	}
	return count
}

// bestReplacement picks a substitute for offender v: among unused
// numbers whose swap strictly reduces the violation count, sample up
// to RepairSamples and keep the highest-scoring swap. Returns false
// when no unused number can improve the candidate.
func (e *Enforcer) bestReplacement(c domain.Candidate, v int) (int, bool) {
	current := e.violationCount(c)
	var valid []int
	for n := 1; n <= e.cfg.PoolSize; n++ {
		if c.Contains(n) {
			continue
		}
		if e.violationCount(replaceValue(c, v, n)) < current {
			valid = append(valid, n)
		}
	}
	if len(valid) == 0 {
		return 0, false
	}

	sampled := valid
	if len(valid) > e.cfg.RepairSamples {
		sampled = make([]int, 0, e.cfg.RepairSamples)
		for _, idx := range e.rng.Perm(len(valid))[:e.cfg.RepairSamples] {
			sampled = append(sampled, valid[idx])
		}
	}

	best := sampled[0]
	bestScore, _ := e.evaluator.Score(replaceValue(c, v, best))
	for _, n := range sampled[1:] {
		if score, _ := e.evaluator.Score(replaceValue(c, v, n)); score > bestScore {
			best = n
			bestScore = score
		}
	}
	return best, true
}

func replaceValue(c domain.Candidate, old, repl int) domain.Candidate {
	out := make(domain.Candidate, 0, len(c))
	for _, n := range c {
		if n != old {
			out = append(out, n)
		}
	}
	out = append(out, repl)
	sort.Ints(out)
	return out
}
