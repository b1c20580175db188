package engine

import (
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

// Optimizer runs the genetic search. All randomness flows through the
// single injected *rand.Rand and is drawn only on the coordinating
// goroutine, so a fixed seed reproduces the exact population sequence
// even though fitness evaluation itself runs in parallel.
type Optimizer struct {
	poolSize  int
	pick      int
	params    Params
	evaluator *Evaluator
	rng       *rand.Rand
	pool      *workerPool
	log       zerolog.Logger

	// OnGeneration, when set, observes the best individual after each
	// generation has been evaluated and ranked.
	OnGeneration func(generation int, best Individual)
}

// OptimizerConfig wires an optimizer. Params must already carry
// defaults; the evaluator and RNG are required.
type OptimizerConfig struct {
	PoolSize  int
	Pick      int
	Params    Params
	Evaluator *Evaluator
	RNG       *rand.Rand
	Workers   int
	Log       zerolog.Logger
}

func NewOptimizer(cfg OptimizerConfig) *Optimizer {
	return &Optimizer{
		poolSize:  cfg.PoolSize,
		pick:      cfg.Pick,
		params:    cfg.Params,
		evaluator: cfg.Evaluator,
		rng:       cfg.RNG,
		pool:      newWorkerPool(cfg.Workers),
		log:       cfg.Log,
	}
}

// Run executes the configured number of generations and returns the
// final population ranked by fitness, best first. Every returned
// candidate is sorted, duplicate-free and exactly pick numbers long.
func (o *Optimizer) Run() []Individual {
	population := make([]domain.Candidate, o.params.PopulationSize)
	for i := range population {
		population[i] = o.randomCandidate()
	}
	individuals := o.rank(population)

	eliteCount := o.params.eliteCount()
	if eliteCount > o.params.PopulationSize {
		eliteCount = o.params.PopulationSize
	}

	for gen := 0; gen < o.params.Generations; gen++ {
		next := make([]domain.Candidate, 0, o.params.PopulationSize)
		for i := 0; i < eliteCount; i++ {
			next = append(next, individuals[i].Candidate.Clone())
		}
		for len(next) < o.params.PopulationSize {
			p1 := o.tournament(individuals)
			p2 := o.tournament(individuals)
			child := o.crossover(p1.Candidate, p2.Candidate)
			if o.rng.Float64() < o.params.MutationRate {
				child = o.mutate(child)
			}
			next = append(next, child)
		}
		individuals = o.rank(next)
		if o.OnGeneration != nil {
			o.OnGeneration(gen, individuals[0])
		}
	}

	o.log.Debug().
		Int("generations", o.params.Generations).
		Int("population", o.params.PopulationSize).
		Float64("best_fitness", individuals[0].Fitness).
		Msg("optimization finished")
	return individuals
}

// rank scores a population in parallel and sorts it best first. The
// stable sort keeps equal-fitness individuals in breeding order, which
// the determinism guarantee depends on.
func (o *Optimizer) rank(population []domain.Candidate) []Individual {
	individuals := o.pool.evaluateBatch(population, o.evaluator)
	sort.SliceStable(individuals, func(i, j int) bool {
		return individuals[i].Fitness > individuals[j].Fitness
	})
	return individuals
}

// randomCandidate draws a uniform random k-subset of [1, poolSize],
// sorted ascending.
func (o *Optimizer) randomCandidate() domain.Candidate {
	perm := o.rng.Perm(o.poolSize)
	c := make(domain.Candidate, o.pick)
	for i := 0; i < o.pick; i++ {
		c[i] = perm[i] + 1
	}
	sort.Ints(c)
	return c
}

// tournament samples TournamentSize individuals with replacement and
// returns the fittest.
func (o *Optimizer) tournament(individuals []Individual) Individual {
	best := individuals[o.rng.Intn(len(individuals))]
	for i := 1; i < o.params.TournamentSize; i++ {
		challenger := individuals[o.rng.Intn(len(individuals))]
		if challenger.Fitness > best.Fitness {
			best = challenger
		}
	}
	return best
}

// crossover performs single-point crossover on the sorted parents: a
// cut in [1, pick-1] takes the head of p1 and the tail of p2, dropping
// tail numbers the head already contains. The child is repaired back
// to full length from the parents' remaining numbers and, should both
// be exhausted, from random unused numbers.
func (o *Optimizer) crossover(p1, p2 domain.Candidate) domain.Candidate {
	if o.pick < 2 {
		return p1.Clone()
	}
	cut := 1 + o.rng.Intn(o.pick-1)

	child := make(domain.Candidate, 0, o.pick)
	used := make(map[int]bool, o.pick)
	for _, n := range p1[:cut] {
		child = append(child, n)
		used[n] = true
	}
	for _, n := range p2[cut:] {
		if len(child) == o.pick {
			break
		}
		if !used[n] {
			child = append(child, n)
			used[n] = true
		}
	}
	for _, parent := range []domain.Candidate{p2, p1} {
		for _, n := range parent {
			if len(child) == o.pick {
				break
			}
			if !used[n] {
				child = append(child, n)
				used[n] = true
			}
		}
	}
	for len(child) < o.pick {
		n := 1 + o.rng.Intn(o.poolSize)
		if !used[n] {
			child = append(child, n)
			used[n] = true
		}
	}

	sort.Ints(child)
	return child
}

// mutate swaps one element for a uniformly chosen unused number. A
// candidate spanning the whole pool has nothing to swap in and is
// returned unchanged.
func (o *Optimizer) mutate(c domain.Candidate) domain.Candidate {
	unused := make([]int, 0, o.poolSize-len(c))
	for n := 1; n <= o.poolSize; n++ {
		if !c.Contains(n) {
			unused = append(unused, n)
		}
	}
	if len(unused) == 0 {
		return c
	}
	out := c.Clone()
	out[o.rng.Intn(len(out))] = unused[o.rng.Intn(len(unused))]
	sort.Ints(out)
	return out
}
