package engine

import (
	"runtime"
	"sync"

	"github.com/lottokit/drawgen/internal/domain"
)

// workerPool fans candidate scoring out across goroutines. Scoring is
// pure, so only the candidates travel through the channels and results
// are written back by index; the output order is the input order no
// matter how the workers interleave. Randomness never enters the pool,
// which keeps seeded runs reproducible.
type workerPool struct {
	numWorkers int
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: numWorkers}
}

type scoreJob struct {
	index     int
	candidate domain.Candidate
}

type scoreResult struct {
	index      int
	individual Individual
}

// evaluateBatch scores all candidates with eval and returns the
// individuals in input order.
func (wp *workerPool) evaluateBatch(candidates []domain.Candidate, eval *Evaluator) []Individual {
	numCandidates := len(candidates)
	if numCandidates == 0 {
		return nil
	}

	jobs := make(chan scoreJob, numCandidates)
	results := make(chan scoreResult, numCandidates)

	numActualWorkers := wp.numWorkers
	if numActualWorkers > numCandidates {
		numActualWorkers = numCandidates
	}

	var wg sync.WaitGroup
	for w := 0; w < numActualWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				fitness, metrics := eval.Score(job.candidate)
				results <- scoreResult{
					index: job.index,
					individual: Individual{
						Candidate: job.candidate,
						Fitness:   fitness,
						Metrics:   metrics,
					},
				}
			}
		}()
	}

	for i, c := range candidates {
		jobs <- scoreJob{index: i, candidate: c}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	individuals := make([]Individual, numCandidates)
	for r := range results {
		individuals[r.index] = r.individual
	}
	return individuals
}
