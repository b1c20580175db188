// Package batches keeps the ledger of generated result batches. Every
// generation run that returns to a caller is recorded here, immutably,
// so issued games can always be traced back to their parameters, seed
// and history size.
package batches

import (
	"time"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/engine"
)

// Batch is one recorded generation run.
type Batch struct {
	ID               string             `json:"id"`
	LotteryID        string             `json:"lottery_id"`
	Strategy         domain.Strategy    `json:"strategy"`
	Params           engine.Params      `json:"params"`
	Games            []domain.Candidate `json:"games"`
	Scores           []float64          `json:"scores"`
	DiversityReduced bool               `json:"diversity_reduced"`
	StructuralOnly   bool               `json:"structural_only"`
	Seed             int64              `json:"seed"`
	SeedProvided     bool               `json:"seed_provided"`
	DrawCount        int                `json:"draw_count"`
	ElapsedMs        int64              `json:"elapsed_ms"`
	CreatedAt        time.Time          `json:"created_at"`
}

// FromResult shapes an engine result into its ledger record.
func FromResult(lotteryID string, params engine.Params, res *engine.Result) Batch {
	return Batch{
		ID:               res.BatchID,
		LotteryID:        lotteryID,
		Strategy:         res.Strategy,
		Params:           params,
		Games:            res.Games,
		Scores:           res.Scores,
		DiversityReduced: res.DiversityReduced,
		StructuralOnly:   res.StructuralOnly,
		Seed:             res.Seed,
		SeedProvided:     res.SeedProvided,
		DrawCount:        res.DrawCount,
		ElapsedMs:        res.ElapsedMs,
	}
}
