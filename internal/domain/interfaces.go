package domain

import "context"

// DrawSource abstracts the external draw-result provider. Implemented
// by the drawfeed client; consumed by the draw sync service. The core
// engine never touches it.
type DrawSource interface {
	// FetchDraws returns draws for the lottery with contest ids greater
	// than sinceContest, oldest first. An empty slice means no new draws.
	FetchDraws(ctx context.Context, lotteryID string, sinceContest int64) ([]Draw, error)
}
