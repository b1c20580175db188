package domain

import "errors"

// Sentinel errors shared across modules. Handlers branch on these with
// errors.Is to choose HTTP status codes.
var (
	// ErrInvalidParameter marks request validation failures. Fatal to
	// the call; no partial result is produced.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotFound marks lookups of lotteries, batches or draws that do
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateDraw marks an ingest of a contest id already recorded
	// for the lottery.
	ErrDuplicateDraw = errors.New("duplicate draw")
)
