package batches

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
)

const batchesColumns = `id, lottery_id, strategy, params, games, scores,
diversity_reduced, structural_only, seed, seed_provided, draw_count, elapsed_ms, created_at`

// Repository handles batch ledger database operations on results.db.
// The ledger is append-only: batches are recorded once and never
// updated or deleted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "batches").Logger(),
	}
}

// Record appends a batch to the ledger. Recording is idempotent on the
// batch id, so re-serving a memoized batch never duplicates its row.
func (r *Repository) Record(b Batch) error {
	params, err := json.Marshal(b.Params)
	if err != nil {
		return fmt.Errorf("failed to encode batch params: %w", err)
	}
	games, err := json.Marshal(b.Games)
	if err != nil {
		return fmt.Errorf("failed to encode batch games: %w", err)
	}
	scores, err := json.Marshal(b.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode batch scores: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT OR IGNORE INTO batches
		(id, lottery_id, strategy, params, games, scores,
		 diversity_reduced, structural_only, seed, seed_provided, draw_count, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.LotteryID,
		string(b.Strategy),
		string(params),
		string(games),
		string(scores),
		boolToInt(b.DiversityReduced),
		boolToInt(b.StructuralOnly),
		b.Seed,
		boolToInt(b.SeedProvided),
		b.DrawCount,
		b.ElapsedMs,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record batch %s: %w", b.ID, err)
	}
	return nil
}

// Get returns a batch by id. Returns nil if the batch does not exist
// (not an error).
func (r *Repository) Get(id string) (*Batch, error) {
	query := "SELECT " + batchesColumns + " FROM batches WHERE id = ?"
	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	batch, err := scanBatch(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return &batch, nil
}

// ListRecent returns the newest batches first, optionally filtered by
// lottery.
func (r *Repository) ListRecent(lotteryID string, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		rows *sql.Rows
		err  error
	)
	if lotteryID != "" {
		query := "SELECT " + batchesColumns + " FROM batches WHERE lottery_id = ? ORDER BY created_at DESC, id LIMIT ?"
		rows, err = r.db.Query(query, lotteryID, limit)
	} else {
		query := "SELECT " + batchesColumns + " FROM batches ORDER BY created_at DESC, id LIMIT ?"
		rows, err = r.db.Query(query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var list []Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		list = append(list, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return list, nil
}

// Count returns the total number of recorded batches, optionally for a
// single lottery.
func (r *Repository) Count(lotteryID string) (int, error) {
	var (
		count int
		err   error
	)
	if lotteryID != "" {
		err = r.db.QueryRow("SELECT COUNT(*) FROM batches WHERE lottery_id = ?", lotteryID).Scan(&count)
	} else {
		err = r.db.QueryRow("SELECT COUNT(*) FROM batches").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

func scanBatch(rows *sql.Rows) (Batch, error) {
	var (
		b                Batch
		strategy         string
		params           string
		games            string
		scores           string
		diversityReduced int
		structuralOnly   int
		seedProvided     int
		createdAt        int64
	)
	err := rows.Scan(&b.ID, &b.LotteryID, &strategy, &params, &games, &scores,
		&diversityReduced, &structuralOnly, &b.Seed, &seedProvided, &b.DrawCount, &b.ElapsedMs, &createdAt)
	if err != nil {
		return Batch{}, err
	}

	if err := json.Unmarshal([]byte(params), &b.Params); err != nil {
		return Batch{}, fmt.Errorf("invalid batch params: %w", err)
	}
	if err := json.Unmarshal([]byte(games), &b.Games); err != nil {
		return Batch{}, fmt.Errorf("invalid batch games: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &b.Scores); err != nil {
		return Batch{}, fmt.Errorf("invalid batch scores: %w", err)
	}

	b.Strategy = domain.Strategy(strategy)
	b.DiversityReduced = diversityReduced != 0
	b.StructuralOnly = structuralOnly != 0
	b.SeedProvided = seedProvided != 0
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	return b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
