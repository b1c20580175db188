// Package draws stores and serves historical draw results. History is
// append-only: a (lottery, contest) pair is written once and never
// updated, which keeps every statistics build over it reproducible.
package draws

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lottokit/drawgen/internal/database"
	"github.com/lottokit/drawgen/internal/domain"
)

// dateLayout is the stored draw date format. Draws are calendar events;
// time of day is feed noise and is dropped on write.
const dateLayout = "2006-01-02"

const drawsColumns = `lottery_id, contest_id, draw_date, numbers, prize_pool, jackpot_winners`

// Repository handles draw history database operations on history.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "draws").Logger(),
	}
}

// Insert stores one draw. Returns domain.ErrDuplicateDraw when the
// (lottery, contest) pair already exists.
func (r *Repository) Insert(d domain.Draw) error {
	numbers, err := json.Marshal(d.Numbers)
	if err != nil {
		return fmt.Errorf("failed to encode draw numbers: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT OR IGNORE INTO draws (lottery_id, contest_id, draw_date, numbers, prize_pool, jackpot_winners, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.LotteryID, d.ContestID, d.Date.UTC().Format(dateLayout), string(numbers),
		d.PrizePool.String(), d.JackpotWinners, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert draw %s/%d: %w", d.LotteryID, d.ContestID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("draw %s/%d already recorded: %w", d.LotteryID, d.ContestID, domain.ErrDuplicateDraw)
	}
	return nil
}

// InsertBatch stores many draws in one transaction, silently skipping
// contests already recorded. The batch is atomic: any failure rolls
// the whole import back. Returns the number actually inserted.
func (r *Repository) InsertBatch(batch []domain.Draw) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	inserted := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO draws (lottery_id, contest_id, draw_date, numbers, prize_pool, jackpot_winners, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare draw insert: %w", err)
		}
		defer stmt.Close()

		for _, d := range batch {
			numbers, err := json.Marshal(d.Numbers)
			if err != nil {
				return fmt.Errorf("failed to encode draw numbers: %w", err)
			}
			res, err := stmt.Exec(d.LotteryID, d.ContestID, d.Date.UTC().Format(dateLayout),
				string(numbers), d.PrizePool.String(), d.JackpotWinners, now)
			if err != nil {
				return fmt.Errorf("failed to insert draw %s/%d: %w", d.LotteryID, d.ContestID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			inserted += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListRecent returns the newest draws first, at most limit rows.
func (r *Repository) ListRecent(lotteryID string, limit int) ([]domain.Draw, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + drawsColumns + " FROM draws WHERE lottery_id = ? ORDER BY contest_id DESC LIMIT ?"
	return r.list(query, lotteryID, limit)
}

// ListAll returns the full history most recent first, the order the
// engine and the statistics builders expect (index 0 carries the
// largest recency weight).
func (r *Repository) ListAll(lotteryID string) ([]domain.Draw, error) {
	query := "SELECT " + drawsColumns + " FROM draws WHERE lottery_id = ? ORDER BY contest_id DESC"
	return r.list(query, lotteryID)
}

func (r *Repository) list(query string, args ...interface{}) ([]domain.Draw, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	var draws []domain.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}
	return draws, nil
}

// LatestContest returns the highest recorded contest id for a lottery,
// 0 when no history exists.
func (r *Repository) LatestContest(lotteryID string) (int64, error) {
	var latest sql.NullInt64
	err := r.db.QueryRow(
		"SELECT MAX(contest_id) FROM draws WHERE lottery_id = ?", lotteryID,
	).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest contest: %w", err)
	}
	return latest.Int64, nil
}

// Count returns the number of stored draws for a lottery.
func (r *Repository) Count(lotteryID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM draws WHERE lottery_id = ?", lotteryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return count, nil
}

func scanDraw(rows *sql.Rows) (domain.Draw, error) {
	var (
		d         domain.Draw
		date      string
		numbers   string
		prizePool string
	)
	if err := rows.Scan(&d.LotteryID, &d.ContestID, &date, &numbers, &prizePool, &d.JackpotWinners); err != nil {
		return domain.Draw{}, err
	}

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return domain.Draw{}, fmt.Errorf("invalid draw date %q: %w", date, err)
	}
	d.Date = parsed

	if err := json.Unmarshal([]byte(numbers), &d.Numbers); err != nil {
		return domain.Draw{}, fmt.Errorf("invalid draw numbers %q: %w", numbers, err)
	}

	pool, err := decimal.NewFromString(prizePool)
	if err != nil {
		return domain.Draw{}, fmt.Errorf("invalid prize pool %q: %w", prizePool, err)
	}
	d.PrizePool = pool
	return d, nil
}
