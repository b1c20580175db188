package lotteries

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// lotteriesColumns lists the lotteries table columns explicitly so a
// schema change cannot silently shift scan positions.
const lotteriesColumns = `id, name, pool_size, pick, draw_days, ticket_price, active, created_at, updated_at`

// Repository handles lottery catalog database operations on catalog.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "lotteries").Logger(),
	}
}

// Get returns a lottery by its slug. Returns nil if the lottery does
// not exist (not an error).
func (r *Repository) Get(id string) (*Lottery, error) {
	query := "SELECT " + lotteriesColumns + " FROM lotteries WHERE id = ?"
	row := r.db.QueryRow(query, normalizeID(id))

	lottery, err := scanLottery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery %s: %w", id, err)
	}
	return &lottery, nil
}

// GetAll returns every lottery in the catalog, active or not, ordered
// by slug.
func (r *Repository) GetAll() ([]Lottery, error) {
	return r.list("SELECT " + lotteriesColumns + " FROM lotteries ORDER BY id")
}

// GetActive returns the lotteries available for generation.
func (r *Repository) GetActive() ([]Lottery, error) {
	return r.list("SELECT " + lotteriesColumns + " FROM lotteries WHERE active = 1 ORDER BY id")
}

func (r *Repository) list(query string, args ...interface{}) ([]Lottery, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lotteries: %w", err)
	}
	defer rows.Close()

	var lotteries []Lottery
	for rows.Next() {
		lottery, err := scanLottery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lottery: %w", err)
		}
		lotteries = append(lotteries, lottery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lotteries: %w", err)
	}
	return lotteries, nil
}

// Upsert inserts or replaces a lottery definition. CreatedAt is
// preserved for existing rows.
func (r *Repository) Upsert(l Lottery) error {
	if err := l.Validate(); err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err := r.db.Exec(`
		INSERT INTO lotteries (id, name, pool_size, pick, draw_days, ticket_price, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			pool_size = excluded.pool_size,
			pick = excluded.pick,
			draw_days = excluded.draw_days,
			ticket_price = excluded.ticket_price,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, normalizeID(l.ID), l.Name, l.PoolSize, l.Pick, joinDrawDays(l.DrawDays),
		l.TicketPrice.String(), boolToInt(l.Active), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert lottery %s: %w", l.ID, err)
	}
	return nil
}

// SetActive toggles a lottery without touching its definition.
// Returns false if the lottery does not exist.
func (r *Repository) SetActive(id string, active bool) (bool, error) {
	res, err := r.db.Exec(
		"UPDATE lotteries SET active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now().Unix(), normalizeID(id),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update lottery %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a lottery from the catalog. Idempotent.
func (r *Repository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM lotteries WHERE id = ?", normalizeID(id))
	if err != nil {
		return fmt.Errorf("failed to delete lottery %s: %w", id, err)
	}
	return nil
}

// Count returns the number of catalog entries.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM lotteries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count lotteries: %w", err)
	}
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLottery(s scanner) (Lottery, error) {
	var (
		l           Lottery
		drawDays    string
		ticketPrice string
		active      int
		createdAt   int64
		updatedAt   int64
	)
	err := s.Scan(&l.ID, &l.Name, &l.PoolSize, &l.Pick, &drawDays, &ticketPrice, &active, &createdAt, &updatedAt)
	if err != nil {
		return Lottery{}, err
	}

	l.DrawDays = splitDrawDays(drawDays)
	l.Active = active != 0
	l.CreatedAt = time.Unix(createdAt, 0).UTC()
	l.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	price, err := decimal.NewFromString(ticketPrice)
	if err != nil {
		return Lottery{}, fmt.Errorf("invalid ticket price %q: %w", ticketPrice, err)
	}
	l.TicketPrice = price
	return l, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
