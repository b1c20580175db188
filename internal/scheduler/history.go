package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job run outcomes as stored on the history ledger.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one recorded job run.
type Entry struct {
	ID         int64     `json:"id"`
	JobName    string    `json:"job_name"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

// History records job runs in cache.db. The table is operational
// bookkeeping, not domain data; losing it loses nothing but audit.
type History struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistory creates a job history recorder on the cache database.
func NewHistory(db *sql.DB, log zerolog.Logger) *History {
	return &History{
		db:  db,
		log: log.With().Str("repository", "job_history").Logger(),
	}
}

// Record appends one run to the ledger. The duration is derived from
// the start and finish times.
func (h *History) Record(e Entry) error {
	_, err := h.db.Exec(`
		INSERT INTO job_history (job_name, status, detail, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.JobName, e.Status, e.Detail,
		e.StartedAt.Unix(), e.FinishedAt.Unix(),
		e.FinishedAt.Sub(e.StartedAt).Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording job run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first. An empty jobName
// returns runs of every job.
func (h *History) Recent(jobName string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, job_name, status, COALESCE(detail, ''),
		       started_at, COALESCE(finished_at, 0), COALESCE(duration_ms, 0)
		FROM job_history`
	args := []interface{}{}
	if jobName != "" {
		query += " WHERE job_name = ?"
		args = append(args, jobName)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying job history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.ID, &e.JobName, &e.Status, &e.Detail, &started, &finished, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning job history row: %w", err)
		}
		e.StartedAt = time.Unix(started, 0).UTC()
		e.FinishedAt = time.Unix(finished, 0).UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Prune deletes runs that started before the retention window and
// returns how many rows were removed.
func (h *History) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()

	res, err := h.db.Exec("DELETE FROM job_history WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning job history: %w", err)
	}
	return res.RowsAffected()
}
