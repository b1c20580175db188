// Package cache provides a sqlite-backed TTL cache for memoized engine
// results and other ephemeral values. Payloads are msgpack-encoded.
package cache

import (
	"database/sql"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache provides key-value storage with expiration on cache.db.
// The generation service memoizes result batches here; the engine
// itself is safely callable without any cache.
type Cache struct {
	db *sql.DB
}

// New creates a new cache instance.
func New(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Set stores a msgpack-encoded value under key with the given TTL.
// The lotteryID tags the entry so a lottery's entries can be
// invalidated together when its draw history changes.
func (c *Cache) Set(key string, value interface{}, lotteryID string, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = c.db.Exec(`
		INSERT INTO engine_cache (key, value, lottery_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			lottery_id = excluded.lottery_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, key, data, lotteryID, now, now+int64(ttl.Seconds()))
	return err
}

// Get retrieves a value and msgpack-decodes it into dest.
// Returns sql.ErrNoRows if the key doesn't exist or is expired.
func (c *Cache) Get(key string, dest interface{}) error {
	var data []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT value, expires_at FROM engine_cache WHERE key = ?", key).Scan(&data, &expiresAt)
	if err != nil {
		return err
	}

	if time.Now().Unix() >= expiresAt {
		return sql.ErrNoRows
	}

	return msgpack.Unmarshal(data, dest)
}

// Delete removes a cache entry.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM engine_cache WHERE key = ?", key)
	return err
}

// InvalidateLottery removes all entries tagged with the lottery.
// Called when new draws are ingested so stale batches are never served.
func (c *Cache) InvalidateLottery(lotteryID string) error {
	_, err := c.db.Exec("DELETE FROM engine_cache WHERE lottery_id = ?", lotteryID)
	return err
}

// DeleteExpired purges expired rows. Returns the number removed.
func (c *Cache) DeleteExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM engine_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Len returns the number of live (unexpired) entries.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM engine_cache WHERE expires_at > ?", time.Now().Unix()).Scan(&n)
	return n, err
}
