// Package lotteries manages the lottery game catalog: the pool
// geometry, schedule and pricing of every game the system can generate
// numbers for. The catalog lives in catalog.db and is seeded from a
// YAML file on first start.
package lotteries

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lottokit/drawgen/internal/domain"
)

// Lottery describes one game in the catalog. ID is a stable slug used
// in URLs, draw records and cache tags.
type Lottery struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PoolSize    int             `json:"pool_size"`
	Pick        int             `json:"pick"`
	DrawDays    []string        `json:"draw_days"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate checks the catalog invariants before a lottery is stored.
func (l Lottery) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("lottery id must not be empty: %w", domain.ErrInvalidParameter)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("lottery name must not be empty: %w", domain.ErrInvalidParameter)
	}
	if l.PoolSize < 1 {
		return fmt.Errorf("pool_size must be positive, got %d: %w", l.PoolSize, domain.ErrInvalidParameter)
	}
	if l.Pick < 1 || l.Pick > l.PoolSize {
		return fmt.Errorf("pick must be within [1, %d], got %d: %w", l.PoolSize, l.Pick, domain.ErrInvalidParameter)
	}
	if l.TicketPrice.IsNegative() {
		return fmt.Errorf("ticket_price must not be negative: %w", domain.ErrInvalidParameter)
	}
	return nil
}

// joinDrawDays flattens the draw day list for storage.
func joinDrawDays(days []string) string {
	return strings.Join(days, ",")
}

// splitDrawDays restores the draw day list from its stored form.
func splitDrawDays(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
