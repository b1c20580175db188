// Package domain provides core domain models shared by all modules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Draw represents one historical drawing of a lottery game.
// Draws are immutable once recorded. Numbers is stored sorted ascending
// and contains exactly the game's pick count, all values unique and
// within [1, poolSize].
type Draw struct {
	Date           time.Time       `json:"date"`
	LotteryID      string          `json:"lottery_id"`
	Numbers        []int           `json:"numbers"`
	PrizePool      decimal.Decimal `json:"prize_pool"`
	ContestID      int64           `json:"contest_id"`
	JackpotWinners int             `json:"jackpot_winners"`
}

// Strategy selects which optional fitness terms are active during
// generation. All variants share one engine code path; only the weight
// configuration differs.
type Strategy string

const (
	// StrategyStructural scores candidates on structure alone.
	StrategyStructural Strategy = "structural"
	// StrategyHot rewards numbers with high recent weighted frequency.
	StrategyHot Strategy = "hot"
	// StrategyCold rewards overdue numbers (low weighted frequency).
	StrategyCold Strategy = "cold"
	// StrategyMixed blends frequency and correlation terms.
	StrategyMixed Strategy = "mixed"
	// StrategyCorrelated rewards historically co-occurring pairs.
	StrategyCorrelated Strategy = "correlated"
)

// Valid reports whether s is a known strategy. The empty string is
// accepted and treated as StrategyStructural.
func (s Strategy) Valid() bool {
	switch s {
	case "", StrategyStructural, StrategyHot, StrategyCold, StrategyMixed, StrategyCorrelated:
		return true
	}
	return false
}

// Strategies lists all selectable strategy variants.
func Strategies() []Strategy {
	return []Strategy{StrategyStructural, StrategyHot, StrategyCold, StrategyMixed, StrategyCorrelated}
}
