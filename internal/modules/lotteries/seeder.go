package lotteries

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk catalog format.
type seedFile struct {
	Lotteries []seedLottery `yaml:"lotteries"`
}

type seedLottery struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	PoolSize    int      `yaml:"pool_size"`
	Pick        int      `yaml:"pick"`
	DrawDays    []string `yaml:"draw_days"`
	TicketPrice string   `yaml:"ticket_price"`
	Active      *bool    `yaml:"active"`
}

// Seeder populates the catalog from a YAML file. Seeding only inserts
// games that are missing; existing rows are left alone so operator
// edits survive restarts.
type Seeder struct {
	repo *Repository
	log  zerolog.Logger
}

func NewSeeder(repo *Repository, log zerolog.Logger) *Seeder {
	return &Seeder{
		repo: repo,
		log:  log.With().Str("component", "lottery_seeder").Logger(),
	}
}

// SeedFromFile loads the YAML catalog at path and inserts any games
// not yet present. Returns the number of games inserted. A missing
// file is an error; an empty catalog is not.
func (s *Seeder) SeedFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read lottery catalog %s: %w", path, err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse lottery catalog %s: %w", path, err)
	}

	seeded := 0
	for _, entry := range file.Lotteries {
		lottery, err := entry.toLottery()
		if err != nil {
			return seeded, fmt.Errorf("invalid catalog entry %q: %w", entry.ID, err)
		}

		existing, err := s.repo.Get(lottery.ID)
		if err != nil {
			return seeded, err
		}
		if existing != nil {
			continue
		}

		if err := s.repo.Upsert(lottery); err != nil {
			return seeded, err
		}
		s.log.Info().
			Str("lottery_id", lottery.ID).
			Int("pool_size", lottery.PoolSize).
			Int("pick", lottery.Pick).
			Msg("Seeded lottery")
		seeded++
	}
	return seeded, nil
}

func (e seedLottery) toLottery() (Lottery, error) {
	price := decimal.Zero
	if e.TicketPrice != "" {
		parsed, err := decimal.NewFromString(e.TicketPrice)
		if err != nil {
			return Lottery{}, fmt.Errorf("invalid ticket_price %q: %w", e.TicketPrice, err)
		}
		price = parsed
	}
	active := true
	if e.Active != nil {
		active = *e.Active
	}
	lottery := Lottery{
		ID:          e.ID,
		Name:        e.Name,
		PoolSize:    e.PoolSize,
		Pick:        e.Pick,
		DrawDays:    e.DrawDays,
		TicketPrice: price,
		Active:      active,
	}
	if err := lottery.Validate(); err != nil {
		return Lottery{}, err
	}
	return lottery, nil
}
