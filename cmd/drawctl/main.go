// Package main is drawctl, the operator CLI for drawgen. It works on
// the same sqlite databases as the server: bulk draw imports, offline
// batch generation, statistics tables and catalog seeding, all without
// going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/di"
	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/batches"
	"github.com/lottokit/drawgen/internal/modules/engine"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
	"github.com/lottokit/drawgen/pkg/logger"
)

// CLI defines the drawctl command tree.
type CLI struct {
	DBDir  string `help:"Data directory holding the sqlite databases." name:"db-dir"`
	Config string `help:"Path to an env file loaded before the environment." type:"existingfile"`
	Debug  bool   `help:"Enable debug logs."`

	Import   ImportCmd   `cmd:"" help:"Bulk-import draw history from a JSON file."`
	Generate GenerateCmd `cmd:"" help:"Generate a game batch straight from the engine."`
	Stats    StatsCmd    `cmd:"" help:"Print the statistics tier table for a lottery."`
	Seed     SeedCmd     `cmd:"" help:"Seed the lottery catalog from a YAML file."`
}

// runContext carries the wired application into the subcommands.
// Logs go to stderr so table output on stdout stays pipeable.
type runContext struct {
	cfg *config.Config
	log zerolog.Logger
}

func (rc *runContext) wire() (*di.Container, error) {
	return di.Wire(rc.cfg, rc.log)
}

// lookupLottery resolves a catalog entry or fails with a usable message.
func lookupLottery(container *di.Container, id string) (*lotteries.Lottery, error) {
	lottery, err := container.LotteryRepo.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery %q: %w", id, err)
	}
	if lottery == nil {
		return nil, fmt.Errorf("lottery %q not found in the catalog", id)
	}
	return lottery, nil
}

// ImportCmd bulk-imports draws from a JSON file. The file holds an
// array of draw objects; the lottery flag overrides any lottery_id
// carried in the file.
type ImportCmd struct {
	Lottery string `help:"Lottery ID." required:""`
	File    string `help:"Path to the draws JSON file." required:"" type:"existingfile"`
}

func (c *ImportCmd) Run(rc *runContext) error {
	container, err := rc.wire()
	if err != nil {
		return err
	}
	defer container.Close()

	lottery, err := lookupLottery(container, c.Lottery)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	var draws []domain.Draw
	if err := json.Unmarshal(raw, &draws); err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	for i := range draws {
		draws[i].LotteryID = lottery.ID
	}

	inserted, err := container.DrawService.IngestBatch(draws, lottery.PoolSize, lottery.Pick)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %d new draws for %s (%d in file)\n", inserted, lottery.ID, len(draws))
	return nil
}

// GenerateCmd runs the engine offline and prints the batch as a table.
// The run is recorded on the issued-batch ledger exactly like an API
// generation.
type GenerateCmd struct {
	Lottery  string `help:"Lottery ID." required:""`
	Games    int    `help:"Number of games in the batch." default:"5"`
	Strategy string `help:"Strategy: structural, hot, cold, mixed or correlated." default:"structural"`
	Seed     *int64 `help:"Seed for a reproducible batch."`
}

func (c *GenerateCmd) Run(rc *runContext) error {
	container, err := rc.wire()
	if err != nil {
		return err
	}
	defer container.Close()

	lottery, err := lookupLottery(container, c.Lottery)
	if err != nil {
		return err
	}

	history, err := container.DrawRepo.ListAll(lottery.ID)
	if err != nil {
		return fmt.Errorf("failed to load draw history: %w", err)
	}

	req := engine.Request{
		LotteryID: lottery.ID,
		PoolSize:  lottery.PoolSize,
		Pick:      lottery.Pick,
		NumGames:  c.Games,
		Strategy:  domain.Strategy(c.Strategy),
		Params:    engine.Params{Seed: c.Seed},
		Draws:     history,
	}

	result, err := container.Engine.Generate(context.Background(), req)
	if err != nil {
		return err
	}

	if err := container.BatchRepo.Record(batches.FromResult(lottery.ID, req.Params, result)); err != nil {
		rc.log.Error().Err(err).Str("batch_id", result.BatchID).Msg("Failed to record batch")
	}

	fmt.Printf("Batch %s  strategy=%s  seed=%d  draws=%d  elapsed=%dms\n",
		result.BatchID, result.Strategy, result.Seed, result.DrawCount, result.ElapsedMs)
	if result.StructuralOnly {
		fmt.Println("Note: draw history below minimum, statistics terms suppressed")
	}
	if result.DiversityReduced {
		fmt.Println("Note: minimum pairwise distance relaxed to fill the batch")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tNUMBERS\tSCORE")
	for i, game := range result.Games {
		fmt.Fprintf(w, "%d\t%s\t%.4f\n", i+1, joinNumbers(game), result.Scores[i])
	}
	return w.Flush()
}

// StatsCmd prints the per-number statistics table, hot numbers first.
type StatsCmd struct {
	Lottery string `help:"Lottery ID." required:""`
}

func (c *StatsCmd) Run(rc *runContext) error {
	container, err := rc.wire()
	if err != nil {
		return err
	}
	defer container.Close()

	lottery, err := lookupLottery(container, c.Lottery)
	if err != nil {
		return err
	}

	history, err := container.DrawRepo.ListAll(lottery.ID)
	if err != nil {
		return fmt.Errorf("failed to load draw history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no draw history for %s, import draws first", lottery.ID)
	}

	snap, err := container.StatsProvider.GetOrBuild(lottery.ID, lottery.PoolSize, history)
	if err != nil {
		return fmt.Errorf("failed to build statistics: %w", err)
	}

	stats := make([]int, len(snap.Stats))
	for i := range snap.Stats {
		stats[i] = i
	}
	sort.SliceStable(stats, func(a, b int) bool {
		return snap.Stats[stats[a]].WeightedFrequency > snap.Stats[stats[b]].WeightedFrequency
	})

	fmt.Printf("Statistics for %s  draws=%d  latest_contest=%d\n",
		lottery.ID, snap.DrawCount, snap.LatestContest)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tTIER\tWEIGHTED\tRAW\tLAST SEEN")
	for _, idx := range stats {
		st := snap.Stats[idx]
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%d\t%d draws ago\n",
			st.Number, st.Tier, st.WeightedFrequency, st.RawFrequency, st.DrawsSinceLastSeen)
	}
	return w.Flush()
}

// SeedCmd loads lottery definitions into the catalog.
type SeedCmd struct {
	File string `help:"Path to the lottery catalog YAML file." default:"configs/lotteries.yaml" type:"existingfile"`
}

func (c *SeedCmd) Run(rc *runContext) error {
	container, err := rc.wire()
	if err != nil {
		return err
	}
	defer container.Close()

	seeded, err := container.Seeder.SeedFromFile(c.File)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d lotteries from %s\n", seeded, c.File)
	return nil
}

func joinNumbers(game domain.Candidate) string {
	parts := make([]string, len(game))
	for i, n := range game {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("drawctl"),
		kong.Description("Operator CLI for the drawgen lottery number generation service."),
		kong.UsageOnError(),
	)

	// Flag-named env file wins over the ambient .env; godotenv never
	// overrides variables already set.
	if cli.Config != "" {
		ctx.FatalIfErrorf(godotenv.Load(cli.Config))
	}

	cfg, err := config.Load()
	if err != nil {
		ctx.FatalIfErrorf(err)
	}
	if cli.DBDir != "" {
		cfg.DataDir = cli.DBDir
	}

	level := cfg.LogLevel
	if cli.Debug {
		level = "debug"
	}
	log := logger.NewWithWriter(os.Stderr, logger.Config{Level: level, Pretty: true})

	err = ctx.Run(&runContext{cfg: cfg, log: log})
	ctx.FatalIfErrorf(err)
}
