package lotteries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
lotteries:
  - id: megasena
    name: Mega-Sena
    pool_size: 60
    pick: 6
    draw_days: [tuesday, thursday, saturday]
    ticket_price: "5.00"
  - id: lotofacil
    name: Lotofácil
    pool_size: 25
    pick: 15
    draw_days: [monday, tuesday, wednesday, thursday, friday, saturday]
    ticket_price: "3.00"
    active: false
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lotteries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedFromFile(t *testing.T) {
	repo := testRepo(t)
	seeder := NewSeeder(repo, zerolog.Nop())

	seeded, err := seeder.SeedFromFile(writeCatalog(t, testCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, seeded)

	mega, err := repo.Get("megasena")
	require.NoError(t, err)
	require.NotNil(t, mega)
	assert.Equal(t, 60, mega.PoolSize)
	assert.True(t, mega.Active)
	assert.True(t, mega.TicketPrice.Equal(decimal.RequireFromString("5.00")))

	facil, err := repo.Get("lotofacil")
	require.NoError(t, err)
	require.NotNil(t, facil)
	assert.Equal(t, 15, facil.Pick)
	assert.False(t, facil.Active)
}

func TestSeedPreservesOperatorEdits(t *testing.T) {
	repo := testRepo(t)
	seeder := NewSeeder(repo, zerolog.Nop())
	path := writeCatalog(t, testCatalog)

	_, err := seeder.SeedFromFile(path)
	require.NoError(t, err)

	// Operator renames the game; a reseed must not revert it.
	edited := megaSena()
	edited.Name = "Mega da Virada"
	require.NoError(t, repo.Upsert(edited))

	seeded, err := seeder.SeedFromFile(path)
	require.NoError(t, err)
	assert.Zero(t, seeded)

	got, err := repo.Get("megasena")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mega da Virada", got.Name)
}

func TestSeedRejectsInvalidEntry(t *testing.T) {
	repo := testRepo(t)
	seeder := NewSeeder(repo, zerolog.Nop())

	path := writeCatalog(t, `
lotteries:
  - id: broken
    name: Broken Game
    pool_size: 10
    pick: 20
`)
	_, err := seeder.SeedFromFile(path)
	assert.Error(t, err)
}

func TestSeedMissingFile(t *testing.T) {
	repo := testRepo(t)
	seeder := NewSeeder(repo, zerolog.Nop())

	_, err := seeder.SeedFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
