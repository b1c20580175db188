package lotteries

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupLotteriesTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE lotteries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			pool_size INTEGER NOT NULL,
			pick INTEGER NOT NULL,
			draw_days TEXT NOT NULL DEFAULT '',
			ticket_price TEXT NOT NULL DEFAULT '0',
			active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)
	return db
}

func testRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupLotteriesTestDB(t), zerolog.Nop())
}

func megaSena() Lottery {
	return Lottery{
		ID:          "megasena",
		Name:        "Mega-Sena",
		PoolSize:    60,
		Pick:        6,
		DrawDays:    []string{"tuesday", "thursday", "saturday"},
		TicketPrice: decimal.RequireFromString("5.00"),
		Active:      true,
	}
}

func TestUpsertAndGet(t *testing.T) {
	repo := testRepo(t)

	require.NoError(t, repo.Upsert(megaSena()))

	got, err := repo.Get("megasena")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Mega-Sena", got.Name)
	assert.Equal(t, 60, got.PoolSize)
	assert.Equal(t, 6, got.Pick)
	assert.Equal(t, []string{"tuesday", "thursday", "saturday"}, got.DrawDays)
	assert.True(t, got.TicketPrice.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, got.Active)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissingReturnsNil(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetNormalizesID(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.Upsert(megaSena()))

	got, err := repo.Get("  MegaSena  ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "megasena", got.ID)
}

func TestUpsertOverwritesDefinition(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.Upsert(megaSena()))

	updated := megaSena()
	updated.Name = "Mega-Sena Especial"
	updated.TicketPrice = decimal.RequireFromString("6.50")
	require.NoError(t, repo.Upsert(updated))

	got, err := repo.Get("megasena")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mega-Sena Especial", got.Name)
	assert.True(t, got.TicketPrice.Equal(decimal.RequireFromString("6.50")))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertRejectsInvalidGeometry(t *testing.T) {
	repo := testRepo(t)

	bad := megaSena()
	bad.Pick = 61
	assert.Error(t, repo.Upsert(bad))

	bad = megaSena()
	bad.PoolSize = 0
	assert.Error(t, repo.Upsert(bad))

	bad = megaSena()
	bad.ID = "  "
	assert.Error(t, repo.Upsert(bad))
}

func TestGetActiveFiltersInactive(t *testing.T) {
	repo := testRepo(t)

	require.NoError(t, repo.Upsert(megaSena()))
	quina := Lottery{ID: "quina", Name: "Quina", PoolSize: 80, Pick: 5, Active: true}
	require.NoError(t, repo.Upsert(quina))

	ok, err := repo.SetActive("quina", false)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := repo.GetActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "megasena", active[0].ID)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetActiveMissingLottery(t *testing.T) {
	repo := testRepo(t)

	ok, err := repo.SetActive("ghost", true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := testRepo(t)
	require.NoError(t, repo.Upsert(megaSena()))

	require.NoError(t, repo.Delete("megasena"))
	require.NoError(t, repo.Delete("megasena"))

	got, err := repo.Get("megasena")
	require.NoError(t, err)
	assert.Nil(t, got)
}
