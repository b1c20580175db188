package draws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/stats"
)

type fakeSource struct {
	draws     []domain.Draw
	err       error
	gotSince  int64
	gotCalled bool
}

func (f *fakeSource) FetchDraws(_ context.Context, _ string, sinceContest int64) ([]domain.Draw, error) {
	f.gotCalled = true
	f.gotSince = sinceContest
	return f.draws, f.err
}

func newTestService(t *testing.T, source domain.DrawSource) (*Service, *stats.Provider) {
	t.Helper()
	repo := testDrawsRepo(t)
	statsProv := stats.NewProvider(stats.NewBuilder(stats.DefaultConfig(), zerolog.Nop()), zerolog.Nop())
	corrProv := correlation.NewProvider(correlation.NewBuilder(correlation.Config{}, zerolog.Nop()), zerolog.Nop())
	return NewService(repo, source, statsProv, corrProv, nil, zerolog.Nop()), statsProv
}

func TestIngestNormalizesNumbers(t *testing.T) {
	svc, _ := newTestService(t, nil)

	draw := sampleDraw(1)
	draw.Numbers = []int{56, 4, 45, 12, 34, 23}
	require.NoError(t, svc.Ingest(draw, 60, 6))

	stored, err := svc.Repo().ListAll("megasena")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []int{4, 12, 23, 34, 45, 56}, stored[0].Numbers)
}

func TestIngestRejectsBadDraws(t *testing.T) {
	svc, _ := newTestService(t, nil)

	tests := []struct {
		name   string
		mutate func(*domain.Draw)
	}{
		{"wrong count", func(d *domain.Draw) { d.Numbers = []int{1, 2, 3} }},
		{"out of pool", func(d *domain.Draw) { d.Numbers = []int{4, 12, 23, 34, 45, 61} }},
		{"duplicate number", func(d *domain.Draw) { d.Numbers = []int{4, 4, 23, 34, 45, 56} }},
		{"zero contest", func(d *domain.Draw) { d.ContestID = 0 }},
		{"missing lottery", func(d *domain.Draw) { d.LotteryID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draw := sampleDraw(1)
			tt.mutate(&draw)
			err := svc.Ingest(draw, 60, 6)
			require.ErrorIs(t, err, domain.ErrInvalidParameter)
		})
	}
}

func TestIngestDefaultsMissingDate(t *testing.T) {
	svc, _ := newTestService(t, nil)

	draw := sampleDraw(1)
	draw.Date = time.Time{}
	require.NoError(t, svc.Ingest(draw, 60, 6))

	stored, err := svc.Repo().ListAll("megasena")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Date.IsZero())
}

func TestIngestInvalidatesStatsSnapshot(t *testing.T) {
	svc, statsProv := newTestService(t, nil)

	// Warm the snapshot cache, then ingest a new draw.
	require.NoError(t, svc.Ingest(sampleDraw(1), 60, 6))
	_, err := statsProv.GetOrBuild("megasena", 60, nil)
	require.NoError(t, err)
	_, cached := statsProv.Snapshot("megasena")
	require.True(t, cached)

	require.NoError(t, svc.Ingest(sampleDraw(2), 60, 6))
	_, cached = statsProv.Snapshot("megasena")
	assert.False(t, cached)
}

func TestSyncFetchesOnlyNewContests(t *testing.T) {
	source := &fakeSource{draws: []domain.Draw{sampleDraw(3), sampleDraw(4)}}
	svc, _ := newTestService(t, source)

	require.NoError(t, svc.Ingest(sampleDraw(1), 60, 6))
	require.NoError(t, svc.Ingest(sampleDraw(2), 60, 6))

	inserted, err := svc.Sync(context.Background(), "megasena", 60, 6)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, int64(2), source.gotSince)

	count, err := svc.Repo().Count("megasena")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestSyncWithoutFeed(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Sync(context.Background(), "megasena", 60, 6)
	assert.Error(t, err)
}

func TestSyncPropagatesFeedError(t *testing.T) {
	source := &fakeSource{err: errors.New("feed down")}
	svc, _ := newTestService(t, source)

	_, err := svc.Sync(context.Background(), "megasena", 60, 6)
	require.Error(t, err)
	assert.True(t, source.gotCalled)
}

func TestSyncNoNewDraws(t *testing.T) {
	source := &fakeSource{}
	svc, _ := newTestService(t, source)

	inserted, err := svc.Sync(context.Background(), "megasena", 60, 6)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}
