package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(nil, zerolog.Nop())

	err := s.AddJob("whenever", &stubJob{name: "tick"})
	require.Error(t, err)
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(nil, zerolog.Nop())
	job := &stubJob{name: "tick"}

	require.NoError(t, s.AddJob("* * * * * *", job))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRunNowRecordsHistory(t *testing.T) {
	history := NewHistory(openTestDB(t, jobHistoryDDL), zerolog.Nop())
	s := New(history, zerolog.Nop())

	require.NoError(t, s.RunNow(&stubJob{name: "good"}))
	require.Error(t, s.RunNow(&stubJob{name: "bad", err: errors.New("feed down")}))

	entries, err := history.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first: the failing run was recorded last.
	assert.Equal(t, "bad", entries[0].JobName)
	assert.Equal(t, StatusError, entries[0].Status)
	assert.Equal(t, "feed down", entries[0].Detail)

	assert.Equal(t, "good", entries[1].JobName)
	assert.Equal(t, StatusOK, entries[1].Status)
	assert.Empty(t, entries[1].Detail)
}

func TestRunNowWithoutHistory(t *testing.T) {
	s := New(nil, zerolog.Nop())

	require.NoError(t, s.RunNow(&stubJob{name: "solo"}))
}

type panickyJob struct{}

func (j *panickyJob) Name() string { return "panicky" }
func (j *panickyJob) Run() error   { panic("nil map write") }

func TestRunNowRecoversPanic(t *testing.T) {
	history := NewHistory(openTestDB(t, jobHistoryDDL), zerolog.Nop())
	s := New(history, zerolog.Nop())

	err := s.RunNow(&panickyJob{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	// The crash still lands on the ledger as a failed run.
	entries, err := history.Recent("panicky", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusError, entries[0].Status)
	assert.Contains(t, entries[0].Detail, "nil map write")
}
