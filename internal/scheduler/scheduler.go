// Package scheduler runs the background jobs: draw sync, statistics
// refresh, cache cleanup, database maintenance and remote backups.
// Every run is recorded on the job history ledger in cache.db.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	history *History
	log     zerolog.Logger
}

// New creates a new scheduler. Overlapping runs of the same job are
// skipped rather than queued. The history recorder may be nil.
func New(history *History, log zerolog.Logger) *Scheduler {
	slog := log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: slog})),
		),
		history: history,
		log:     slog,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 9 * * MON-FRI"  - 9 AM weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

// run executes the job, converting a panic into a recorded failure so
// one broken job cannot take the process down.
func (s *Scheduler) run(job Job) (err error) {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	started := time.Now()

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
			}
		}()
		err = job.Run()
	}()
	finished := time.Now()

	s.record(job.Name(), started, finished, err)

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return err
	}

	s.log.Debug().
		Str("job", job.Name()).
		Dur("duration", finished.Sub(started)).
		Msg("Job completed")

	return nil
}

// record writes the run to the history ledger. A failed write only
// logs; job outcomes never depend on the ledger being reachable.
func (s *Scheduler) record(name string, started, finished time.Time, runErr error) {
	if s.history == nil {
		return
	}

	entry := Entry{
		JobName:    name,
		Status:     StatusOK,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if runErr != nil {
		entry.Status = StatusError
		entry.Detail = runErr.Error()
	}

	if err := s.history.Record(entry); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("Failed to record job history")
	}
}

// cronLogger adapts zerolog to the cron.Logger interface used by the
// skip-if-still-running chain.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
