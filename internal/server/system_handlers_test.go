package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottokit/drawgen/internal/database"
	"github.com/lottokit/drawgen/internal/scheduler"
)

type stubJob struct {
	name string
	runs atomic.Int32
}

func (j *stubJob) Run() error {
	j.runs.Add(1)
	return nil
}

func (j *stubJob) Name() string { return j.name }

type systemEnv struct {
	handlers *SystemHandlers
	history  *scheduler.History
	jobs     map[string]scheduler.Job
	dataDir  string
}

func newSystemEnv(t *testing.T, jobs map[string]scheduler.Job) *systemEnv {
	t.Helper()
	log := zerolog.Nop()
	dataDir := t.TempDir()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })
	require.NoError(t, cacheDB.Migrate())

	history := scheduler.NewHistory(cacheDB.Conn(), log)
	sched := scheduler.New(history, log)

	if jobs == nil {
		jobs = map[string]scheduler.Job{}
	}

	handlers := NewSystemHandlers(SystemConfig{
		Log:       log,
		DataDir:   dataDir,
		Databases: map[string]*database.DB{"cache": cacheDB},
		Scheduler: sched,
		History:   history,
		Jobs:      jobs,
	})

	return &systemEnv{handlers: handlers, history: history, jobs: jobs, dataDir: dataDir}
}

func TestHandleSystemStatus(t *testing.T) {
	env := newSystemEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()

	env.handlers.HandleSystemStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "dev", response.Version)
	assert.Greater(t, response.Goroutines, 0)
	require.Contains(t, response.Databases, "cache")
	assert.True(t, response.Databases["cache"].Healthy)
	assert.Greater(t, response.Databases["cache"].SizeBytes, int64(0))
}

func TestHandleJobsStatus(t *testing.T) {
	env := newSystemEnv(t, map[string]scheduler.Job{
		"draw_sync":     &stubJob{name: "draw_sync"},
		"cache_cleanup": &stubJob{name: "cache_cleanup"},
	})

	started := time.Now().Add(-time.Minute)
	require.NoError(t, env.history.Record(scheduler.Entry{
		JobName:    "draw_sync",
		Status:     scheduler.StatusOK,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil)
	rec := httptest.NewRecorder()

	env.handlers.HandleJobsStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response JobsStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, 2, response.TotalJobs)
	assert.Equal(t, []string{"cache_cleanup", "draw_sync"}, response.Registered)
	require.Len(t, response.Recent, 1)
	assert.Equal(t, "draw_sync", response.Recent[0].JobName)
	assert.Equal(t, scheduler.StatusOK, response.Recent[0].Status)
}

func TestHandleTriggerJob(t *testing.T) {
	job := &stubJob{name: "draw_sync"}
	env := newSystemEnv(t, map[string]scheduler.Job{"draw_sync": job})

	router := chi.NewRouter()
	router.Post("/api/system/jobs/{name}", env.handlers.HandleTriggerJob)

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/draw_sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "success", response["status"])
	assert.Equal(t, "Job draw_sync triggered successfully", response["message"])

	// The trigger runs asynchronously and lands on the history ledger.
	require.Eventually(t, func() bool {
		return job.runs.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		entries, err := env.history.Recent("draw_sync", 5)
		return err == nil && len(entries) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHandleTriggerJobUnknown(t *testing.T) {
	env := newSystemEnv(t, nil)

	router := chi.NewRouter()
	router.Post("/api/system/jobs/{name}", env.handlers.HandleTriggerJob)

	req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "error", response["status"])
}

func TestHandleTriggerBackupNotConfigured(t *testing.T) {
	env := newSystemEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/system/backup", nil)
	rec := httptest.NewRecorder()

	env.handlers.HandleTriggerBackup(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "error", response["status"])
	assert.Equal(t, "Backup job not registered", response["message"])
}

func TestHandleTriggerBackupRegistered(t *testing.T) {
	job := &stubJob{name: "backup"}
	env := newSystemEnv(t, map[string]scheduler.Job{"backup": job})

	req := httptest.NewRequest(http.MethodPost, "/api/system/backup", nil)
	rec := httptest.NewRecorder()

	env.handlers.HandleTriggerBackup(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "success", response["status"])

	require.Eventually(t, func() bool {
		return job.runs.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)
}
