package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/persistence"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type countingRunRecorder struct {
	running atomic.Int64
	peak    atomic.Int64
}

func (c *countingRunRecorder) IncRunning() {
	n := c.running.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (c *countingRunRecorder) DecRunning() { c.running.Add(-1) }

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.PollInterval = 20 * time.Millisecond
	cfg.JobTimeout = time.Second
	cfg.StaleAfter = time.Hour
	cfg.ReapInterval = 0
	cfg.RetryPolicy = syncjob.RetryPolicy{}
	return cfg
}

type runnerFixture struct {
	service   *Service
	executors *ExecutorRegistry
	runner    *Runner
	recorder  *countingRunRecorder
}

func newRunnerFixture(t *testing.T, cfg Config, exec Executor) *runnerFixture {
	t.Helper()
	f := &runnerFixture{
		executors: NewExecutorRegistry(),
		recorder:  &countingRunRecorder{},
	}
	f.service = NewService(
		persistence.NewInMemorySyncJobRepository(),
		persistence.NewInMemorySyncHistoryRepository(),
		cfg, nil,
	)
	if exec != nil {
		require.NoError(t, f.executors.Register(syncjob.JobTypeDatasetSync, exec))
	}
	f.runner = NewRunner(f.service, f.executors, cfg, nil, WithRunRecorder(f.recorder))
	require.NoError(t, f.runner.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = f.runner.Stop(ctx)
	})
	return f
}

func (f *runnerFixture) schedule(t *testing.T, mutate func(*ScheduleRequest)) *syncjob.SyncJob {
	t.Helper()
	req := datasetRequest()
	if mutate != nil {
		mutate(&req)
	}
	job, err := f.service.Schedule(context.Background(), req)
	require.NoError(t, err)
	f.runner.Notify()
	return job
}

func (f *runnerFixture) waitForStatus(t *testing.T, id uuid.UUID, status syncjob.JobStatus) *syncjob.SyncJob {
	t.Helper()
	var job *syncjob.SyncJob
	require.Eventually(t, func() bool {
		var err error
		job, err = f.service.Get(context.Background(), id)
		return err == nil && job.Status == status
	}, waitFor, tick)
	return job
}

func TestRunner_CompletesJob(t *testing.T) {
	exec := ExecutorFunc(func(_ context.Context, job *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		return syncjob.SummaryCounts{ProductsAdded: 7, Metadata: map[string]any{"entity": job.EntityID}}, nil
	})
	f := newRunnerFixture(t, fastConfig(), exec)

	job := f.schedule(t, nil)
	f.waitForStatus(t, job.ID, syncjob.JobStatusCompleted)

	history, err := f.service.History(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 7, history[0].ProductsAdded)
	assert.Equal(t, "shoes", history[0].Metadata["entity"])

	assert.Eventually(t, func() bool { return len(f.runner.InFlight()) == 0 }, waitFor, tick)
	assert.Zero(t, f.recorder.running.Load())
}

func TestRunner_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	exec := ExecutorFunc(func(context.Context, *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		if calls.Add(1) == 1 {
			return syncjob.SummaryCounts{}, errors.New("connection reset")
		}
		return syncjob.SummaryCounts{}, nil
	})
	f := newRunnerFixture(t, fastConfig(), exec)

	job := f.schedule(t, func(r *ScheduleRequest) { r.MaxRetries = intPtr(1) })
	done := f.waitForStatus(t, job.ID, syncjob.JobStatusCompleted)
	assert.Equal(t, 1, done.RetryCount)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRunner_PermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		exec    Executor
		message string
	}{
		{
			name: "permanent error",
			exec: ExecutorFunc(func(context.Context, *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
				return syncjob.SummaryCounts{}, syncjob.Permanent(errors.New("unknown dataset"))
			}),
			message: "unknown dataset",
		},
		{
			name: "panicking executor",
			exec: ExecutorFunc(func(context.Context, *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
				panic("nil feed")
			}),
			message: "executor panicked: nil feed",
		},
		{
			name:    "no executor",
			exec:    nil,
			message: "no executor registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunnerFixture(t, fastConfig(), tt.exec)
			job := f.schedule(t, nil)

			failed := f.waitForStatus(t, job.ID, syncjob.JobStatusFailed)
			assert.Zero(t, failed.RetryCount, "not retried")
			assert.Contains(t, failed.ErrorMessage, tt.message)
		})
	}
}

func TestRunner_JobTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.JobTimeout = 50 * time.Millisecond
	exec := ExecutorFunc(func(ctx context.Context, _ *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		<-ctx.Done()
		return syncjob.SummaryCounts{}, ctx.Err()
	})
	f := newRunnerFixture(t, cfg, exec)

	job := f.schedule(t, func(r *ScheduleRequest) { r.MaxRetries = intPtr(0) })
	failed := f.waitForStatus(t, job.ID, syncjob.JobStatusFailed)
	assert.Contains(t, failed.ErrorMessage, "exceeded run timeout")
}

func TestRunner_CancelInFlight(t *testing.T) {
	started := make(chan struct{})
	interrupted := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, _ *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		close(started)
		<-ctx.Done()
		close(interrupted)
		return syncjob.SummaryCounts{}, ctx.Err()
	})
	f := newRunnerFixture(t, fastConfig(), exec)
	job := f.schedule(t, nil)

	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("job was not started")
	}
	assert.Equal(t, []uuid.UUID{job.ID}, f.runner.InFlight())

	cancelled, err := f.runner.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.JobStatusCancelled, cancelled.Status)

	select {
	case <-interrupted:
	case <-time.After(waitFor):
		t.Fatal("executor context was not cancelled")
	}
	assert.Eventually(t, func() bool { return len(f.runner.InFlight()) == 0 }, waitFor, tick)

	stored, err := f.service.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.JobStatusCancelled, stored.Status, "outcome of the interrupted run is discarded")

	history, err := f.service.History(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, syncjob.JobStatusCancelled, history[0].Status)
}

func TestRunner_StopRequeuesInterruptedJobs(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryPolicy = syncjob.DefaultRetryPolicy()
	started := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, _ *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		close(started)
		<-ctx.Done()
		return syncjob.SummaryCounts{}, ctx.Err()
	})
	f := newRunnerFixture(t, cfg, exec)
	// A job on its last attempt must survive a shutdown
	job := f.schedule(t, func(r *ScheduleRequest) { r.MaxRetries = intPtr(0) })

	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("job was not started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.runner.Stop(ctx))
	assert.False(t, f.runner.IsRunning())

	requeued, err := f.service.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.JobStatusPending, requeued.Status)
	assert.Zero(t, requeued.RetryCount, "shutdown does not consume a retry")
	assert.Nil(t, requeued.StartedAt)
	assert.Contains(t, requeued.ErrorMessage, "not running")

	history, err := f.service.History(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// Stopping twice is a no-op
	assert.NoError(t, f.runner.Stop(ctx))
}

func TestRunner_BoundsConcurrencyByWorkers(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 2
	exec := ExecutorFunc(func(context.Context, *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		time.Sleep(30 * time.Millisecond)
		return syncjob.SummaryCounts{}, nil
	})
	f := newRunnerFixture(t, cfg, exec)

	ids := make([]uuid.UUID, 0, 6)
	for i := 0; i < 6; i++ {
		ids = append(ids, f.schedule(t, nil).ID)
	}
	for _, id := range ids {
		f.waitForStatus(t, id, syncjob.JobStatusCompleted)
	}
	assert.LessOrEqual(t, f.recorder.peak.Load(), int64(2))
}

func TestRunner_ReaperRecoversAbandonedJobs(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	jobs := persistence.NewInMemorySyncJobRepository()
	history := persistence.NewInMemorySyncHistoryRepository()

	// A previous process claimed the job and died
	cfg := fastConfig()
	cfg.ReapInterval = 20 * time.Millisecond
	svc := NewService(jobs, history, cfg, nil, WithClock(clock.Now))
	job, err := svc.Schedule(ctx, ScheduleRequest{
		JobType:    syncjob.JobTypeDatasetSync,
		EntityType: "dataset",
		EntityID:   "shoes",
		MaxRetries: intPtr(0),
	})
	require.NoError(t, err)
	_, err = svc.ClaimNext(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	runner := NewRunner(svc, NewExecutorRegistry(), cfg, nil)
	require.NoError(t, runner.Start(ctx))
	defer func() { _ = runner.Stop(ctx) }()

	require.Eventually(t, func() bool {
		stored, err := svc.Get(ctx, job.ID)
		return err == nil && stored.Status == syncjob.JobStatusTimeout
	}, waitFor, tick)
}

func TestRunner_StartRejectsInvalidConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.Workers = 0
	svc := NewService(persistence.NewInMemorySyncJobRepository(), persistence.NewInMemorySyncHistoryRepository(), cfg, nil)
	runner := NewRunner(svc, NewExecutorRegistry(), cfg, nil)

	err := runner.Start(context.Background())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, runner.IsRunning())
}
