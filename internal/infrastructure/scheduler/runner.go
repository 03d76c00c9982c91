package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/logger"
)

// finishTimeout bounds the state update after a run, which must outlive the run context
const finishTimeout = 10 * time.Second

// RunRecorder observes jobs executing in this process
type RunRecorder interface {
	IncRunning()
	DecRunning()
}

type nopRunRecorder struct{}

func (nopRunRecorder) IncRunning() {}
func (nopRunRecorder) DecRunning() {}

// RunnerOption is a functional option for configuring the runner
type RunnerOption func(*Runner)

// WithRunRecorder sets the in-flight job recorder
func WithRunRecorder(rec RunRecorder) RunnerOption {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// inFlightJob is a job executing in this process
type inFlightJob struct {
	cancel    context.CancelFunc
	cancelled bool
}

// Runner is a worker pool that claims due jobs, executes them with a run
// timeout and records the outcome. A reaper goroutine periodically recovers
// jobs abandoned in RUNNING.
type Runner struct {
	service   *Service
	executors *ExecutorRegistry
	config    Config
	logger    *zap.Logger
	recorder  RunRecorder

	wake      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  map[uuid.UUID]*inFlightJob
}

// NewRunner creates a new runner
func NewRunner(service *Service, executors *ExecutorRegistry, cfg Config, log *zap.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		service:   service,
		executors: executors,
		config:    cfg,
		logger:    log,
		recorder:  nopRunRecorder{},
		wake:      make(chan struct{}, max(cfg.Workers, 1)),
		inFlight:  make(map[uuid.UUID]*inFlightJob),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start starts the worker pool and the reaper
func (r *Runner) Start(ctx context.Context) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	if r.config.ReapInterval > 0 {
		r.wg.Add(1)
		go r.reaper(ctx)
	}

	r.logger.Info("Sync job runner started",
		zap.Int("workers", r.config.Workers),
		zap.Duration("poll_interval", r.config.PollInterval),
		zap.Duration("job_timeout", r.config.JobTimeout),
		zap.Duration("stale_after", r.config.StaleAfter),
		zap.Strings("job_types", jobTypeNames(r.executors.JobTypes())),
	)
	return nil
}

// Stop cancels in-flight jobs and waits for the workers to return.
// Interrupted jobs return to PENDING without consuming a retry.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Sync job runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Sync job runner stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the runner has been started and not stopped
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}

// Notify wakes an idle worker, typically right after a job was scheduled
func (r *Runner) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Cancel cancels a job and interrupts its execution when it runs in this process
func (r *Runner) Cancel(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, error) {
	job, err := r.service.Cancel(ctx, jobID)
	if job == nil {
		return nil, err
	}

	r.mu.Lock()
	if f, ok := r.inFlight[jobID]; ok {
		f.cancelled = true
		f.cancel()
	}
	r.mu.Unlock()
	return job, err
}

// InFlight returns the IDs of the jobs executing in this process
func (r *Runner) InFlight() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.inFlight))
	for id := range r.inFlight {
		ids = append(ids, id)
	}
	return ids
}

// worker claims and executes jobs until ctx is cancelled
func (r *Runner) worker(ctx context.Context, workerID int) {
	defer r.wg.Done()

	r.logger.Debug("Worker started", zap.Int("worker_id", workerID))

	for {
		if ctx.Err() != nil {
			r.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		}

		job, err := r.service.ClaimNext(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("Failed to claim sync job", zap.Int("worker_id", workerID), zap.Error(err))
		}
		if job != nil {
			r.process(ctx, job, workerID)
			continue
		}

		if !r.idle(ctx) {
			r.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		}
	}
}

// idle waits for the poll interval or a wake-up; false means ctx was cancelled
func (r *Runner) idle(ctx context.Context) bool {
	timer := time.NewTimer(r.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-r.wake:
		return true
	}
}

// process executes a single claimed job and records its outcome
func (r *Runner) process(ctx context.Context, job *syncjob.SyncJob, workerID int) {
	jobCtx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	defer cancel()

	jobCtx, log := logger.WithJobID(jobCtx, r.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_type", job.JobType.String()),
	), job.ID.String())

	r.track(job.ID, cancel)
	defer r.untrack(job.ID)

	r.recorder.IncRunning()
	defer r.recorder.DecRunning()

	started := time.Now()
	log.Info("Processing sync job",
		zap.String("entity_type", job.EntityType),
		zap.String("entity_id", job.EntityID),
		zap.Int("retry_count", job.RetryCount),
	)

	counts, execErr := r.execute(jobCtx, job)

	if r.wasCancelled(job.ID) {
		log.Info("Sync job cancelled during execution", zap.Duration("elapsed", time.Since(started)))
		return
	}

	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(jobCtx), finishTimeout)
	defer finishCancel()

	var err error
	switch {
	case execErr == nil:
		_, err = r.service.Complete(finishCtx, job, counts)
	case ctx.Err() != nil:
		_, err = r.service.Release(finishCtx, job, fmt.Errorf("%w: %w", ErrSchedulerNotRunning, execErr))
	case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		_, err = r.service.Fail(finishCtx, job, fmt.Errorf("%w (%s): %w", ErrJobTimeout, r.config.JobTimeout, execErr), true)
	default:
		_, err = r.service.Fail(finishCtx, job, execErr, true)
	}

	switch {
	case err == nil:
	case errors.Is(err, syncjob.ErrConcurrentUpdate):
		log.Warn("Sync job changed state while running; outcome discarded", zap.Error(execErr))
	default:
		log.Error("Failed to record sync job outcome", zap.Error(err))
	}
}

// execute runs the job's executor; a panicking executor fails the job permanently
func (r *Runner) execute(ctx context.Context, job *syncjob.SyncJob) (counts syncjob.SummaryCounts, err error) {
	exec, err := r.executors.Get(job.JobType)
	if err != nil {
		return counts, syncjob.Permanent(err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = syncjob.Permanent(fmt.Errorf("executor panicked: %v", rec))
		}
	}()
	return exec.Execute(ctx, job)
}

// reaper periodically reclassifies abandoned RUNNING jobs
func (r *Runner) reaper(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.ReapInterval)
	defer ticker.Stop()

	// Recover jobs left behind by a previous process right away
	r.reap(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Runner) reap(ctx context.Context) {
	result, err := r.service.ReapStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Stale job scan failed", zap.Error(err))
		}
		return
	}
	if result.Requeued > 0 || result.TimedOut > 0 {
		r.logger.Info("Stale sync jobs reaped",
			zap.Int("requeued", result.Requeued),
			zap.Int("timed_out", result.TimedOut),
			zap.Int("skipped", result.Skipped),
		)
	}
	if result.Requeued > 0 {
		r.Notify()
	}
}

func (r *Runner) track(id uuid.UUID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight[id] = &inFlightJob{cancel: cancel}
}

func (r *Runner) untrack(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
}

func (r *Runner) wasCancelled(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.inFlight[id]
	return ok && f.cancelled
}

func jobTypeNames(types []syncjob.JobType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
