package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/logger"
)

// JobRecorder observes job lifecycle events
type JobRecorder interface {
	RecordScheduled(jobType string)
	RecordClaimed(jobType string)
	RecordTransition(jobType, status string, d time.Duration)
	RecordReaped(status string)
}

type nopJobRecorder struct{}

func (nopJobRecorder) RecordScheduled(string)                         {}
func (nopJobRecorder) RecordClaimed(string)                           {}
func (nopJobRecorder) RecordTransition(string, string, time.Duration) {}
func (nopJobRecorder) RecordReaped(string)                            {}

// ScheduleRequest holds the attributes of a job to create
type ScheduleRequest struct {
	JobType     syncjob.JobType `json:"job_type" validate:"required,job_type"`
	EntityType  string          `json:"entity_type" validate:"required,max=50"`
	EntityID    string          `json:"entity_id" validate:"required,max=100"`
	UserID      string          `json:"user_id" validate:"max=100"`
	Priority    int             `json:"priority" validate:"gte=-1000,lte=1000"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Metadata    map[string]any  `json:"metadata"`
	MaxRetries  *int            `json:"max_retries" validate:"omitempty,gte=0,lte=20"`
}

// ReapResult summarizes one staleness scan
type ReapResult struct {
	Scanned  int         `json:"scanned"`
	Requeued int         `json:"requeued"`
	TimedOut int         `json:"timed_out"`
	Skipped  int         `json:"skipped"`
	JobIDs   []uuid.UUID `json:"job_ids"`
}

// Service owns the lifecycle of sync jobs: creation, claiming, completion,
// retry, cancellation and staleness reaping. A history record is written once
// at every terminal transition.
type Service struct {
	jobs     syncjob.Repository
	history  syncjob.HistoryRepository
	config   Config
	logger   *zap.Logger
	recorder JobRecorder
	validate *validator.Validate
	now      func() time.Time
}

// ServiceOption is a functional option for configuring the service
type ServiceOption func(*Service)

// WithJobRecorder sets the job metrics recorder
func WithJobRecorder(r JobRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new job lifecycle service
func NewService(jobs syncjob.Repository, history syncjob.HistoryRepository, cfg Config, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		jobs:     jobs,
		history:  history,
		config:   cfg,
		logger:   log,
		recorder: nopJobRecorder{},
		validate: newRequestValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("job_type", func(fl validator.FieldLevel) bool {
		return syncjob.JobType(fl.Field().String()).IsValid()
	})
	return v
}

// Schedule validates the request and stores a new PENDING job
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (*syncjob.SyncJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	maxRetries := req.MaxRetries
	if maxRetries == nil {
		n := s.config.MaxRetries
		maxRetries = &n
	}
	job, err := syncjob.NewSyncJob(syncjob.NewJobParams{
		JobType:     req.JobType,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		UserID:      req.UserID,
		Priority:    req.Priority,
		ScheduledAt: req.ScheduledAt,
		Metadata:    req.Metadata,
		MaxRetries:  maxRetries,
	}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.recorder.RecordScheduled(job.JobType.String())
	logger.WithLogger(ctx, s.logger).Info("Sync job scheduled",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", job.JobType.String()),
		zap.String("entity_type", job.EntityType),
		zap.String("entity_id", job.EntityID),
		zap.Int("priority", job.Priority),
		zap.Time("scheduled_at", job.ScheduledAt),
	)
	return job, nil
}

// ClaimNext moves the most urgent due job to RUNNING. Returns (nil, nil) when no job is due.
func (s *Service) ClaimNext(ctx context.Context) (*syncjob.SyncJob, error) {
	job, err := s.jobs.ClaimNext(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	if job != nil {
		s.recorder.RecordClaimed(job.JobType.String())
	}
	return job, nil
}

// Complete marks a claimed job as successful and records its summary counts.
// A claim that was reaped or superseded yields syncjob.ErrConcurrentUpdate.
func (s *Service) Complete(ctx context.Context, claim *syncjob.SyncJob, counts syncjob.SummaryCounts) (*syncjob.SyncJob, error) {
	job, err := s.claimedJob(ctx, claim)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := job.Complete(now); err != nil {
		return nil, err
	}
	if err := s.jobs.UpdateClaimed(ctx, job, claim.ClaimID); err != nil {
		return nil, err
	}

	s.recorder.RecordTransition(job.JobType.String(), string(job.Status), job.Duration())
	logger.WithLogger(ctx, s.logger).Info("Sync job completed",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", job.JobType.String()),
		zap.Int("products_added", counts.ProductsAdded),
		zap.Int("products_updated", counts.ProductsUpdated),
		zap.Int("products_removed", counts.ProductsRemoved),
		zap.Duration("duration", job.Duration()),
	)
	return job, s.recordHistory(ctx, job, counts, now)
}

// Fail records a failure of a claimed job. Retryable failures with budget left
// return the job to PENDING with a backoff delay; errors marked with
// syncjob.Permanent are never retried.
func (s *Service) Fail(ctx context.Context, claim *syncjob.SyncJob, cause error, retryable bool) (*syncjob.SyncJob, error) {
	if cause == nil {
		cause = errors.New("unknown error")
	}
	if syncjob.IsPermanent(cause) {
		retryable = false
	}

	job, err := s.claimedJob(ctx, claim)
	if err != nil {
		return nil, err
	}
	now := s.now()
	runTime := now.Sub(startedAt(job, now))
	if err := job.Fail(cause.Error(), retryable, s.config.RetryPolicy, now); err != nil {
		return nil, err
	}
	if err := s.jobs.UpdateClaimed(ctx, job, claim.ClaimID); err != nil {
		return nil, err
	}

	s.recorder.RecordTransition(job.JobType.String(), string(job.Status), runTime)
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", job.JobType.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(cause),
	}
	if job.Status == syncjob.JobStatusPending {
		logger.WithLogger(ctx, s.logger).Warn("Sync job failed, scheduled for retry", append(fields, zap.Time("scheduled_at", job.ScheduledAt))...)
		return job, nil
	}

	logger.WithLogger(ctx, s.logger).Error("Sync job failed", append(fields, zap.Bool("retryable", retryable))...)
	return job, s.recordHistory(ctx, job, syncjob.SummaryCounts{ErrorsEncountered: 1}, now)
}

// Release returns a claimed job to PENDING, due immediately, without consuming
// retry budget or writing history. Used when the runner stops mid-execution.
func (s *Service) Release(ctx context.Context, claim *syncjob.SyncJob, reason error) (*syncjob.SyncJob, error) {
	job, err := s.claimedJob(ctx, claim)
	if err != nil {
		return nil, err
	}
	now := s.now()
	runTime := now.Sub(startedAt(job, now))
	message := ""
	if reason != nil {
		message = reason.Error()
	}
	if err := job.Release(message, now); err != nil {
		return nil, err
	}
	if err := s.jobs.UpdateClaimed(ctx, job, claim.ClaimID); err != nil {
		return nil, err
	}

	s.recorder.RecordTransition(job.JobType.String(), string(job.Status), runTime)
	logger.WithLogger(ctx, s.logger).Info("Sync job released",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", job.JobType.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.String("reason", message),
	)
	return job, nil
}

// Cancel cancels a pending or running job
func (s *Service) Cancel(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	previous := job.Status
	now := s.now()
	if err := job.Cancel(now); err != nil {
		return nil, err
	}
	if err := s.jobs.Update(ctx, job, previous); err != nil {
		return nil, err
	}

	s.recorder.RecordTransition(job.JobType.String(), string(job.Status), 0)
	logger.WithLogger(ctx, s.logger).Info("Sync job cancelled",
		zap.String("job_id", job.ID.String()),
		zap.String("previous_status", string(previous)),
	)
	return job, s.recordHistory(ctx, job, syncjob.SummaryCounts{}, now)
}

// ReapStale reclassifies RUNNING jobs started before the staleness cutoff.
// Jobs with retry budget left return to PENDING, the rest become TIMEOUT.
// Jobs that changed state concurrently are skipped.
func (s *Service) ReapStale(ctx context.Context) (ReapResult, error) {
	now := s.now()
	cutoff := now.Add(-s.config.StaleAfter)
	result := ReapResult{JobIDs: make([]uuid.UUID, 0)}

	stale, err := s.jobs.FindRunningStartedBefore(ctx, cutoff, s.config.ReapBatchSize)
	if err != nil {
		return result, fmt.Errorf("find stale jobs: %w", err)
	}
	result.Scanned = len(stale)

	message := fmt.Sprintf("job exceeded staleness cutoff of %s", s.config.StaleAfter)
	for _, job := range stale {
		claimID := job.ClaimID
		if err := job.Timeout(message, s.config.RetryPolicy, now); err != nil {
			result.Skipped++
			continue
		}
		if err := s.jobs.UpdateClaimed(ctx, job, claimID); err != nil {
			if errors.Is(err, syncjob.ErrConcurrentUpdate) || errors.Is(err, syncjob.ErrJobNotFound) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("reap job %s: %w", job.ID, err)
		}

		result.JobIDs = append(result.JobIDs, job.ID)
		s.recorder.RecordReaped(string(job.Status))
		logger.WithLogger(ctx, s.logger).Warn("Stale sync job reaped",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", job.JobType.String()),
			zap.String("status", string(job.Status)),
			zap.Int("retry_count", job.RetryCount),
		)

		if job.Status == syncjob.JobStatusPending {
			result.Requeued++
			continue
		}
		result.TimedOut++
		if err := s.recordHistory(ctx, job, syncjob.SummaryCounts{ErrorsEncountered: 1}, now); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Get retrieves a job
func (s *Service) Get(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, error) {
	return s.jobs.FindByID(ctx, jobID)
}

// List retrieves jobs matching the filter with the total count
func (s *Service) List(ctx context.Context, filter syncjob.Filter) ([]*syncjob.SyncJob, int64, error) {
	return s.jobs.List(ctx, filter.Normalize())
}

// History retrieves the history records of a job, oldest first
func (s *Service) History(ctx context.Context, jobID uuid.UUID) ([]*syncjob.SyncHistory, error) {
	if _, err := s.jobs.FindByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.history.ListByJob(ctx, jobID)
}

// EntityHistory retrieves the most recent history records of an entity, newest first
func (s *Service) EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]*syncjob.SyncHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.history.ListByEntity(ctx, entityType, entityID, limit)
}

// claimedJob loads the stored job behind claim. A different stored claim means
// the job was reaped or re-claimed since.
func (s *Service) claimedJob(ctx context.Context, claim *syncjob.SyncJob) (*syncjob.SyncJob, error) {
	if claim == nil {
		return nil, syncjob.ErrJobNotFound
	}
	job, err := s.jobs.FindByID(ctx, claim.ID)
	if err != nil {
		return nil, err
	}
	if job.ClaimID != claim.ClaimID {
		return nil, fmt.Errorf("%w: claim of job %s was superseded", syncjob.ErrConcurrentUpdate, job.ID)
	}
	return job, nil
}

func (s *Service) recordHistory(ctx context.Context, job *syncjob.SyncJob, counts syncjob.SummaryCounts, now time.Time) error {
	h, err := syncjob.NewSyncHistoryFromJob(job, counts, now)
	if err != nil {
		return err
	}
	if err := s.history.Append(ctx, h); err != nil {
		logger.WithLogger(ctx, s.logger).Error("Failed to record sync history",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: job %s: %v", ErrHistoryWrite, job.ID, err)
	}
	return nil
}

func startedAt(job *syncjob.SyncJob, fallback time.Time) time.Time {
	if job.StartedAt == nil {
		return fallback
	}
	return *job.StartedAt
}
