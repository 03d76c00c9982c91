package syncjob

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is the retry budget of a job when none is requested
const DefaultMaxRetries = 3

// ---------------------------------------------------------------------------
// JobType
// ---------------------------------------------------------------------------

// JobType classifies the work a job performs
type JobType string

const (
	JobTypeDatasetSync    JobType = "dataset-sync"
	JobTypeProductUpdate  JobType = "product-update"
	JobTypeAIOptimization JobType = "ai-optimization"
	JobTypePriceUpdate    JobType = "price-update"
	JobTypeStockUpdate    JobType = "stock-update"
	JobTypeCategorySync   JobType = "category-sync"
	JobTypeImageSync      JobType = "image-sync"
)

// AllJobTypes returns all job types
func AllJobTypes() []JobType {
	return []JobType{
		JobTypeDatasetSync,
		JobTypeProductUpdate,
		JobTypeAIOptimization,
		JobTypePriceUpdate,
		JobTypeStockUpdate,
		JobTypeCategorySync,
		JobTypeImageSync,
	}
}

// IsValid returns true if the job type is known
func (t JobType) IsValid() bool {
	for _, jt := range AllJobTypes() {
		if t == jt {
			return true
		}
	}
	return false
}

// String returns the string representation of JobType
func (t JobType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// JobStatus
// ---------------------------------------------------------------------------

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusTimeout   JobStatus = "TIMEOUT"
)

// IsTerminal returns true if no automatic transition leaves this status
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusTimeout:
		return true
	default:
		return false
	}
}

// IsValid returns true if the status is known
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled, JobStatusTimeout:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// SyncJob aggregate
// ---------------------------------------------------------------------------

// SyncJob is a durable unit of asynchronous work over an entity.
// Invariant: RetryCount <= MaxRetries.
type SyncJob struct {
	ID           uuid.UUID      `json:"id"`
	JobType      JobType        `json:"job_type"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	UserID       string         `json:"user_id,omitempty"`
	Status       JobStatus      `json:"status"`
	Priority     int            `json:"priority"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	// ClaimID identifies the current or most recent execution claim
	ClaimID      uuid.UUID      `json:"-"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewJobParams holds the attributes of a job to create
type NewJobParams struct {
	JobType     JobType
	EntityType  string
	EntityID    string
	UserID      string
	Priority    int
	ScheduledAt time.Time // zero means now
	Metadata    map[string]any
	MaxRetries  *int // nil means DefaultMaxRetries
}

// NewSyncJob creates a PENDING job
func NewSyncJob(p NewJobParams, now time.Time) (*SyncJob, error) {
	if !p.JobType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, p.JobType)
	}
	if strings.TrimSpace(p.EntityType) == "" {
		return nil, ErrInvalidEntityType
	}
	if strings.TrimSpace(p.EntityID) == "" {
		return nil, ErrInvalidEntityID
	}
	maxRetries := DefaultMaxRetries
	if p.MaxRetries != nil {
		if *p.MaxRetries < 0 {
			return nil, ErrInvalidMaxRetries
		}
		maxRetries = *p.MaxRetries
	}
	scheduledAt := p.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}

	metadata := make(map[string]any, len(p.Metadata))
	maps.Copy(metadata, p.Metadata)

	return &SyncJob{
		ID:          uuid.New(),
		JobType:     p.JobType,
		EntityType:  p.EntityType,
		EntityID:    p.EntityID,
		UserID:      p.UserID,
		Status:      JobStatusPending,
		Priority:    p.Priority,
		ScheduledAt: scheduledAt,
		MaxRetries:  maxRetries,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Start claims the job for execution (PENDING -> RUNNING) under a fresh ClaimID
func (j *SyncJob) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return j.transitionError(JobStatusRunning)
	}
	j.Status = JobStatusRunning
	j.ClaimID = uuid.New()
	j.StartedAt = &now
	j.CompletedAt = nil
	j.ErrorMessage = ""
	j.UpdatedAt = now
	return nil
}

// Complete marks a running job as successful (RUNNING -> COMPLETED)
func (j *SyncJob) Complete(now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionError(JobStatusCompleted)
	}
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.ErrorMessage = ""
	j.UpdatedAt = now
	return nil
}

// Fail records a failure of a running job. A retryable failure with budget left
// returns the job to PENDING with RetryCount incremented and ScheduledAt pushed
// out by the policy delay; otherwise the job becomes FAILED.
func (j *SyncJob) Fail(message string, retryable bool, policy RetryPolicy, now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionError(JobStatusFailed)
	}
	j.ErrorMessage = message
	if retryable && j.CanRetry() {
		j.reschedule(policy, now)
		return nil
	}
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Timeout reclassifies a stale running job. It is rescheduled when retry budget
// remains, otherwise it becomes TIMEOUT.
func (j *SyncJob) Timeout(message string, policy RetryPolicy, now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionError(JobStatusTimeout)
	}
	j.ErrorMessage = message
	if j.CanRetry() {
		j.reschedule(policy, now)
		return nil
	}
	j.Status = JobStatusTimeout
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Release returns a running job to PENDING, due immediately, without
// consuming retry budget (RUNNING -> PENDING)
func (j *SyncJob) Release(message string, now time.Time) error {
	if j.Status != JobStatusRunning {
		return j.transitionError(JobStatusPending)
	}
	j.Status = JobStatusPending
	j.ScheduledAt = now
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = message
	j.UpdatedAt = now
	return nil
}

// OwnedBy reports whether claim is the job's current execution claim
func (j *SyncJob) OwnedBy(claim uuid.UUID) bool {
	return j.Status == JobStatusRunning && j.ClaimID == claim
}

// Cancel cancels a pending or running job
func (j *SyncJob) Cancel(now time.Time) error {
	if j.Status != JobStatusPending && j.Status != JobStatusRunning {
		return j.transitionError(JobStatusCancelled)
	}
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// CanRetry returns true if the retry budget is not yet consumed
func (j *SyncJob) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IsTerminal returns true if the job reached a terminal status
func (j *SyncJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsDue returns true if the job is pending and its schedule has arrived
func (j *SyncJob) IsDue(now time.Time) bool {
	return j.Status == JobStatusPending && !j.ScheduledAt.After(now)
}

// IsStale returns true if the job has been running since before cutoff
func (j *SyncJob) IsStale(cutoff time.Time) bool {
	return j.Status == JobStatusRunning && j.StartedAt != nil && j.StartedAt.Before(cutoff)
}

// Duration returns the time between start and completion, zero if either is unset
func (j *SyncJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// Validate checks the aggregate invariants
func (j *SyncJob) Validate() error {
	if !j.JobType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobType, j.JobType)
	}
	if j.RetryCount > j.MaxRetries {
		return ErrRetryBudgetInvalid
	}
	return nil
}

// Clone returns a deep copy of the job
func (j *SyncJob) Clone() *SyncJob {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	c.Metadata = make(map[string]any, len(j.Metadata))
	maps.Copy(c.Metadata, j.Metadata)
	return &c
}

func (j *SyncJob) reschedule(policy RetryPolicy, now time.Time) {
	j.RetryCount++
	j.Status = JobStatusPending
	j.ScheduledAt = now.Add(policy.Delay(j.RetryCount))
	j.StartedAt = nil
	j.CompletedAt = nil
	j.UpdatedAt = now
}

func (j *SyncJob) transitionError(to JobStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
}
