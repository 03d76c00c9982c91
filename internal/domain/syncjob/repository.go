package syncjob

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows job listings; zero values match everything
type Filter struct {
	Status     JobStatus
	JobType    JobType
	EntityType string
	EntityID   string
	UserID     string
	SortBy     string // empty means created_at
	SortDir    string // ASC or DESC, default DESC
	Page       int
	PageSize   int
}

// Normalize applies paging defaults
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}

// Offset returns the row offset of the page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Repository defines the persistence port for sync jobs
type Repository interface {
	// Save inserts a new job
	Save(ctx context.Context, job *SyncJob) error
	// FindByID retrieves a job, returning ErrJobNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)
	// List retrieves jobs matching the filter with the total count; newest first unless sorted otherwise
	List(ctx context.Context, filter Filter) ([]*SyncJob, int64, error)
	// ClaimNext atomically moves the most urgent due PENDING job to RUNNING.
	// Returns (nil, nil) when no job is due.
	ClaimNext(ctx context.Context, now time.Time) (*SyncJob, error)
	// Update persists job only if its stored status still equals expected,
	// returning ErrConcurrentUpdate otherwise
	Update(ctx context.Context, job *SyncJob, expected JobStatus) error
	// UpdateClaimed persists job only if it is still RUNNING under claimID,
	// returning ErrConcurrentUpdate otherwise
	UpdateClaimed(ctx context.Context, job *SyncJob, claimID uuid.UUID) error
	// FindRunningStartedBefore retrieves RUNNING jobs started before cutoff
	FindRunningStartedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*SyncJob, error)
}

// HistoryRepository defines the append-only persistence port for sync history
type HistoryRepository interface {
	// Append stores a new history record
	Append(ctx context.Context, h *SyncHistory) error
	// ListByJob retrieves the history of one job, oldest first
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*SyncHistory, error)
	// ListByEntity retrieves the most recent history of an entity, newest first
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*SyncHistory, error)
}
