package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropship/backend/internal/domain/syncjob"
)

// InMemorySyncJobRepository implements syncjob.Repository in process memory.
// Jobs are stored and returned as copies; all operations are serialized by a mutex.
type InMemorySyncJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*syncjob.SyncJob
}

// NewInMemorySyncJobRepository creates an empty in-memory job repository
func NewInMemorySyncJobRepository() *InMemorySyncJobRepository {
	return &InMemorySyncJobRepository{jobs: make(map[uuid.UUID]*syncjob.SyncJob)}
}

// Save inserts a new job
func (r *InMemorySyncJobRepository) Save(_ context.Context, job *syncjob.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

// FindByID retrieves a job by ID
func (r *InMemorySyncJobRepository) FindByID(_ context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, syncjob.ErrJobNotFound
	}
	return job.Clone(), nil
}

// List retrieves jobs matching the filter with pagination
func (r *InMemorySyncJobRepository) List(_ context.Context, filter syncjob.Filter) ([]*syncjob.SyncJob, int64, error) {
	filter = filter.Normalize()

	r.mu.Lock()
	matched := make([]*syncjob.SyncJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if matchesFilter(job, filter) {
			matched = append(matched, job.Clone())
		}
	}
	r.mu.Unlock()

	slices.SortStableFunc(matched, newJobOrder(filter).compare)

	total := int64(len(matched))
	start := min(filter.Offset(), len(matched))
	end := min(start+filter.PageSize, len(matched))
	return matched[start:end], total, nil
}

// ClaimNext moves the most urgent due PENDING job to RUNNING
func (r *InMemorySyncJobRepository) ClaimNext(_ context.Context, now time.Time) (*syncjob.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *syncjob.SyncJob
	for _, job := range r.jobs {
		if !job.IsDue(now) {
			continue
		}
		if best == nil || claimsBefore(job, best) {
			best = job
		}
	}
	if best == nil {
		return nil, nil
	}
	if err := best.Start(now); err != nil {
		return nil, err
	}
	return best.Clone(), nil
}

// Update persists job if its stored status still equals expected
func (r *InMemorySyncJobRepository) Update(_ context.Context, job *syncjob.SyncJob, expected syncjob.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return syncjob.ErrJobNotFound
	}
	if stored.Status != expected {
		return syncjob.ErrConcurrentUpdate
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// UpdateClaimed persists job if it is still RUNNING under claimID
func (r *InMemorySyncJobRepository) UpdateClaimed(_ context.Context, job *syncjob.SyncJob, claimID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return syncjob.ErrJobNotFound
	}
	if !stored.OwnedBy(claimID) {
		return syncjob.ErrConcurrentUpdate
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

// FindRunningStartedBefore retrieves RUNNING jobs started before cutoff, oldest first
func (r *InMemorySyncJobRepository) FindRunningStartedBefore(_ context.Context, cutoff time.Time, limit int) ([]*syncjob.SyncJob, error) {
	r.mu.Lock()
	stale := make([]*syncjob.SyncJob, 0)
	for _, job := range r.jobs {
		if job.IsStale(cutoff) {
			stale = append(stale, job.Clone())
		}
	}
	r.mu.Unlock()

	slices.SortFunc(stale, func(a, b *syncjob.SyncJob) int {
		return a.StartedAt.Compare(*b.StartedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// claimsBefore orders due jobs by priority descending, then schedule ascending
func claimsBefore(a, b *syncjob.SyncJob) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func matchesFilter(job *syncjob.SyncJob, f syncjob.Filter) bool {
	return (f.Status == "" || job.Status == f.Status) &&
		(f.JobType == "" || job.JobType == f.JobType) &&
		(f.EntityType == "" || job.EntityType == f.EntityType) &&
		(f.EntityID == "" || job.EntityID == f.EntityID) &&
		(f.UserID == "" || job.UserID == f.UserID)
}

// InMemorySyncHistoryRepository implements syncjob.HistoryRepository in process memory
type InMemorySyncHistoryRepository struct {
	mu      sync.RWMutex
	history []*syncjob.SyncHistory
}

// NewInMemorySyncHistoryRepository creates an empty in-memory history repository
func NewInMemorySyncHistoryRepository() *InMemorySyncHistoryRepository {
	return &InMemorySyncHistoryRepository{}
}

// Append stores a new history record
func (r *InMemorySyncHistoryRepository) Append(_ context.Context, h *syncjob.SyncHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *h
	r.history = append(r.history, &c)
	return nil
}

// ListByJob retrieves the history of one job, oldest first
func (r *InMemorySyncHistoryRepository) ListByJob(_ context.Context, jobID uuid.UUID) ([]*syncjob.SyncHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*syncjob.SyncHistory, 0)
	for _, h := range r.history {
		if h.SyncJobID != nil && *h.SyncJobID == jobID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListByEntity retrieves the most recent history of an entity, newest first
func (r *InMemorySyncHistoryRepository) ListByEntity(_ context.Context, entityType, entityID string, limit int) ([]*syncjob.SyncHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*syncjob.SyncHistory, 0)
	for i := len(r.history) - 1; i >= 0 && len(out) < limit; i-- {
		h := r.history[i]
		if h.EntityType == entityType && h.EntityID == entityID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

var (
	_ syncjob.Repository        = (*InMemorySyncJobRepository)(nil)
	_ syncjob.HistoryRepository = (*InMemorySyncHistoryRepository)(nil)
)
