package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
)

const (
	// claimCandidates is how many due jobs one claim round considers
	claimCandidates = 5
	// claimRounds bounds re-selection when every candidate was taken by another worker
	claimRounds = 3
)

// syncJobMutableColumns are the columns written by Update
var syncJobMutableColumns = []string{
	"status", "priority", "scheduled_at", "started_at", "claim_id", "completed_at",
	"retry_count", "max_retries", "error_message", "metadata", "updated_at",
}

// GormSyncJobRepository implements syncjob.Repository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GORM-based sync job repository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormSyncJobRepository) WithTx(tx *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: tx}
}

// Save inserts a new job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *syncjob.SyncJob) error {
	return r.db.WithContext(ctx).Create(models.SyncJobModelFromDomain(job)).Error
}

// FindByID retrieves a job by ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	var m models.SyncJobModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncjob.ErrJobNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// List retrieves jobs matching the filter with pagination
func (r *GormSyncJobRepository) List(ctx context.Context, filter syncjob.Filter) ([]*syncjob.SyncJob, int64, error) {
	filter = filter.Normalize()

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncJobModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.SyncJobModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncJobModel{}), filter).
		Scopes(orderBy(newJobOrder(filter))).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]*syncjob.SyncJob, len(ms))
	for i := range ms {
		jobs[i] = ms[i].ToDomain()
	}
	return jobs, total, nil
}

// orderBy applies a validated job order as a GORM scope
func orderBy(o jobOrder) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, clause := range o.clauses() {
			db = db.Order(clause)
		}
		return db
	}
}

// applyFilter applies the non-paging filter fields to query
func (r *GormSyncJobRepository) applyFilter(query *gorm.DB, filter syncjob.Filter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.JobType != "" {
		query = query.Where("job_type = ?", filter.JobType)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	return query
}

// ClaimNext moves the most urgent due PENDING job to RUNNING under a new claim ID.
// Each candidate is claimed with a conditional update on its status, so
// exactly one of several concurrent claimers wins a given job.
func (r *GormSyncJobRepository) ClaimNext(ctx context.Context, now time.Time) (*syncjob.SyncJob, error) {
	db := r.db.WithContext(ctx)
	for round := 0; round < claimRounds; round++ {
		var candidates []models.SyncJobModel
		if err := db.
			Where("status = ? AND scheduled_at <= ?", syncjob.JobStatusPending, now).
			Order("priority DESC, scheduled_at ASC").
			Limit(claimCandidates).
			Find(&candidates).Error; err != nil {
			return nil, fmt.Errorf("select claim candidates: %w", err)
		}
		if len(candidates) == 0 {
			return nil, nil
		}

		for i := range candidates {
			job := candidates[i].ToDomain()
			if err := job.Start(now); err != nil {
				return nil, err
			}
			result := db.Model(&models.SyncJobModel{}).
				Where("id = ? AND status = ?", job.ID, syncjob.JobStatusPending).
				Updates(map[string]any{
					"status":        syncjob.JobStatusRunning,
					"started_at":    now,
					"claim_id":      job.ClaimID,
					"completed_at":  nil,
					"error_message": "",
					"updated_at":    now,
				})
			if result.Error != nil {
				return nil, fmt.Errorf("claim job %s: %w", job.ID, result.Error)
			}
			if result.RowsAffected == 1 {
				return job, nil
			}
		}
	}
	return nil, nil
}

// Update persists job if its stored status still equals expected
func (r *GormSyncJobRepository) Update(ctx context.Context, job *syncjob.SyncJob, expected syncjob.JobStatus) error {
	return r.conditionalUpdate(ctx, job, func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ? AND status = ?", job.ID, expected)
	})
}

// UpdateClaimed persists job if it is still RUNNING under claimID. Rows claimed
// before claim tokens existed match the nil claim.
func (r *GormSyncJobRepository) UpdateClaimed(ctx context.Context, job *syncjob.SyncJob, claimID uuid.UUID) error {
	return r.conditionalUpdate(ctx, job, func(db *gorm.DB) *gorm.DB {
		db = db.Where("id = ? AND status = ?", job.ID, syncjob.JobStatusRunning)
		if claimID == uuid.Nil {
			return db.Where("claim_id IS NULL")
		}
		return db.Where("claim_id = ?", claimID)
	})
}

func (r *GormSyncJobRepository) conditionalUpdate(ctx context.Context, job *syncjob.SyncJob, cond func(*gorm.DB) *gorm.DB) error {
	result := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Scopes(cond).
		Select(syncJobMutableColumns).
		Updates(models.SyncJobModelFromDomain(job))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, job.ID); err != nil {
			return err
		}
		return syncjob.ErrConcurrentUpdate
	}
	return nil
}

// FindRunningStartedBefore retrieves RUNNING jobs started before cutoff, oldest first
func (r *GormSyncJobRepository) FindRunningStartedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*syncjob.SyncJob, error) {
	var ms []models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", syncjob.JobStatusRunning, cutoff).
		Order("started_at ASC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	jobs := make([]*syncjob.SyncJob, len(ms))
	for i := range ms {
		jobs[i] = ms[i].ToDomain()
	}
	return jobs, nil
}

// Ensure GormSyncJobRepository implements syncjob.Repository
var _ syncjob.Repository = (*GormSyncJobRepository)(nil)
