package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/persistence/models"
)

// defaultHistoryLimit applies when a listing passes no positive limit
const defaultHistoryLimit = 50

// GormSyncHistoryRepository implements syncjob.HistoryRepository using GORM
type GormSyncHistoryRepository struct {
	db *gorm.DB
}

// NewGormSyncHistoryRepository creates a new GORM-based sync history repository
func NewGormSyncHistoryRepository(db *gorm.DB) *GormSyncHistoryRepository {
	return &GormSyncHistoryRepository{db: db}
}

// Append stores a new history record
func (r *GormSyncHistoryRepository) Append(ctx context.Context, h *syncjob.SyncHistory) error {
	return r.db.WithContext(ctx).Create(models.SyncHistoryModelFromDomain(h)).Error
}

// ListByJob retrieves the history of one job, oldest first
func (r *GormSyncHistoryRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*syncjob.SyncHistory, error) {
	var ms []models.SyncHistoryModel
	if err := r.db.WithContext(ctx).
		Where("sync_job_id = ?", jobID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return historyToDomain(ms), nil
}

// ListByEntity retrieves the most recent history of an entity, newest first
func (r *GormSyncHistoryRepository) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*syncjob.SyncHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var ms []models.SyncHistoryModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return historyToDomain(ms), nil
}

func historyToDomain(ms []models.SyncHistoryModel) []*syncjob.SyncHistory {
	out := make([]*syncjob.SyncHistory, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out
}

// Ensure GormSyncHistoryRepository implements syncjob.HistoryRepository
var _ syncjob.HistoryRepository = (*GormSyncHistoryRepository)(nil)
