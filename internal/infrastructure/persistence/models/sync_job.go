package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dropship/backend/internal/domain/syncjob"
)

// SyncJobModel is the persistence model of the sync job queue
type SyncJobModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	JobType      syncjob.JobType   `gorm:"type:varchar(50);not null;index:idx_sync_jobs_type"`
	EntityType   string            `gorm:"type:varchar(100);not null;index:idx_sync_jobs_entity,priority:1"`
	EntityID     string            `gorm:"type:varchar(255);not null;index:idx_sync_jobs_entity,priority:2"`
	UserID       string            `gorm:"type:varchar(255);index:idx_sync_jobs_user"`
	Status       syncjob.JobStatus `gorm:"type:varchar(20);not null;default:PENDING;index:idx_sync_jobs_claim,priority:1"`
	Priority     int               `gorm:"not null;default:0;index:idx_sync_jobs_claim,priority:2"`
	ScheduledAt  time.Time         `gorm:"not null;index:idx_sync_jobs_claim,priority:3"`
	StartedAt    *time.Time        `gorm:"index:idx_sync_jobs_started"`
	ClaimID      *uuid.UUID        `gorm:"type:uuid"`
	CompletedAt  *time.Time
	RetryCount   int            `gorm:"not null;default:0"`
	MaxRetries   int            `gorm:"not null;default:3"`
	ErrorMessage string         `gorm:"type:text"`
	Metadata     map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob
func (m *SyncJobModel) ToDomain() *syncjob.SyncJob {
	metadata := m.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	var claimID uuid.UUID
	if m.ClaimID != nil {
		claimID = *m.ClaimID
	}
	return &syncjob.SyncJob{
		ID:           m.ID,
		JobType:      m.JobType,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		UserID:       m.UserID,
		Status:       m.Status,
		Priority:     m.Priority,
		ScheduledAt:  m.ScheduledAt,
		StartedAt:    m.StartedAt,
		ClaimID:      claimID,
		CompletedAt:  m.CompletedAt,
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		ErrorMessage: m.ErrorMessage,
		Metadata:     metadata,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncJob
func (m *SyncJobModel) FromDomain(j *syncjob.SyncJob) {
	m.ID = j.ID
	m.JobType = j.JobType
	m.EntityType = j.EntityType
	m.EntityID = j.EntityID
	m.UserID = j.UserID
	m.Status = j.Status
	m.Priority = j.Priority
	m.ScheduledAt = j.ScheduledAt
	m.StartedAt = j.StartedAt
	m.ClaimID = nil
	if j.ClaimID != uuid.Nil {
		id := j.ClaimID
		m.ClaimID = &id
	}
	m.CompletedAt = j.CompletedAt
	m.RetryCount = j.RetryCount
	m.MaxRetries = j.MaxRetries
	m.ErrorMessage = j.ErrorMessage
	m.Metadata = j.Metadata
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// SyncJobModelFromDomain creates a new persistence model from a domain SyncJob
func SyncJobModelFromDomain(j *syncjob.SyncJob) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}

// SyncHistoryModel is the persistence model of the append-only sync history
type SyncHistoryModel struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	SyncJobID         *uuid.UUID        `gorm:"type:uuid;index:idx_sync_history_job"`
	EntityType        string            `gorm:"type:varchar(100);not null;index:idx_sync_history_entity,priority:1"`
	EntityID          string            `gorm:"type:varchar(255);not null;index:idx_sync_history_entity,priority:2"`
	UserID            string            `gorm:"type:varchar(255)"`
	SyncType          syncjob.JobType   `gorm:"type:varchar(50);not null"`
	Status            syncjob.JobStatus `gorm:"type:varchar(20);not null"`
	StartedAt         time.Time         `gorm:"not null"`
	CompletedAt       time.Time         `gorm:"not null"`
	DurationSeconds   float64           `gorm:"not null;default:0"`
	ProductsAdded     int               `gorm:"not null;default:0"`
	ProductsUpdated   int               `gorm:"not null;default:0"`
	ProductsRemoved   int               `gorm:"not null;default:0"`
	ErrorsEncountered int               `gorm:"not null;default:0"`
	Metadata          map[string]any    `gorm:"type:jsonb;serializer:json"`
	CreatedAt         time.Time         `gorm:"not null;autoCreateTime:false;index:idx_sync_history_entity,priority:3"`
}

// TableName returns the table name for GORM
func (SyncHistoryModel) TableName() string {
	return "sync_history"
}

// ToDomain converts the persistence model to a domain SyncHistory
func (m *SyncHistoryModel) ToDomain() *syncjob.SyncHistory {
	metadata := m.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &syncjob.SyncHistory{
		ID:                m.ID,
		SyncJobID:         m.SyncJobID,
		EntityType:        m.EntityType,
		EntityID:          m.EntityID,
		UserID:            m.UserID,
		SyncType:          m.SyncType,
		Status:            m.Status,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
		DurationSeconds:   m.DurationSeconds,
		ProductsAdded:     m.ProductsAdded,
		ProductsUpdated:   m.ProductsUpdated,
		ProductsRemoved:   m.ProductsRemoved,
		ErrorsEncountered: m.ErrorsEncountered,
		Metadata:          metadata,
		CreatedAt:         m.CreatedAt,
	}
}

// SyncHistoryModelFromDomain creates a new persistence model from a domain SyncHistory
func SyncHistoryModelFromDomain(h *syncjob.SyncHistory) *SyncHistoryModel {
	return &SyncHistoryModel{
		ID:                h.ID,
		SyncJobID:         h.SyncJobID,
		EntityType:        h.EntityType,
		EntityID:          h.EntityID,
		UserID:            h.UserID,
		SyncType:          h.SyncType,
		Status:            h.Status,
		StartedAt:         h.StartedAt,
		CompletedAt:       h.CompletedAt,
		DurationSeconds:   h.DurationSeconds,
		ProductsAdded:     h.ProductsAdded,
		ProductsUpdated:   h.ProductsUpdated,
		ProductsRemoved:   h.ProductsRemoved,
		ErrorsEncountered: h.ErrorsEncountered,
		Metadata:          h.Metadata,
		CreatedAt:         h.CreatedAt,
	}
}
