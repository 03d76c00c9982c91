package syncjob

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// SummaryCounts summarizes the effect of a finished job
type SummaryCounts struct {
	ProductsAdded     int            `json:"products_added"`
	ProductsUpdated   int            `json:"products_updated"`
	ProductsRemoved   int            `json:"products_removed"`
	ErrorsEncountered int            `json:"errors_encountered"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// SyncHistory is an immutable audit record of a finished sync operation
type SyncHistory struct {
	ID                uuid.UUID      `json:"id"`
	SyncJobID         *uuid.UUID     `json:"sync_job_id,omitempty"`
	EntityType        string         `json:"entity_type"`
	EntityID          string         `json:"entity_id"`
	UserID            string         `json:"user_id,omitempty"`
	SyncType          JobType        `json:"sync_type"`
	Status            JobStatus      `json:"status"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       time.Time      `json:"completed_at"`
	DurationSeconds   float64        `json:"duration_seconds"`
	ProductsAdded     int            `json:"products_added"`
	ProductsUpdated   int            `json:"products_updated"`
	ProductsRemoved   int            `json:"products_removed"`
	ErrorsEncountered int            `json:"errors_encountered"`
	Metadata          map[string]any `json:"metadata"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewSyncHistoryFromJob builds the history record of a job in a terminal state.
// A job that never started (cancelled while pending) uses its completion time as start.
func NewSyncHistoryFromJob(job *SyncJob, counts SummaryCounts, now time.Time) (*SyncHistory, error) {
	if !job.IsTerminal() {
		return nil, ErrHistoryInvalidJob
	}

	completedAt := now
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	startedAt := completedAt
	if job.StartedAt != nil {
		startedAt = *job.StartedAt
	}

	metadata := make(map[string]any, len(job.Metadata)+len(counts.Metadata)+1)
	maps.Copy(metadata, job.Metadata)
	maps.Copy(metadata, counts.Metadata)
	if job.ErrorMessage != "" {
		metadata["error_message"] = job.ErrorMessage
	}
	metadata["retry_count"] = job.RetryCount

	jobID := job.ID
	return &SyncHistory{
		ID:                uuid.New(),
		SyncJobID:         &jobID,
		EntityType:        job.EntityType,
		EntityID:          job.EntityID,
		UserID:            job.UserID,
		SyncType:          job.JobType,
		Status:            job.Status,
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
		DurationSeconds:   completedAt.Sub(startedAt).Seconds(),
		ProductsAdded:     counts.ProductsAdded,
		ProductsUpdated:   counts.ProductsUpdated,
		ProductsRemoved:   counts.ProductsRemoved,
		ErrorsEncountered: counts.ErrorsEncountered,
		Metadata:          metadata,
		CreatedAt:         now,
	}, nil
}
