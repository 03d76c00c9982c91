package handler

import (
	"time"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/interfaces/http/dto"
)

// CreateJobRequest represents a request to schedule a sync job
// @Name HandlerCreateJobRequest
type CreateJobRequest struct {
	JobType     string         `json:"job_type" binding:"required" example:"dataset-sync"`
	EntityType  string         `json:"entity_type" binding:"required,max=50" example:"dataset"`
	EntityID    string         `json:"entity_id" binding:"required,max=100" example:"shoes"`
	Priority    int            `json:"priority" binding:"gte=-1000,lte=1000" example:"0"`
	ScheduledAt *time.Time     `json:"scheduled_at" example:"2026-03-01T12:00:00Z"`
	Metadata    map[string]any `json:"metadata"`
	MaxRetries  *int           `json:"max_retries" binding:"omitempty,gte=0,lte=20" example:"3"`
}

// ListJobsQuery represents the filters of a job listing
// @Name HandlerListJobsQuery
type ListJobsQuery struct {
	dto.ListRequest
	Status     string `form:"status" binding:"omitempty,oneof=PENDING RUNNING COMPLETED FAILED CANCELLED TIMEOUT"`
	JobType    string `form:"job_type" binding:"omitempty,job_type"`
	EntityType string `form:"entity_type" binding:"max=50"`
	EntityID   string `form:"entity_id" binding:"max=100"`
	UserID     string `form:"user_id" binding:"max=100"`
}

// JobResponse represents a sync job in API responses
// @Name HandlerJobResponse
type JobResponse struct {
	ID           string         `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	JobType      string         `json:"job_type" example:"dataset-sync"`
	EntityType   string         `json:"entity_type" example:"dataset"`
	EntityID     string         `json:"entity_id" example:"shoes"`
	UserID       string         `json:"user_id,omitempty" example:"user-1"`
	Status       string         `json:"status" example:"PENDING" enums:"PENDING,RUNNING,COMPLETED,FAILED,CANCELLED,TIMEOUT"`
	Priority     int            `json:"priority" example:"0"`
	ScheduledAt  string         `json:"scheduled_at" example:"2026-03-01T12:00:00Z"`
	StartedAt    string         `json:"started_at,omitempty" example:"2026-03-01T12:00:01Z"`
	CompletedAt  string         `json:"completed_at,omitempty" example:"2026-03-01T12:00:42Z"`
	RetryCount   int            `json:"retry_count" example:"0"`
	MaxRetries   int            `json:"max_retries" example:"3"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    string         `json:"created_at" example:"2026-03-01T12:00:00Z"`
	UpdatedAt    string         `json:"updated_at" example:"2026-03-01T12:00:00Z"`
}

// HistoryResponse represents a sync history record
// @Name HandlerHistoryResponse
type HistoryResponse struct {
	ID                string         `json:"id"`
	SyncJobID         string         `json:"sync_job_id,omitempty"`
	EntityType        string         `json:"entity_type" example:"dataset"`
	EntityID          string         `json:"entity_id" example:"shoes"`
	SyncType          string         `json:"sync_type" example:"dataset-sync"`
	Status            string         `json:"status" example:"COMPLETED"`
	StartedAt         string         `json:"started_at"`
	CompletedAt       string         `json:"completed_at"`
	DurationSeconds   float64        `json:"duration_seconds" example:"41.5"`
	ProductsAdded     int            `json:"products_added" example:"12"`
	ProductsUpdated   int            `json:"products_updated" example:"3"`
	ProductsRemoved   int            `json:"products_removed" example:"1"`
	ErrorsEncountered int            `json:"errors_encountered" example:"0"`
	Metadata          map[string]any `json:"metadata"`
}

func (q ListJobsQuery) toFilter() syncjob.Filter {
	return syncjob.Filter{
		Status:     syncjob.JobStatus(q.Status),
		JobType:    syncjob.JobType(q.JobType),
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		UserID:     q.UserID,
		SortBy:     q.OrderBy,
		SortDir:    q.OrderDir,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}.Normalize()
}

func toJobResponse(j *syncjob.SyncJob) JobResponse {
	return JobResponse{
		ID:           j.ID.String(),
		JobType:      j.JobType.String(),
		EntityType:   j.EntityType,
		EntityID:     j.EntityID,
		UserID:       j.UserID,
		Status:       string(j.Status),
		Priority:     j.Priority,
		ScheduledAt:  j.ScheduledAt.Format(timeLayout),
		StartedAt:    formatOptionalTime(j.StartedAt),
		CompletedAt:  formatOptionalTime(j.CompletedAt),
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		ErrorMessage: j.ErrorMessage,
		Metadata:     j.Metadata,
		CreatedAt:    j.CreatedAt.Format(timeLayout),
		UpdatedAt:    j.UpdatedAt.Format(timeLayout),
	}
}

func toJobResponses(jobs []*syncjob.SyncJob) []JobResponse {
	out := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toJobResponse(j)
	}
	return out
}

func toHistoryResponses(records []*syncjob.SyncHistory) []HistoryResponse {
	out := make([]HistoryResponse, len(records))
	for i, h := range records {
		r := HistoryResponse{
			ID:                h.ID.String(),
			EntityType:        h.EntityType,
			EntityID:          h.EntityID,
			SyncType:          h.SyncType.String(),
			Status:            string(h.Status),
			StartedAt:         h.StartedAt.Format(timeLayout),
			CompletedAt:       h.CompletedAt.Format(timeLayout),
			DurationSeconds:   h.DurationSeconds,
			ProductsAdded:     h.ProductsAdded,
			ProductsUpdated:   h.ProductsUpdated,
			ProductsRemoved:   h.ProductsRemoved,
			ErrorsEncountered: h.ErrorsEncountered,
			Metadata:          h.Metadata,
		}
		if h.SyncJobID != nil {
			r.SyncJobID = h.SyncJobID.String()
		}
		out[i] = r
	}
	return out
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
