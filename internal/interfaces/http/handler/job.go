package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/logger"
	"github.com/dropship/backend/internal/infrastructure/scheduler"
)

// JobService is the job lifecycle API used by the handler
type JobService interface {
	Schedule(ctx context.Context, req scheduler.ScheduleRequest) (*syncjob.SyncJob, error)
	Get(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, error)
	List(ctx context.Context, filter syncjob.Filter) ([]*syncjob.SyncJob, int64, error)
	History(ctx context.Context, jobID uuid.UUID) ([]*syncjob.SyncHistory, error)
	Cancel(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, error)
}

// JobRunner executes jobs in this process
type JobRunner interface {
	Cancel(ctx context.Context, jobID uuid.UUID) (*syncjob.SyncJob, error)
	Notify()
}

// JobHandler handles sync job API endpoints
type JobHandler struct {
	BaseHandler
	service JobService
	runner  JobRunner
}

// NewJobHandler creates a new JobHandler. runner may be nil when jobs are
// executed by another process.
func NewJobHandler(service JobService, runner JobRunner) *JobHandler {
	return &JobHandler{
		service: service,
		runner:  runner,
	}
}

// Create godoc
// @ID           createSyncJob
// @Summary      Schedule a sync job
// @Description  Creates a PENDING job; it runs once its scheduled time has arrived
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Caller user ID"
// @Param        request body CreateJobRequest true "Job to schedule"
// @Success      201 {object} APIResponse[JobResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req CreateJobRequest
	if !bindJSON(c, &req) {
		return
	}

	var scheduledAt time.Time
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}
	job, err := h.service.Schedule(c.Request.Context(), scheduler.ScheduleRequest{
		JobType:     syncjob.JobType(req.JobType),
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		UserID:      getUserID(c),
		Priority:    req.Priority,
		ScheduledAt: scheduledAt,
		Metadata:    req.Metadata,
		MaxRetries:  req.MaxRetries,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.runner != nil {
		h.runner.Notify()
	}
	h.Created(c, toJobResponse(job))
}

// Get godoc
// @ID           getSyncJob
// @Summary      Get a sync job
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[JobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toJobResponse(job))
}

// List godoc
// @ID           listSyncJobs
// @Summary      List sync jobs
// @Tags         jobs
// @Produce      json
// @Param        status query string false "Job status"
// @Param        job_type query string false "Job type"
// @Param        entity_type query string false "Entity type"
// @Param        entity_id query string false "Entity ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} PagedResponse[JobResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var query ListJobsQuery
	if !bindQuery(c, &query) {
		return
	}

	filter := query.toFilter()
	jobs, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toJobResponses(jobs), total, filter.Page, filter.PageSize)
}

// Cancel godoc
// @ID           cancelSyncJob
// @Summary      Cancel a sync job
// @Description  Cancels a PENDING or RUNNING job; a running execution in this process is interrupted
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[JobResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /jobs/{id}/cancel [post]
func (h *JobHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	cancel := h.service.Cancel
	if h.runner != nil {
		cancel = h.runner.Cancel
	}
	job, err := cancel(c.Request.Context(), id)
	if err != nil && !(job != nil && errors.Is(err, scheduler.ErrHistoryWrite)) {
		h.HandleError(c, err)
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("Job cancelled without history record",
			zap.String("job_id", id.String()), zap.Error(err))
	}
	h.Success(c, toJobResponse(job))
}

// History godoc
// @ID           getSyncJobHistory
// @Summary      Get the history records of a sync job
// @Tags         jobs
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[[]HistoryResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /jobs/{id}/history [get]
func (h *JobHandler) History(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	records, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toHistoryResponses(records))
}

// RegisterRoutes registers the job routes
func (h *JobHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/jobs")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id/history", h.History)
}
