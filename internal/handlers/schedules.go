package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/internal/scheduler"
)

// ScheduleRecordStore is the slice of schedule persistence the handler needs.
type ScheduleRecordStore interface {
	List(ctx context.Context) ([]scheduler.Record, error)
	GetByID(ctx context.Context, id string) (*scheduler.Record, error)
	Create(ctx context.Context, rec *scheduler.Record) error
	Update(ctx context.Context, rec *scheduler.Record) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	SetRunningByJobID(ctx context.Context, jobID string, running bool) error
	DeleteByJobID(ctx context.Context, jobID string) error
}

// ScheduleHandler serves the admin job-management and schedule-record
// endpoints. The record store may be nil when no database is configured;
// jobs then live in memory only and do not survive a restart.
type ScheduleHandler struct {
	registry *scheduler.Registry
	records  ScheduleRecordStore
	logger   zerolog.Logger
}

// NewScheduleHandler creates a schedule handler.
func NewScheduleHandler(registry *scheduler.Registry, records ScheduleRecordStore, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{registry: registry, records: records, logger: logger}
}

// RegisterJobRequest represents a job registration
type RegisterJobRequest struct {
	CronExpr    string `json:"cronExpr" binding:"required" jsonschema:"required"`
	Kind        string `json:"kind"`
	JobID       string `json:"jobId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterJob validates and schedules a new job, mirrors it to the record
// store and fires one immediate run so a fresh schedule takes effect without
// waiting for the first tick.
// POST /admin/schedules
func (h *ScheduleHandler) RegisterJob(c *gin.Context) {
	var req RegisterJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Kind == "" {
		req.Kind = "discountSync"
	}

	id, err := h.registry.Register(req.CronExpr, req.Kind, req.JobID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Mirror failure is logged, not fatal: the job is live either way, the
	// record only matters for the next restart.
	if h.records != nil {
		rec := &scheduler.Record{
			Name:        req.Name,
			Description: req.Description,
			CronExpr:    req.CronExpr,
			JobID:       id,
			JobKind:     req.Kind,
			Running:     true,
		}
		if err := h.records.Create(c.Request.Context(), rec); err != nil {
			h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to mirror schedule record")
		}
	}

	go h.registry.RunKind(context.Background(), req.Kind)

	c.JSON(http.StatusCreated, gin.H{
		"jobId":    id,
		"cronExpr": req.CronExpr,
		"kind":     req.Kind,
		"running":  true,
	})
}

// ListJobs returns the live jobs.
// GET /admin/schedules
func (h *ScheduleHandler) ListJobs(c *gin.Context) {
	jobs := h.registry.List()
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

// StartJob resumes a stopped job.
// POST /admin/schedules/:jobId/start
func (h *ScheduleHandler) StartJob(c *gin.Context) {
	h.setJobRunning(c, true)
}

// StopJob pauses a job without losing it.
// POST /admin/schedules/:jobId/stop
func (h *ScheduleHandler) StopJob(c *gin.Context) {
	h.setJobRunning(c, false)
}

func (h *ScheduleHandler) setJobRunning(c *gin.Context, running bool) {
	jobID := c.Param("jobId")

	var ok bool
	if running {
		ok = h.registry.Start(jobID)
	} else {
		ok = h.registry.Stop(jobID)
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	if h.records != nil {
		if err := h.records.SetRunningByJobID(c.Request.Context(), jobID, running); err != nil {
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mirror running flag")
		}
	}
	c.JSON(http.StatusOK, gin.H{"jobId": jobID, "running": running})
}

// CancelJob stops and removes a job and its mirror records.
// DELETE /admin/schedules/:jobId
func (h *ScheduleHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")
	if !h.registry.Cancel(jobID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	if h.records != nil {
		if err := h.records.DeleteByJobID(c.Request.Context(), jobID); err != nil {
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete mirror records")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job cancelled", "jobId": jobID})
}

// ScheduleRecordRequest represents a direct record create or update
type ScheduleRecordRequest struct {
	Name        string `json:"name" binding:"required" jsonschema:"required"`
	Description string `json:"description"`
	CronExpr    string `json:"cronExpr" binding:"required" jsonschema:"required"`
	JobID       string `json:"jobId"`
	JobKind     string `json:"jobKind"`
	Running     bool   `json:"running"`
}

func (h *ScheduleHandler) requireRecords(c *gin.Context) bool {
	if h.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Schedule persistence not configured"})
		return false
	}
	return true
}

// ListRecords returns the persisted schedule records.
// GET /admin/schedules/records
func (h *ScheduleHandler) ListRecords(c *gin.Context) {
	if !h.requireRecords(c) {
		return
	}
	records, err := h.records.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedule records"})
		return
	}
	if records == nil {
		records = []scheduler.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": len(records)})
}

// GetRecord returns one persisted schedule record.
// GET /admin/schedules/records/:recordId
func (h *ScheduleHandler) GetRecord(c *gin.Context) {
	if !h.requireRecords(c) {
		return
	}
	rec, err := h.records.GetByID(c.Request.Context(), c.Param("recordId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedule record"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateRecord inserts a schedule record without touching live jobs. Used by
// tooling that seeds schedules ahead of a deploy.
// POST /admin/schedules/records
func (h *ScheduleHandler) CreateRecord(c *gin.Context) {
	if !h.requireRecords(c) {
		return
	}
	var req ScheduleRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := &scheduler.Record{
		Name:        req.Name,
		Description: req.Description,
		CronExpr:    req.CronExpr,
		JobID:       req.JobID,
		JobKind:     req.JobKind,
		Running:     req.Running,
	}
	if err := h.records.Create(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create schedule record"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// UpdateRecord rewrites a schedule record. When the record mirrors a live job
// the job is re-registered under the same id so the new schedule takes effect.
// PUT /admin/schedules/records/:recordId
func (h *ScheduleHandler) UpdateRecord(c *gin.Context) {
	if !h.requireRecords(c) {
		return
	}
	var req ScheduleRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The record must exist before any live job is touched: an unknown
	// recordId is a pure 404, never a registry mutation.
	existing, err := h.records.GetByID(c.Request.Context(), c.Param("recordId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedule record"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule record not found"})
		return
	}

	rec := &scheduler.Record{
		ID:          existing.ID,
		Name:        req.Name,
		Description: req.Description,
		CronExpr:    req.CronExpr,
		JobID:       req.JobID,
		JobKind:     req.JobKind,
		Running:     req.Running,
	}

	if rec.JobID != "" && rec.CronExpr != "" && rec.JobKind != "" {
		if _, err := h.registry.Register(rec.CronExpr, rec.JobKind, rec.JobID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !rec.Running {
			h.registry.Stop(rec.JobID)
		}
	}

	ok, err := h.records.Update(c.Request.Context(), rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule record"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteRecord removes a schedule record. The live job, if any, keeps running
// until cancelled explicitly.
// DELETE /admin/schedules/records/:recordId
func (h *ScheduleHandler) DeleteRecord(c *gin.Context) {
	if !h.requireRecords(c) {
		return
	}
	id := c.Param("recordId")
	ok, err := h.records.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete schedule record"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule record deleted", "recordId": id})
}
