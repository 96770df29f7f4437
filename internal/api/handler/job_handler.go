package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/company-ingest/internal/api/domain"
	"github.com/cuongbtq/company-ingest/internal/api/dto"
	"github.com/cuongbtq/company-ingest/internal/api/model"
	"github.com/cuongbtq/company-ingest/internal/api/storage"
	"github.com/cuongbtq/company-ingest/internal/queue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ScrapeCompany handles POST /api/v1/companies/scrape
// Records a new job and submits it to the Firecrawl queue
func (h *JobHandler) ScrapeCompany(c *gin.Context) {
	var req dto.ScrapeCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid scrape request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Company name and website are required",
		})
		return
	}

	now := h.now().UTC()
	job := model.Job{
		JobID:       uuid.New().String(),
		CompanyName: req.CompanyName,
		Website:     req.Website,
		Status:      domain.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx := c.Request.Context()

	if h.store != nil {
		if err := h.store.CreateJob(ctx, &job); err != nil {
			h.logger.Error("Failed to record job",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record job",
			})
			return
		}
	}

	pubCtx, cancel := h.publishContext(ctx)
	result := h.publisher.PublishPrimary(pubCtx, jobRecord(&job))
	cancel()

	if !result.OK() {
		h.updateStatus(c, storage.StatusUpdate{
			JobID:     job.JobID,
			Status:    domain.JobStatusQueueFailed,
			UpdatedAt: h.now().UTC(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Failed to submit job to queue",
			"job_id": job.JobID,
		})
		return
	}

	h.updateStatus(c, storage.StatusUpdate{
		JobID:     job.JobID,
		Status:    domain.JobStatusPending,
		MessageID: result.MessageID,
		UpdatedAt: h.now().UTC(),
	})

	h.logger.Info("Job submitted",
		slog.String("job_id", job.JobID),
		slog.String("company_name", job.CompanyName),
	)

	c.JSON(http.StatusAccepted, dto.JobResponse{
		JobID:   job.JobID,
		Status:  domain.JobStatusPending,
		Message: "Job submitted for processing",
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	if !h.requireStore(c) {
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.respondLookupError(c, jobID, err)
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs newest first with cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}

	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), storage.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = toJobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// FallbackJob handles POST /api/v1/jobs/:job_id/fallback
// Routes a recorded job to the custom crawler queue, optionally marking it
// as a failed Firecrawl attempt
func (h *JobHandler) FallbackJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	if !h.requireStore(c) {
		return
	}

	var req dto.FallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid fallback request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	ctx := c.Request.Context()

	job, err := h.store.GetJobByID(ctx, jobID)
	if err != nil {
		h.respondLookupError(c, jobID, err)
		return
	}

	var opts []queue.SecondaryOption
	status := domain.JobStatusQueuedSecondary
	switch {
	case req.FailureReason != nil:
		opts = append(opts, queue.WithFailureReason(*req.FailureReason))
		status = domain.JobStatusFirecrawlFailed
	case job.FailureReason.Valid:
		// already demoted; jobRecord carries the stored reason
		status = domain.JobStatusFirecrawlFailed
	}

	pubCtx, cancel := h.publishContext(ctx)
	result := h.publisher.PublishSecondary(pubCtx, jobRecord(job), opts...)
	cancel()

	if !result.OK() {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "Failed to submit job to fallback queue",
			"job_id": jobID,
		})
		return
	}

	h.updateStatus(c, storage.StatusUpdate{
		JobID:         jobID,
		Status:        status,
		FailureReason: req.FailureReason,
		MessageID:     result.MessageID,
		UpdatedAt:     h.now().UTC(),
	})

	c.JSON(http.StatusAccepted, dto.FallbackResponse{
		JobID:     jobID,
		Status:    status,
		MessageID: result.MessageID,
	})
}

func (h *JobHandler) jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Warn("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return "", false
	}
	return jobID, true
}

func (h *JobHandler) requireStore(c *gin.Context) bool {
	if h.store != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Job ledger is disabled",
	})
	return false
}

func (h *JobHandler) respondLookupError(c *gin.Context, jobID string, err error) {
	if errors.Is(err, domain.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to get job",
	})
}

// updateStatus records a publish outcome in the ledger. The message is
// already on the queue at this point, so a ledger failure is logged only.
func (h *JobHandler) updateStatus(c *gin.Context, update storage.StatusUpdate) {
	if h.store == nil {
		return
	}
	if err := h.store.UpdateJobStatus(c.Request.Context(), update); err != nil {
		h.logger.Error("Failed to update job status",
			slog.String("job_id", update.JobID),
			slog.String("status", update.Status),
			slog.String("error", err.Error()),
		)
	}
}

// jobRecord is the message body consumers of both queues expect. A stored
// failure reason travels with the status it explains.
func jobRecord(job *model.Job) queue.JobRecord {
	record := queue.JobRecord{
		queue.KeyJobID:  job.JobID,
		"company_name":  job.CompanyName,
		"website":       job.Website,
		queue.KeyStatus: job.Status,
		"created_at":    job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.FailureReason.Valid {
		record[queue.KeyFirecrawlFailureReason] = job.FailureReason.String
	}
	return record
}

func toJobDTO(job *model.Job) dto.JobDTO {
	return dto.JobDTO{
		JobID:         job.JobID,
		CompanyName:   job.CompanyName,
		Website:       job.Website,
		Status:        job.Status,
		FailureReason: job.FailureReason.String,
		MessageID:     job.MessageID.String,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	}
}
