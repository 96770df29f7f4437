package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/company-ingest/internal/api/model"
	"github.com/cuongbtq/company-ingest/internal/api/storage"
	"github.com/cuongbtq/company-ingest/internal/queue"
)

// JobPublisher enqueues job records; satisfied by *queue.Publisher
type JobPublisher interface {
	PublishPrimary(ctx context.Context, record queue.JobRecord) queue.Result
	PublishSecondary(ctx context.Context, record queue.JobRecord, opts ...queue.SecondaryOption) queue.Result
}

// JobStore is the job ledger; satisfied by *storage.Storage
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, update storage.StatusUpdate) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Publisher JobPublisher
	// Store may be nil when the ledger is disabled
	Store          JobStore
	PublishTimeout time.Duration
	Now            func() time.Time
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger         *slog.Logger
	publisher      JobPublisher
	store          JobStore
	publishTimeout time.Duration
	now            func() time.Time
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &JobHandler{
		logger:         deps.Logger,
		publisher:      deps.Publisher,
		store:          deps.Store,
		publishTimeout: deps.PublishTimeout,
		now:            now,
	}
}

// publishContext bounds a single broker call
func (h *JobHandler) publishContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.publishTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, h.publishTimeout)
}
