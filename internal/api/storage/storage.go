package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/company-ingest/internal/api/domain"
	"github.com/cuongbtq/company-ingest/internal/api/model"
	"github.com/cuongbtq/company-ingest/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Schema creates the jobs table and its indexes
//
//go:embed schema.sql
var Schema string

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// NewWithDB wraps an existing connection pool
func NewWithDB(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, company_name, website, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.CompanyName,
		job.Website,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT
			job_id, company_name, website, status,
			failure_reason, message_id, created_at, updated_at
		FROM jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// StatusUpdate describes a ledger transition after a publish attempt.
// Empty MessageID and nil FailureReason leave the stored values as they are.
type StatusUpdate struct {
	JobID         string
	Status        string
	FailureReason *string
	MessageID     string
	UpdatedAt     time.Time
}

func (s *Storage) UpdateJobStatus(ctx context.Context, update StatusUpdate) error {
	query := `
		UPDATE jobs SET
			status = $2,
			failure_reason = COALESCE($3, failure_reason),
			message_id = COALESCE(NULLIF($4, ''), message_id),
			updated_at = $5
		WHERE job_id = $1
	`

	var reason sql.NullString
	if update.FailureReason != nil {
		reason = sql.NullString{String: *update.FailureReason, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query,
		update.JobID,
		update.Status,
		reason,
		update.MessageID,
		update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}

type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs, newest first; the extra row tells
// the caller whether another page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
        SELECT
            job_id, company_name, website, status,
            failure_reason, message_id, created_at, updated_at
        FROM jobs
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
