package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/company-ingest/internal/api/domain"
	"github.com/cuongbtq/company-ingest/internal/api/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobColumns = []string{
	"job_id", "company_name", "website", "status",
	"failure_reason", "message_id", "created_at", "updated_at",
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func TestStorage_CreateJob(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	job := &model.Job{
		JobID:       "6f1c2f7e-3b0a-4c59-9f55-8c6a2b1e0d11",
		CompanyName: "Acme",
		Website:     "https://acme.io",
		Status:      domain.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WithArgs(job.JobID, "Acme", "https://acme.io", "pending", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CreateJob(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CreateJob_Error(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WillReturnError(errors.New("duplicate key"))

	err := s.CreateJob(context.Background(), &model.Job{JobID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create job")
}

func TestStorage_GetJobByID(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(jobColumns).
			AddRow("job-1", "Acme", "https://acme.io", "firecrawl_failed", "timeout", "msg-1", now, now))

	job, err := s.GetJobByID(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, "Acme", job.CompanyName)
	assert.Equal(t, "firecrawl_failed", job.Status)
	assert.Equal(t, sql.NullString{String: "timeout", Valid: true}, job.FailureReason)
	assert.Equal(t, sql.NullString{String: "msg-1", Valid: true}, job.MessageID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetJobByID_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	job, err := s.GetJobByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Nil(t, job)
}

func TestStorage_UpdateJobStatus(t *testing.T) {
	reason := "timeout after 30s"
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		update       StatusUpdate
		wantReason   interface{}
		rowsAffected int64
		wantErr      error
	}{
		{
			name:         "with failure reason",
			update:       StatusUpdate{JobID: "job-1", Status: "firecrawl_failed", FailureReason: &reason, MessageID: "msg-2", UpdatedAt: now},
			wantReason:   reason,
			rowsAffected: 1,
		},
		{
			name:         "without failure reason",
			update:       StatusUpdate{JobID: "job-1", Status: "pending", MessageID: "msg-1", UpdatedAt: now},
			wantReason:   nil,
			rowsAffected: 1,
		},
		{
			name:         "unknown job",
			update:       StatusUpdate{JobID: "job-404", Status: "pending", UpdatedAt: now},
			wantReason:   nil,
			rowsAffected: 0,
			wantErr:      domain.ErrJobNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET")).
				WithArgs(tt.update.JobID, tt.update.Status, tt.wantReason, tt.update.MessageID, now).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			err := s.UpdateJobStatus(context.Background(), tt.update)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ListJobs(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter JobFilter
		args   []driver.Value
	}{
		{
			name:   "no filters",
			filter: JobFilter{PageSize: 20},
			args:   []driver.Value{21},
		},
		{
			name:   "status filter",
			filter: JobFilter{Status: "pending", PageSize: 10},
			args:   []driver.Value{"pending", 11},
		},
		{
			name:   "status and cursor",
			filter: JobFilter{Status: "pending", PageSize: 5, Cursor: &JobCursor{CreatedAt: now, JobID: "job-9"}},
			args:   []driver.Value{"pending", now, "job-9", 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, job_id DESC")).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(jobColumns).
					AddRow("job-2", "Acme", "https://acme.io", "pending", nil, "msg-2", now, now).
					AddRow("job-1", "Beta", "https://beta.io", "pending", nil, nil, now, now))

			jobs, err := s.ListJobs(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, "job-2", jobs[0].JobID)
			assert.False(t, jobs[1].MessageID.Valid)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
