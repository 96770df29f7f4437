package model

import (
	"database/sql"
	"time"
)

type Job struct {
	JobID         string         `db:"job_id"`
	CompanyName   string         `db:"company_name"`
	Website       string         `db:"website"`
	Status        string         `db:"status"`
	FailureReason sql.NullString `db:"failure_reason"`
	MessageID     sql.NullString `db:"message_id"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}
