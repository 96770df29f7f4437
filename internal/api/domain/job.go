package domain

import (
	"errors"
)

// Job statuses recorded in the ledger
const (
	JobStatusPending         = "pending"
	JobStatusQueueFailed     = "queue_failed"
	JobStatusFirecrawlFailed = "firecrawl_failed"
	JobStatusQueuedSecondary = "queued_secondary"
)

var (
	ErrJobNotFound = errors.New("job not found")
)
