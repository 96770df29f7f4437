package dto

type ScrapeCompanyRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Website     string `json:"website" binding:"required"`
}

type JobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// FallbackRequest routes a job to the custom crawler queue. A nil
// FailureReason means the job is not marked as a failed Firecrawl attempt.
type FallbackRequest struct {
	FailureReason *string `json:"failure_reason"`
}

type FallbackResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID         string `json:"job_id"`
	CompanyName   string `json:"company_name"`
	Website       string `json:"website"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	MessageID     string `json:"message_id,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
