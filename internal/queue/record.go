package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Well-known record keys
const (
	KeyJobID                  = "job_id"
	KeyStatus                 = "status"
	KeyFirecrawlFailureReason = "firecrawl_failure_reason"

	// StatusFirecrawlFailed marks a record demoted from the primary queue
	StatusFirecrawlFailed = "firecrawl_failed"
)

// JobRecord is an opaque job description. Values must be JSON encodable.
type JobRecord map[string]any

// JobID returns the record's job_id rendered as a string, if present.
func (r JobRecord) JobID() (string, bool) {
	v, ok := r[KeyJobID]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// WithFailure returns a shallow copy of r annotated as a failed primary attempt.
// Any existing status is overwritten. r itself is left untouched.
func (r JobRecord) WithFailure(reason string) JobRecord {
	out := make(JobRecord, len(r)+2)
	maps.Copy(out, r)
	out[KeyFirecrawlFailureReason] = reason
	out[KeyStatus] = StatusFirecrawlFailed
	return out
}

// Encode renders the record as canonical JSON: object keys sorted, no HTML
// escaping, no trailing newline. Consumers decode the body back into a map.
func Encode(r JobRecord) (string, error) {
	if r == nil {
		r = JobRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", err
	}

	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Decode parses a message body produced by Encode.
func Decode(body string) (JobRecord, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var r JobRecord
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode job record: %w", err)
	}
	return r, nil
}
