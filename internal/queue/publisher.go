package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Destination names one of the two configured queues
type Destination string

const (
	Primary   Destination = "primary"
	Secondary Destination = "secondary"
)

// Outcome labels used when reporting publish attempts
const (
	OutcomeSuccess            = "success"
	OutcomeSerializationError = "serialization_error"
	OutcomeSubmissionError    = "submission_error"
)

// Broker submits a message body to a destination and returns the broker's
// tracking identifier.
type Broker interface {
	Send(ctx context.Context, destination, body string) (string, error)
}

// Recorder receives one observation per publish attempt
type Recorder interface {
	ObservePublish(queue, outcome string, duration time.Duration)
}

// Config holds the two destination identifiers
type Config struct {
	PrimaryURL   string
	SecondaryURL string
}

// Validate checks that both destinations are set
func (c Config) Validate() error {
	if c.PrimaryURL == "" {
		return errors.New("primary queue url is required")
	}
	if c.SecondaryURL == "" {
		return errors.New("secondary queue url is required")
	}
	return nil
}

// Result is the outcome of a single publish call
type Result struct {
	Queue     Destination
	MessageID string
	// Record is the record that was (or would have been) submitted.
	Record JobRecord
	Err    error
}

// OK reports whether the broker accepted the message
func (r Result) OK() bool {
	return r.Err == nil
}

// Option configures a Publisher
type Option func(*Publisher)

// WithMetrics reports every publish attempt to rec
func WithMetrics(rec Recorder) Option {
	return func(p *Publisher) {
		p.metrics = rec
	}
}

// WithClock overrides the time source used for durations
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// Publisher enqueues job records onto the primary or secondary queue.
// It holds no mutable state and may be shared between goroutines as long as
// the broker can.
type Publisher struct {
	broker  Broker
	config  Config
	logger  *slog.Logger
	metrics Recorder
	now     func() time.Time
}

// NewPublisher creates a publisher. A nil logger discards log output.
func NewPublisher(broker Broker, config Config, logger *slog.Logger, opts ...Option) (*Publisher, error) {
	if broker == nil {
		return nil, errors.New("broker is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Publisher{
		broker: broker,
		config: config,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// PublishPrimary sends the record to the primary (Firecrawl) queue.
func (p *Publisher) PublishPrimary(ctx context.Context, record JobRecord) Result {
	return p.publish(ctx, Primary, p.config.PrimaryURL, record)
}

// SecondaryOption customizes a PublishSecondary call
type SecondaryOption func(*secondaryOptions)

type secondaryOptions struct {
	failureReason *string
}

// WithFailureReason annotates the record as demoted from the primary queue.
// An empty reason still annotates; only omitting the option leaves the record as is.
func WithFailureReason(reason string) SecondaryOption {
	return func(o *secondaryOptions) {
		o.failureReason = &reason
	}
}

// PublishSecondary sends the record to the secondary (custom crawler) queue.
// With WithFailureReason the submitted copy carries firecrawl_failure_reason and
// status=firecrawl_failed; the caller's record is never modified.
func (p *Publisher) PublishSecondary(ctx context.Context, record JobRecord, opts ...SecondaryOption) Result {
	var o secondaryOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.failureReason != nil {
		record = record.WithFailure(*o.failureReason)
	}

	return p.publish(ctx, Secondary, p.config.SecondaryURL, record)
}

func (p *Publisher) publish(ctx context.Context, dest Destination, url string, record JobRecord) Result {
	start := p.now()
	jobID, _ := record.JobID()
	result := Result{Queue: dest, Record: record}

	body, err := Encode(record)
	if err != nil {
		result.Err = &PublishError{Kind: KindSerialization, Queue: dest, Err: err}
		p.logger.Error("Failed to serialize job",
			slog.String("queue", string(dest)),
			slog.String("job_id", jobID),
			slog.String("error", result.Err.Error()),
		)
		p.observe(dest, OutcomeSerializationError, start)
		return result
	}

	messageID, err := p.broker.Send(ctx, url, body)
	if err != nil {
		result.Err = &PublishError{Kind: KindSubmission, Queue: dest, Err: err}
		p.logger.Error("Failed to send job to queue",
			slog.String("queue", string(dest)),
			slog.String("queue_url", url),
			slog.String("job_id", jobID),
			slog.String("error", result.Err.Error()),
		)
		p.observe(dest, OutcomeSubmissionError, start)
		return result
	}

	result.MessageID = messageID
	p.logger.Info("Job sent to queue",
		slog.String("queue", string(dest)),
		slog.String("job_id", jobID),
		slog.String("message_id", messageID),
	)
	p.observe(dest, OutcomeSuccess, start)

	return result
}

func (p *Publisher) observe(dest Destination, outcome string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObservePublish(string(dest), outcome, p.now().Sub(start))
}
