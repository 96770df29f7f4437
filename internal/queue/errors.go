package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrSerialization is matched by failures to encode a record
	ErrSerialization = errors.New("serialization error")

	// ErrSubmission is matched by failures returned from the broker
	ErrSubmission = errors.New("submission error")
)

// Kind classifies a publish failure
type Kind int

const (
	KindSerialization Kind = iota + 1
	KindSubmission
)

func (k Kind) String() string {
	switch k {
	case KindSerialization:
		return "serialization"
	case KindSubmission:
		return "submission"
	default:
		return "unknown"
	}
}

// PublishError describes why a record was not enqueued
type PublishError struct {
	Kind  Kind
	Queue Destination
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s error on %s queue: %v", e.Kind, e.Queue, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels as well as the wrapped cause.
func (e *PublishError) Is(target error) bool {
	switch target {
	case ErrSerialization:
		return e.Kind == KindSerialization
	case ErrSubmission:
		return e.Kind == KindSubmission
	}
	return false
}
