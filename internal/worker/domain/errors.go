package domain

import "errors"

var (
	// ErrInvalidPayload is returned when a queue message is malformed
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrQueueFull is returned when the in-process job queue has no free slot
	ErrQueueFull = errors.New("job queue is full")

	// ErrWorkerStopped is returned when scheduling on a stopped worker
	ErrWorkerStopped = errors.New("worker is stopped")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
