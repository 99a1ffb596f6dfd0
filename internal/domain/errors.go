package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when no job matches the lookup
	ErrJobNotFound = errors.New("job not found")

	// ErrJobBusy is returned when another operation holds the job's lock
	ErrJobBusy = errors.New("job is locked by another operation")

	// ErrOutputMissing is returned when a stage reported success but its output file does not exist
	ErrOutputMissing = errors.New("stage output file was not produced")

	// ErrSourceUnavailable is returned when an upload job lost its source video
	ErrSourceUnavailable = errors.New("source video is unavailable")

	// ErrArtifactNotFound is returned when a requested artifact does not exist on disk
	ErrArtifactNotFound = errors.New("artifact not found")
)

// ValidationError reports a rejected input before any work was started.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StageError carries the stage that failed and the underlying cause.
type StageError struct {
	Stage    Stage
	HashName string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed for %s: %v", e.Stage, e.HashName, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new stage error
func NewStageError(stage Stage, hashName string, err error) error {
	return &StageError{Stage: stage, HashName: hashName, Err: err}
}
