package model

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvariantViolation = errors.New("job invariant violated")
)

// ErrorKind classifies why a job operation failed
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindNotReady           ErrorKind = "NotReady"
	KindGenerationFailure  ErrorKind = "GenerationFailure"
	KindPersistenceFailure ErrorKind = "PersistenceFailure"
	KindNoPlayableMedia    ErrorKind = "NoPlayableMedia"
	KindNotFound           ErrorKind = "NotFound"
	KindConflict           ErrorKind = "Conflict"
)

// JobError carries a kind alongside the message recorded on the job
type JobError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *JobError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError wraps err with a kind. The message is taken from err.
func NewJobError(kind ErrorKind, err error) *JobError {
	return &JobError{Kind: kind, Message: err.Error(), Err: err}
}

// JobErrorf builds a JobError from a format string.
func JobErrorf(kind ErrorKind, format string, args ...interface{}) *JobError {
	return &JobError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Unclassified errors report as
// persistence failures.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	if errors.Is(err, ErrJobNotFound) {
		return KindNotFound
	}
	if errors.Is(err, ErrInvalidTransition) {
		return KindConflict
	}
	return KindPersistenceFailure
}
