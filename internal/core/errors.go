package core

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that an entry does not exist or has expired. Retrieval
// paths treat it as normal control flow; Relate treats it as a failure.
var ErrNotFound = errors.New("entry not found")

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LimitExceeded reports input past a configured maximum (content length,
// tag count). Handled like a validation failure.
type LimitExceeded struct {
	Field string
	Max   int
	Got   int
}

func (e *LimitExceeded) Error() string {
	return fmt.Sprintf("%s exceeds limit: %d > %d", e.Field, e.Got, e.Max)
}

// StorageError wraps a persistence failure. The whole logical operation is
// safe to retry: Put is idempotent per ID and edge inserts are keyed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func StorageFailed(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	var le *LimitExceeded
	return errors.As(err, &ve) || errors.As(err, &le)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
