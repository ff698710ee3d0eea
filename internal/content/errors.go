package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("content not found")
	ErrUnknownKind = errors.New("unknown content kind")
)

// NotFoundError names the missing target. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError rejects a payload before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// QuotaExceededError refuses a promotion because the bucket is full.
type QuotaExceededError struct {
	Kind   Kind
	Bucket TimeBucket
	Count  int
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("featured limit reached for %s/%s: %d of %d", e.Kind, e.Bucket, e.Count, e.Limit)
}

// AssetOperationError reports object-store keys that could not be put or removed.
// It is never fatal to a mutation.
type AssetOperationError struct {
	Bucket string
	Keys   []string
	Err    error
}

func (e *AssetOperationError) Error() string {
	return fmt.Sprintf("asset operation on %s [%s]: %v", e.Bucket, strings.Join(e.Keys, ","), e.Err)
}

func (e *AssetOperationError) Unwrap() error { return e.Err }

// AuditWriteError reports a failed audit append. It is never fatal to a mutation.
type AuditWriteError struct {
	Err error
}

func (e *AuditWriteError) Error() string { return "audit append: " + e.Err.Error() }

func (e *AuditWriteError) Unwrap() error { return e.Err }

// PersistenceError is a document-store failure. It aborts the mutation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
