package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

// OpError reports a failed I/O operation against the backing store.
// These failures are transient from the caller's point of view: the same
// call may succeed if retried.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *OpError for op, or nil when err is nil.
// ErrNotFound is passed through unchanged.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &OpError{Op: op, Err: err}
}

// IsRetryable reports whether err came from a failed store operation.
func IsRetryable(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr)
}
