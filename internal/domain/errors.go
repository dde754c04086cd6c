package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the batchq engine.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrCapacityExceeded is returned when a buffer already holds its hard cap of entries.
	ErrCapacityExceeded = errors.New("batchq: capacity exceeded")

	// ErrCancelled is delivered to completions still resident when their
	// destination is closed or evicted.
	ErrCancelled = errors.New("batchq: cancelled")

	// ErrClosed is returned when submitting to, or closing, a closed manager.
	ErrClosed = errors.New("batchq: closed")

	// ErrUnknownDestination is returned when evicting a destination that has no buffer.
	ErrUnknownDestination = errors.New("batchq: unknown destination")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("batchq: invalid configuration")

	// ErrShutdownTimeout is returned when in-flight batches outlive the shutdown timeout.
	ErrShutdownTimeout = errors.New("batchq: shutdown timeout")

	// ErrMissingResult is delivered to an entry the transport returned no result for.
	ErrMissingResult = errors.New("batchq: missing result")
)

// CapacityError describes a rejected insert. It unwraps to ErrCapacityExceeded.
type CapacityError struct {
	Current  int // Resident entries at the time of the insert
	Capacity int // Hard cap of the buffer
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d/%d", ErrCapacityExceeded, e.Current, e.Capacity)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// BatchError is delivered to every entry of a batch whose send failed as a whole.
type BatchError struct {
	Destination string
	BatchID     uint64
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batchq: batch %d to %q failed: %v", e.BatchID, e.Destination, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// validationError wraps ErrInvalidConfig with a reason.
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
