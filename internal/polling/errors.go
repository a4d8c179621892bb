package polling

import (
	"errors"
	"fmt"
)

// Sentinel errors for the terminal outcomes Run produces itself.
// Logical failures reported by a classifier are returned verbatim and do not
// match any of these.
var (
	// ErrTimeout is matched by errors returned when the attempt budget ran out
	// while the job was still pending.
	ErrTimeout = errors.New("polling timeout")

	// ErrConsecutiveFailures is matched by errors returned when the query kept
	// failing to execute past the configured threshold.
	ErrConsecutiveFailures = errors.New("polling failed after consecutive attempts")

	// ErrCancelled is matched by errors returned when the context ended the run.
	ErrCancelled = errors.New("polling cancelled")

	// ErrTaskFailed is returned for a Failed verdict that carries no error.
	ErrTaskFailed = errors.New("task reported failure")

	// ErrInvalidOptions is returned when Options fail validation.
	ErrInvalidOptions = errors.New("invalid polling options")
)

// TimeoutError reports that MaxRetries attempts were made without the job
// reaching a terminal state.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("polling timeout after %d attempts", e.Attempts)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ConsecutiveFailureError reports that the query failed Count times in a row.
// It wraps the last query error.
type ConsecutiveFailureError struct {
	Count int
	Err   error
}

func (e *ConsecutiveFailureError) Error() string {
	return fmt.Sprintf("polling failed after %d consecutive attempts: %v", e.Count, e.Err)
}

func (e *ConsecutiveFailureError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConsecutiveFailures.
func (e *ConsecutiveFailureError) Is(target error) bool {
	return target == ErrConsecutiveFailures
}

// CancelledError reports that the context was done before the job reached a
// terminal state. It wraps the context's error.
type CancelledError struct {
	Attempts int
	Err      error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("polling cancelled after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCancelled.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}
