package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/genpoll/internal/polling"
)

var (
	// ErrSubmitFailed wraps errors from Job.Submit. Submissions are not retried.
	ErrSubmitFailed = errors.New("job submission failed")

	// ErrJobFailed is matched by errors the provider reported as the job's
	// own outcome, as opposed to errors checking on it.
	ErrJobFailed = errors.New("job failed")
)

// JobFailedError carries the error from a Failed verdict out of Await. Its
// message is the classifier's error unchanged.
type JobFailedError struct {
	Err error
}

func (e *JobFailedError) Error() string { return e.Err.Error() }

func (e *JobFailedError) Unwrap() error { return e.Err }

func (e *JobFailedError) Is(target error) bool { return target == ErrJobFailed }

// State is a position in the job lifecycle.
type State string

// Job lifecycle states.
const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateExpired   State = "expired"
)

// Terminal reports whether no further polling happens from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateExpired
}

// StateOf maps the error returned by Await onto a terminal state.
func StateOf(err error) State {
	switch {
	case err == nil:
		return StateSucceeded
	case errors.Is(err, polling.ErrTimeout):
		return StateExpired
	default:
		return StateFailed
	}
}

// Job is one submit-then-poll job on a provider. H is the task handle
// returned at submission, T the raw status response and R the result.
type Job[H, T, R any] interface {
	// Submit starts the job and returns its handle.
	Submit(ctx context.Context) (H, error)

	// Query performs one status check for handle.
	Query(ctx context.Context, handle H) (T, error)

	// Classify maps a status response onto a verdict.
	Classify(resp T) polling.Verdict[R]
}

// JobFuncs adapts plain functions to the Job interface.
type JobFuncs[H, T, R any] struct {
	SubmitFunc   func(ctx context.Context) (H, error)
	QueryFunc    func(ctx context.Context, handle H) (T, error)
	ClassifyFunc func(resp T) polling.Verdict[R]
}

func (f JobFuncs[H, T, R]) Submit(ctx context.Context) (H, error) {
	return f.SubmitFunc(ctx)
}

func (f JobFuncs[H, T, R]) Query(ctx context.Context, handle H) (T, error) {
	return f.QueryFunc(ctx, handle)
}

func (f JobFuncs[H, T, R]) Classify(resp T) polling.Verdict[R] {
	return f.ClassifyFunc(resp)
}

// StateFunc is notified of every lifecycle transition of a job.
type StateFunc func(State)

// Await submits job once and polls it to a terminal state. It returns the
// result together with the handle so callers can reference the job in
// their own responses; the handle is the zero value when submission failed.
// onState may be nil.
func Await[H, T, R any](ctx context.Context, job Job[H, T, R], opts polling.Options, onState StateFunc) (R, H, error) {
	var zero R
	notify := func(s State) {
		if onState != nil {
			onState(s)
		}
	}

	handle, err := job.Submit(ctx)
	if err != nil {
		notify(StateFailed)
		return zero, handle, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	notify(StateSubmitted)

	query := func(ctx context.Context) (T, error) {
		return job.Query(ctx, handle)
	}

	classify := func(resp T) polling.Verdict[R] {
		v := job.Classify(resp)
		if v.Kind() != polling.VerdictFailed {
			return v
		}
		err := v.Err()
		if err == nil {
			err = polling.ErrTaskFailed
		}
		return polling.Failed[R](&JobFailedError{Err: err})
	}

	notify(StatePolling)
	result, err := polling.Run[T, R](ctx, query, classify, opts)
	notify(StateOf(err))
	return result, handle, err
}
