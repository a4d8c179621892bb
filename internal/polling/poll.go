package polling

import (
	"context"
)

type stepKind int

const (
	stepContinue stepKind = iota
	stepTerminate
)

// step is the outcome of one loop iteration.
type step[R any] struct {
	kind  stepKind
	value R
	err   error
}

func continueStep[R any]() step[R] {
	return step[R]{kind: stepContinue}
}

func terminate[R any](value R, err error) step[R] {
	return step[R]{kind: stepTerminate, value: value, err: err}
}

// run holds the state of a single Run call.
type run[T, R any] struct {
	query    func(ctx context.Context) (T, error)
	classify func(T) Verdict[R]
	opts     Options
	acct     accountant
}

// Run polls query until classify reports a terminal verdict and returns the
// success payload.
//
// query performs one status check and must be safe to call repeatedly.
// classify must be pure and total: anything it cannot place should be Pending.
//
// The returned error is, depending on how the run ended:
//   - the classifier's error, unchanged, for a Failed verdict
//   - a *ConsecutiveFailureError when the query failed to execute
//     MaxConsecutiveFailures times in a row and no ErrorPolicy is set
//   - the ErrorPolicy's replacement error, or the query error, when the
//     policy stopped the run
//   - a *TimeoutError when MaxRetries attempts were spent while pending
//   - a *CancelledError when ctx was done
//   - an error wrapping ErrInvalidOptions when opts fail validation
func Run[T, R any](
	ctx context.Context,
	query func(ctx context.Context) (T, error),
	classify func(T) Verdict[R],
	opts Options,
) (R, error) {
	var zero R
	if err := opts.Validate(); err != nil {
		return zero, err
	}

	r := &run[T, R]{
		query:    query,
		classify: classify,
		opts:     opts.withDefaults(),
	}
	return r.loop(ctx)
}

func (r *run[T, R]) loop(ctx context.Context) (R, error) {
	var zero R
	schedule := NewSchedule(r.opts)
	log := r.opts.Logger

	for {
		if err := ctx.Err(); err != nil {
			return zero, &CancelledError{Attempts: r.acct.attempts, Err: err}
		}
		if r.acct.exhausted(r.opts.MaxRetries) {
			log.Error("polling attempt budget exhausted", "max_retries", r.opts.MaxRetries)
			return zero, &TimeoutError{Attempts: r.opts.MaxRetries}
		}

		retries := r.acct.recordAttempt()
		st := r.attempt(ctx, retries)
		switch st.kind {
		case stepTerminate:
			return st.value, st.err
		case stepContinue:
		}

		// The top of the loop reports the timeout; waiting first would only delay it.
		if r.acct.exhausted(r.opts.MaxRetries) {
			continue
		}

		wait := schedule.Next()
		log.Debug("waiting before next poll", "attempt", retries, "interval", wait)
		if err := r.opts.Sleep(ctx, wait); err != nil {
			return zero, &CancelledError{Attempts: r.acct.attempts, Err: err}
		}
	}
}

// attempt issues one query and decides whether the run goes on.
func (r *run[T, R]) attempt(ctx context.Context, retries int) step[R] {
	var zero R
	log := r.opts.Logger

	resp, err := r.query(ctx)
	if err != nil {
		return r.onQueryFailure(retries, err)
	}
	r.acct.recordQuerySuccess()

	verdict := r.classify(resp)
	log.Debug("poll completed", "attempt", retries, "verdict", verdict.Kind().String())

	switch verdict.Kind() {
	case VerdictSuccess:
		return terminate(verdict.Data(), nil)
	case VerdictFailed:
		err := verdict.Err()
		if err == nil {
			err = ErrTaskFailed
		}
		log.Error("task reported failure", "attempt", retries, "error", err)
		return terminate(zero, err)
	default:
		return continueStep[R]()
	}
}

func (r *run[T, R]) onQueryFailure(retries int, err error) step[R] {
	var zero R
	log := r.opts.Logger
	failures := r.acct.recordQueryFailure()

	log.Error("poll query failed",
		"attempt", retries,
		"consecutive_failures", failures,
		"error", err)

	if r.opts.ErrorPolicy != nil {
		decision := r.opts.ErrorPolicy(ErrorContext{
			Err:                 err,
			Retries:             retries,
			ConsecutiveFailures: failures,
		})
		if decision.ContinuePolling {
			return continueStep[R]()
		}
		if decision.Err != nil {
			return terminate(zero, decision.Err)
		}
		return terminate(zero, err)
	}

	if failures >= r.opts.MaxConsecutiveFailures {
		return terminate(zero, &ConsecutiveFailureError{Count: failures, Err: err})
	}
	return continueStep[R]()
}
