package provider

import (
	"errors"

	"github.com/phrazzld/genpoll/internal/polling"
)

// StopOnPermanentHTTPErrors returns an error policy for HTTP status checks.
//
// A permanent HTTP error (4xx other than 408 and 429) stops polling at once:
// the handle is gone or the credentials were rejected, and asking again will
// not change that. replace, when non-nil, supplies the error the run ends
// with. Any other failure keeps polling until maxConsecutiveFailures
// failures in a row, after which the run ends with a
// *polling.ConsecutiveFailureError, matching the engine's default policy.
// A maxConsecutiveFailures of zero uses polling.DefaultMaxConsecutiveFailures.
func StopOnPermanentHTTPErrors(replace func(*HTTPError) error, maxConsecutiveFailures int) polling.ErrorPolicy {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = polling.DefaultMaxConsecutiveFailures
	}

	return func(ec polling.ErrorContext) polling.ErrorDecision {
		var httpErr *HTTPError
		if errors.As(ec.Err, &httpErr) && !httpErr.Temporary() {
			decision := polling.ErrorDecision{ContinuePolling: false}
			if replace != nil {
				decision.Err = replace(httpErr)
			}
			return decision
		}

		if ec.ConsecutiveFailures >= maxConsecutiveFailures {
			return polling.ErrorDecision{
				ContinuePolling: false,
				Err: &polling.ConsecutiveFailureError{
					Count: ec.ConsecutiveFailures,
					Err:   ec.Err,
				},
			}
		}
		return polling.ErrorDecision{ContinuePolling: true}
	}
}

// WithHTTPErrorPolicy returns opts with StopOnPermanentHTTPErrors installed,
// unless opts already carries a policy.
func WithHTTPErrorPolicy(opts polling.Options, replace func(*HTTPError) error) polling.Options {
	if opts.ErrorPolicy == nil {
		opts.ErrorPolicy = StopOnPermanentHTTPErrors(replace, opts.MaxConsecutiveFailures)
	}
	return opts
}
