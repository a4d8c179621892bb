// Package polling turns a poll-based long-running job API into a single
// blocking call that returns the job's result.
//
// A caller supplies two closures: a query that performs one status check
// against the remote system, and a classifier that maps each query response
// to a Verdict (pending, success or failed). Run drives the loop:
//
//   - successful verdicts end the run and their payload is returned
//   - failed verdicts end the run immediately with the classifier's error;
//     they are logical failures of the job and are never retried
//   - pending verdicts wait for the next backoff interval and poll again
//   - query errors are transient: they are retried until
//     Options.MaxConsecutiveFailures is reached, unless an ErrorPolicy is
//     configured, in which case the policy decides
//
// Waits follow a single deterministic exponential schedule
// (InitialInterval, InitialInterval*BackoffMultiplier, ...) capped at
// MaxInterval. There is no jitter, so interval sequences are reproducible.
//
// The attempt budget (MaxRetries) is the only built-in timeout. Callers that
// need a wall-clock deadline should put one on the context passed to Run;
// the context is checked before every attempt and while waiting.
//
// Runs share no state with each other and may execute concurrently.
package polling
