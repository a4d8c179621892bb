package polling

// accountant tracks the two counters of a run. attempts never resets;
// consecutiveFailures resets on every query that executes, whatever its verdict.
type accountant struct {
	attempts            int
	consecutiveFailures int
}

// recordAttempt counts a new attempt and returns its 0-based index.
func (a *accountant) recordAttempt() int {
	idx := a.attempts
	a.attempts++
	return idx
}

// recordQueryFailure counts a failed query and returns the new streak length.
func (a *accountant) recordQueryFailure() int {
	a.consecutiveFailures++
	return a.consecutiveFailures
}

func (a *accountant) recordQuerySuccess() {
	a.consecutiveFailures = 0
}

// exhausted reports whether another attempt would exceed maxRetries.
// A maxRetries of zero is unbounded.
func (a *accountant) exhausted(maxRetries int) bool {
	return maxRetries > 0 && a.attempts >= maxRetries
}
