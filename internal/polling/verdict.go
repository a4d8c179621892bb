package polling

// VerdictKind identifies which of the three classifier outcomes a Verdict holds.
type VerdictKind int

const (
	// VerdictPending means the job has not reached a terminal state yet.
	// It is also the zero value, so an unset Verdict keeps the run polling.
	VerdictPending VerdictKind = iota

	// VerdictSuccess means the job finished and produced a result.
	VerdictSuccess

	// VerdictFailed means the job itself reported failure.
	VerdictFailed
)

// String returns the lower-case name of the verdict kind.
func (k VerdictKind) String() string {
	switch k {
	case VerdictPending:
		return "pending"
	case VerdictSuccess:
		return "success"
	case VerdictFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Verdict is the classification of a single poll response.
// Use Pending, Succeeded or Failed to construct one.
type Verdict[R any] struct {
	kind VerdictKind
	data R
	err  error
}

// Pending returns a verdict that keeps the run polling.
func Pending[R any]() Verdict[R] {
	return Verdict[R]{kind: VerdictPending}
}

// Succeeded returns a terminal verdict carrying the job's result.
func Succeeded[R any](data R) Verdict[R] {
	return Verdict[R]{kind: VerdictSuccess, data: data}
}

// Failed returns a terminal verdict carrying the job's failure.
// The error is returned to the caller of Run unchanged.
func Failed[R any](err error) Verdict[R] {
	return Verdict[R]{kind: VerdictFailed, err: err}
}

// Kind reports which outcome the verdict holds.
func (v Verdict[R]) Kind() VerdictKind {
	return v.kind
}

// Data returns the success payload. It is the zero value for other kinds.
func (v Verdict[R]) Data() R {
	return v.data
}

// Err returns the failure. It is nil for other kinds.
func (v Verdict[R]) Err() error {
	return v.err
}
