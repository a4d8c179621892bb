package polling

import "time"

// NextInterval returns the wait that follows prev: prev*multiplier, capped at
// max. The product is computed in floating point so large values saturate at
// the cap instead of overflowing.
func NextInterval(prev time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := float64(prev) * multiplier
	if next >= float64(max) {
		return max
	}
	return time.Duration(next)
}

// Schedule yields the wait intervals of one run in order. A run owns exactly
// one Schedule: pending verdicts and retried query failures draw from the
// same sequence.
type Schedule struct {
	next       time.Duration
	multiplier float64
	max        time.Duration
}

// NewSchedule returns the schedule described by opts. Zero-valued fields take
// the package defaults. An InitialInterval above MaxInterval is clamped on the
// first wait.
func NewSchedule(opts Options) *Schedule {
	opts = opts.withDefaults()
	first := opts.InitialInterval
	if first > opts.MaxInterval {
		first = opts.MaxInterval
	}
	return &Schedule{
		next:       first,
		multiplier: opts.BackoffMultiplier,
		max:        opts.MaxInterval,
	}
}

// Next returns the current interval and advances the schedule.
func (s *Schedule) Next() time.Duration {
	current := s.next
	s.next = NextInterval(current, s.multiplier, s.max)
	return current
}

// Take returns the next n intervals.
func (s *Schedule) Take(n int) []time.Duration {
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Next())
	}
	return out
}
