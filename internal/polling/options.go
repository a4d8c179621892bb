package polling

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default values applied to zero-valued Options fields.
const (
	DefaultInitialInterval        = 500 * time.Millisecond
	DefaultMaxInterval            = 5 * time.Second
	DefaultBackoffMultiplier      = 1.5
	DefaultMaxConsecutiveFailures = 3
)

var validate = validator.New()

// ErrorContext describes one query-execution failure. A fresh value is passed
// to the ErrorPolicy for every failure.
type ErrorContext struct {
	// Err is the error returned by the query.
	Err error

	// Retries is the 0-based index of the attempt that failed.
	Retries int

	// ConsecutiveFailures counts this failure and the ones immediately before
	// it. It is always at least 1.
	ConsecutiveFailures int
}

// ErrorDecision is returned by an ErrorPolicy.
type ErrorDecision struct {
	// ContinuePolling keeps the run going after the failure. The default
	// consecutive-failure threshold is not applied when a policy is set.
	ContinuePolling bool

	// Err replaces the query error in the result of Run when ContinuePolling
	// is false. Nil keeps the original error.
	Err error
}

// ErrorPolicy decides what happens after a query fails to execute.
// It is never called for logical failures reported by the classifier.
type ErrorPolicy func(ErrorContext) ErrorDecision

// Logger receives diagnostics from Run. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// SleepFunc suspends the run for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures one Run. Zero-valued fields take the package defaults;
// MaxRetries of zero means there is no attempt budget.
type Options struct {
	InitialInterval        time.Duration `validate:"gte=0"`
	MaxInterval            time.Duration `validate:"gte=0"`
	BackoffMultiplier      float64       `validate:"omitempty,gte=1"`
	MaxConsecutiveFailures int           `validate:"gte=0"`
	MaxRetries             int           `validate:"gte=0"`

	// ErrorPolicy, when set, takes over the decision after every query
	// failure.
	ErrorPolicy ErrorPolicy

	// Logger receives debug and error diagnostics. Nil discards them.
	Logger Logger

	// Sleep replaces the timer-based wait between attempts.
	Sleep SleepFunc
}

// DefaultOptions returns Options with every default spelled out.
func DefaultOptions() Options {
	return Options{
		InitialInterval:        DefaultInitialInterval,
		MaxInterval:            DefaultMaxInterval,
		BackoffMultiplier:      DefaultBackoffMultiplier,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
	}
}

// Validate checks that no field holds a value the engine cannot honour.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// withDefaults fills zero-valued fields.
func (o Options) withDefaults() Options {
	if o.InitialInterval == 0 {
		o.InitialInterval = DefaultInitialInterval
	}
	if o.MaxInterval == 0 {
		o.MaxInterval = DefaultMaxInterval
	}
	if o.BackoffMultiplier == 0 {
		o.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if o.MaxConsecutiveFailures == 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// sleepContext waits for d, returning early with ctx.Err() if ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
