package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/genpoll/internal/polling"
	"github.com/phrazzld/genpoll/internal/provider"
)

// Common errors returned by the generation package and its providers.
var (
	// ErrGenerationFailed is returned when the provider reports that the job failed.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrContentBlocked is returned when the provider rejected the prompt or output
	// through its safety filters.
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrProviderUnavailable is returned when the job could not be submitted or
	// its status could not be checked.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrGenerationTimeout is returned when the job was still pending after the
	// configured attempt budget.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrInvalidRequest is returned when a request fails validation.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrInvalidConfig is returned when a generator is constructed with an invalid configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrUnknownProvider is returned when no generator is registered under a name.
	ErrUnknownProvider = errors.New("unknown provider")
)

func wrapInvalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

// ClassifyError maps an error from provider.Await onto the generation
// taxonomy. Errors that already carry a generation sentinel, and
// cancellations, are returned unchanged.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrGenerationFailed),
		errors.Is(err, ErrContentBlocked),
		errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrGenerationTimeout),
		errors.Is(err, ErrInvalidRequest):
		return err
	case errors.Is(err, provider.ErrJobFailed):
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	case errors.Is(err, polling.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrGenerationTimeout, err)
	case errors.Is(err, polling.ErrConsecutiveFailures), errors.Is(err, provider.ErrSubmitFailed):
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}

// Kind returns a short machine-readable name for the taxonomy entry err
// belongs to, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContentBlocked):
		return "content_blocked"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrGenerationTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
