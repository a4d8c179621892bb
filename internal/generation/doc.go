// Package generation defines the provider-neutral contract for image and
// video generation. Provider adapters under internal/platform implement
// Generator; the task runner and HTTP API depend only on this package.
//
// Errors returned by generators are normalised by ClassifyError into a small
// taxonomy so callers can tell a job that failed (ErrGenerationFailed,
// ErrContentBlocked) from a job whose status could not be checked
// (ErrProviderUnavailable) or that never finished (ErrGenerationTimeout).
package generation
