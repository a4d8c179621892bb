package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/genpoll/internal/events"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the errors themselves.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, generation.ErrInvalidRequest),
		errors.Is(err, generation.ErrUnknownProvider):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	case errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, events.ErrNoHandler):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, generation.ErrUnknownProvider):
		return "Unknown provider"
	case errors.Is(err, generation.ErrInvalidRequest):
		return SanitizeValidationError(err)
	case errors.Is(err, task.ErrTaskNotFound):
		return "Generation not found"
	case errors.Is(err, task.ErrQueueFull):
		return "Too many pending generations, try again later"
	case errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, events.ErrNoHandler):
		return "Service is not accepting generations"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error message into a short
// message naming the offending field.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example: "Key: 'Request.Prompt' Error:Field validation for 'Prompt' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				if len(fieldParts) >= 5 {
					return "Invalid " + field + ": " + validationTagMessage(fieldParts[3])
				}
				return "Invalid " + field
			}
		}
	}
	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
