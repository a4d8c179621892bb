// Package redact removes credentials and signed URL parameters from strings
// before they are logged or returned to API clients. Provider errors often
// echo request URLs and headers, so every error that leaves the service is
// passed through Error first.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted content.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedQueryPlaceholder      = "[REDACTED_QUERY]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order. Replacements may use submatch references.
var rules = []rule{
	// Authorization header values: "Bearer r8_...", "Key abc:def".
	{regexp.MustCompile(`(?i)\b(bearer|key)\s+[A-Za-z0-9_\-.~+/:=]{8,}`), "$1 " + RedactedCredentialPlaceholder},
	// Header or parameter assignments: x-key: ..., api_key=..., "token": "...".
	{
		regexp.MustCompile(`(?i)\b(x-key|api[_-]?key|access[_-]?token|token|secret|password)(["']?\s*[:=]\s*["']?)[^\s"'&,}]{6,}`),
		"$1$2" + RedactedKeyPlaceholder,
	},
	// Well-known key formats: Replicate tokens and Google API keys.
	{regexp.MustCompile(`\br8_[A-Za-z0-9]{20,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{30,}`), RedactedKeyPlaceholder},
	// Query strings of signed storage URLs.
	{
		regexp.MustCompile(`(?i)\?(?:[^\s"']*&)?(?:x-goog-signature|x-amz-signature|signature|sig)=[^\s"']*`),
		"?" + RedactedQueryPlaceholder,
	},
	// Goroutine dumps.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
	// Email addresses.
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
