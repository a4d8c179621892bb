package provider

import (
	"strings"

	"github.com/phrazzld/genpoll/internal/polling"
)

// StatusTable maps provider status strings to verdict kinds. Lookups are
// case-insensitive and ignore surrounding whitespace.
type StatusTable map[string]polling.VerdictKind

// NewStatusTable builds a table from the statuses that mean success and the
// statuses that mean failure. Every other status is pending.
func NewStatusTable(success, failed []string) StatusTable {
	t := make(StatusTable, len(success)+len(failed))
	for _, s := range success {
		t[normalizeStatus(s)] = polling.VerdictSuccess
	}
	for _, s := range failed {
		t[normalizeStatus(s)] = polling.VerdictFailed
	}
	return t
}

// Lookup returns the verdict kind for status. Unrecognised statuses are
// VerdictPending, never success or failure, so that new provider states
// keep the job polling instead of returning an incomplete result.
func (t StatusTable) Lookup(status string) polling.VerdictKind {
	if kind, ok := t[normalizeStatus(status)]; ok {
		return kind
	}
	return polling.VerdictPending
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
