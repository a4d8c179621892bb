// Package provider holds the scaffolding shared by every provider adapter
// that runs a job through submit-then-poll.
//
// An adapter implements Job: a one-shot Submit that returns a task handle, a
// Query that performs one status check for that handle, and a Classify that
// maps each status response onto a polling.Verdict. Await wires the three
// into polling.Run; adapters never implement retries or backoff themselves.
//
// Jobs move through Submitted → Polling → {Succeeded, Failed, Expired}.
// Status values an adapter does not recognise must classify as pending;
// StatusTable enforces that for string statuses.
package provider
