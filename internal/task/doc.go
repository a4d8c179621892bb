// Package task runs generation jobs in the background so HTTP handlers can
// accept work without waiting for a provider.
//
// Accepted tasks are recorded in a TaskStore, pushed onto a bounded
// TaskQueue and executed by a WorkerPool. The store is process-local:
// tasks do not survive a restart.
package task
