// Package events decouples the HTTP layer from background execution.
//
// The API publishes a TaskRequestEvent describing the work it accepted; the
// handler registered for the event's type turns it into a task. Emission is
// synchronous, so the publisher learns immediately whether the work was
// accepted.
package events
