package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned by TaskStore lookups for unknown IDs.
var ErrTaskNotFound = errors.New("task not found")

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Finished reports whether the task will not change status again.
func (s TaskStatus) Finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskTypeGeneration is the task type for provider generation jobs.
const TaskTypeGeneration = "generation"

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task input serialized as JSON
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(task Task) error

	// Close stops further submissions. Tasks already queued are still delivered.
	Close()
}

// TaskRecord is the stored view of a task.
type TaskRecord struct {
	Task      Task
	Status    TaskStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskStore keeps track of submitted tasks and their status.
type TaskStore interface {
	// SaveTask records a new task.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetTask returns the record for taskID or ErrTaskNotFound.
	GetTask(ctx context.Context, taskID uuid.UUID) (*TaskRecord, error)

	// DeleteFinishedBefore removes completed and failed tasks last updated
	// before cutoff and returns how many were removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
