package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrQueueClosed is returned by Enqueue once shutdown has begun.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrQueueFull is returned by Enqueue when every slot is taken.
	ErrQueueFull = errors.New("task queue is full")
)

// QueueStats is a point-in-time view of a TaskQueue.
type QueueStats struct {
	Queued   int
	Capacity int
	Rejected int
}

// TaskQueue holds accepted generations until a worker picks them up.
// Producers never wait: a task that does not fit is rejected with
// ErrQueueFull so the API can answer 429 immediately.
type TaskQueue struct {
	mu       sync.RWMutex
	slots    chan Task
	closed   bool
	rejected int
	logger   *slog.Logger
}

var (
	_ TaskQueueReader = (*TaskQueue)(nil)
	_ TaskQueueWriter = (*TaskQueue)(nil)
)

// NewTaskQueue creates a queue with room for capacity tasks.
func NewTaskQueue(capacity int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		slots:  make(chan Task, capacity),
		logger: logger.With("component", "task_queue"),
	}
}

// Enqueue hands task to the workers without blocking.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	select {
	case q.slots <- task:
		q.mu.RUnlock()
		q.logger.Debug("generation queued", "task_id", task.ID(), "depth", len(q.slots))
		return nil
	default:
		q.mu.RUnlock()
	}

	q.mu.Lock()
	q.rejected++
	q.mu.Unlock()
	return fmt.Errorf("%w: %d generations already waiting", ErrQueueFull, cap(q.slots))
}

// Close stops accepting tasks. Tasks already queued stay readable from
// GetChannel or Drain. Calling Close again has no effect.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.slots)
	q.logger.Info("task queue closed", "waiting", len(q.slots))
}

// Drain returns every task still waiting in a closed queue. It returns nil
// while the queue is open.
func (q *TaskQueue) Drain() []Task {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if !closed {
		return nil
	}

	var left []Task
	for task := range q.slots {
		left = append(left, task)
	}
	return left
}

// Stats reports the queue depth, capacity and the number of rejected tasks.
func (q *TaskQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return QueueStats{Queued: len(q.slots), Capacity: cap(q.slots), Rejected: q.rejected}
}

// GetChannel returns the channel workers consume from.
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.slots
}
