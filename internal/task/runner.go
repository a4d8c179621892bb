package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// Retention is how long finished tasks stay in the store. Zero keeps
	// them until the process exits.
	Retention time.Duration

	// CleanupInterval defines how often expired tasks are removed.
	// If zero, defaults to 1 minute.
	CleanupInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:     2,
		QueueSize:       100,
		Retention:       time.Hour,
		CleanupInterval: time.Minute,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	store      TaskStore
	queue      *TaskQueue
	pool       *WorkerPool
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     atomic.Bool
	stopOnce    sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	logger = logger.With("component", "task_runner")

	r := &TaskRunner{
		store:       store,
		queue:       NewTaskQueue(config.QueueSize, logger),
		config:      config,
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		errHandler:  func(Task, error) {},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// SetErrorHandler sets a function called after every failed task.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit records task as pending and queues it. A task that cannot be
// queued is marked failed and the queue error is returned.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		stats := r.queue.Stats()
		r.logger.WarnContext(ctx, "task rejected by queue",
			"task_id", task.ID(),
			"queued", stats.Queued,
			"capacity", stats.Capacity,
			"rejected_total", stats.Rejected,
			"error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
		return fmt.Errorf("failed to queue task: %w", err)
	}
	return nil
}

// Start begins processing queued tasks.
func (r *TaskRunner) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.pool.Start()
	if r.config.Retention > 0 {
		go r.cleanupLoop()
	} else {
		close(r.cleanupDone)
	}
}

// Stop stops accepting tasks and waits for queued and running tasks to
// finish. If ctx expires first, running tasks are cancelled and tasks
// still queued are marked failed; the context error is returned.
func (r *TaskRunner) Stop(ctx context.Context) error {
	var stopErr error
	r.stopOnce.Do(func() {
		r.queue.Close()
		close(r.stopCleanup)

		done := make(chan struct{})
		go func() {
			r.pool.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			r.logger.Warn("shutdown deadline reached, cancelling running tasks")
			r.pool.Abort()
			<-done
			stopErr = fmt.Errorf("task runner stopped before draining: %w", ctx.Err())
		}

		for _, task := range r.queue.Drain() {
			r.finish(context.Background(), task, fmt.Errorf("service shut down before the task started"))
		}
		if r.started.Load() {
			<-r.cleanupDone
		}
		r.logger.Info("task runner stopped")
	})
	return stopErr
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	storeCtx := context.WithoutCancel(ctx)

	if err := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")
	start := time.Now()
	err := task.Execute(ctx)
	logger = logger.With("duration", time.Since(start))

	if err != nil {
		logger.Error("task execution failed", "error", err)
	} else {
		logger.Info("task completed successfully")
	}
	r.finish(storeCtx, task, err)
}

func (r *TaskRunner) finish(ctx context.Context, task Task, err error) {
	status, msg := TaskStatusCompleted, ""
	if err != nil {
		status, msg = TaskStatusFailed, err.Error()
	}
	if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), status, msg); updateErr != nil {
		r.logger.Error("failed to update task status",
			"task_id", task.ID(),
			"status", status,
			"error", updateErr)
	}
	if err != nil {
		r.errHandler(task, err)
	}
}

// cleanupLoop periodically removes finished tasks older than the retention.
func (r *TaskRunner) cleanupLoop() {
	defer close(r.cleanupDone)

	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCleanup:
			return
		case now := <-ticker.C:
			removed, err := r.store.DeleteFinishedBefore(context.Background(), now.Add(-r.config.Retention))
			if err != nil {
				r.logger.Error("failed to remove expired tasks", "error", err)
				continue
			}
			if removed > 0 {
				r.logger.Debug("removed expired tasks", "count", removed)
			}
		}
	}
}
