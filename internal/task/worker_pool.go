package task

import (
	"context"
	"log/slog"
	"sync"
)

// ProcessFunc executes one task on behalf of a worker.
type ProcessFunc func(ctx context.Context, task Task, workerID int)

// WorkerPool runs a fixed number of goroutines that take tasks from a queue
// until the queue is closed and drained, or until the pool is aborted.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	process     ProcessFunc

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int
}

// NewWorkerPool creates a pool that hands every task from taskQueue to process.
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, process ProcessFunc, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		process:     process,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Wait blocks until every worker has exited. Workers exit once the queue is
// closed and empty, or after Abort.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Abort cancels the context passed to running tasks and stops workers from
// taking further tasks.
func (p *WorkerPool) Abort() {
	p.cancel()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debug("starting worker", "worker_id", id)

	tasks := p.taskQueue.GetChannel()
	for {
		// Prefer shutdown over picking up queued work.
		if p.ctx.Err() != nil {
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		}

		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case task, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.process(p.ctx, task, id)
		}
	}
}
