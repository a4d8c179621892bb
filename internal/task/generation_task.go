package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/provider"
)

// Common errors
var (
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrEmptyTaskID  = errors.New("task ID cannot be empty")
)

// GenerationPayload is the input of a generation task.
type GenerationPayload struct {
	Provider string             `json:"provider"`
	Request  generation.Request `json:"request"`
}

// GenerationSnapshot is a consistent view of a GenerationTask.
type GenerationSnapshot struct {
	ID         uuid.UUID
	Provider   string
	Status     TaskStatus
	JobState   provider.State
	Result     *generation.Result
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// GenerationTask runs one request on one generator and keeps the outcome.
type GenerationTask struct {
	id        uuid.UUID
	payload   GenerationPayload
	generator generation.Generator
	logger    *slog.Logger

	mu         sync.RWMutex
	status     TaskStatus
	jobState   provider.State
	result     *generation.Result
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

var _ Task = (*GenerationTask)(nil)

// NewGenerationTask creates a pending generation task.
func NewGenerationTask(
	id uuid.UUID,
	payload GenerationPayload,
	generator generation.Generator,
	logger *slog.Logger,
) (*GenerationTask, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if id == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	return &GenerationTask{
		id:        id,
		payload:   payload,
		generator: generator,
		logger:    logger.With("task_id", id, "provider", payload.Provider),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *GenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *GenerationTask) Type() string {
	return TaskTypeGeneration
}

// Payload returns the task input as JSON.
func (t *GenerationTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *GenerationTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Snapshot returns the task's current state.
func (t *GenerationTask) Snapshot() GenerationSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return GenerationSnapshot{
		ID:         t.id,
		Provider:   t.payload.Provider,
		Status:     t.status,
		JobState:   t.jobState,
		Result:     t.result,
		Err:        t.err,
		StartedAt:  t.startedAt,
		FinishedAt: t.finishedAt,
	}
}

// Execute runs the generation and records its result or error.
func (t *GenerationTask) Execute(ctx context.Context) error {
	t.mu.Lock()
	t.status = TaskStatusProcessing
	t.startedAt = time.Now()
	t.mu.Unlock()

	t.logger.Info("starting generation")
	ctx = provider.WithStateObserver(ctx, t.setJobState)
	result, err := t.generator.Generate(ctx, t.payload.Request)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = time.Now()
	if err != nil {
		t.status = TaskStatusFailed
		t.err = err
		t.logger.Error("generation failed",
			"error_kind", generation.Kind(err),
			"job_state", t.jobState)
		return fmt.Errorf("generation on %s failed: %w", t.payload.Provider, err)
	}

	t.status = TaskStatusCompleted
	t.result = result
	t.logger.Info("generation completed",
		"handle", result.Handle,
		"outputs", len(result.Outputs))
	return nil
}

func (t *GenerationTask) setJobState(s provider.State) {
	t.mu.Lock()
	t.jobState = s
	t.mu.Unlock()
	t.logger.Debug("job state changed", "job_state", s)
}
