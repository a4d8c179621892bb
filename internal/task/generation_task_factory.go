package task

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/genpoll/internal/generation"
)

// GenerationTaskFactory creates GenerationTasks for registered providers.
type GenerationTaskFactory struct {
	registry *generation.Registry
	logger   *slog.Logger
}

// NewGenerationTaskFactory creates a factory that resolves providers in registry.
func NewGenerationTaskFactory(registry *generation.Registry, logger *slog.Logger) *GenerationTaskFactory {
	return &GenerationTaskFactory{
		registry: registry,
		logger:   logger.With("component", "generation_task_factory"),
	}
}

// CreateTask validates payload and creates a task with the given id.
// It returns generation.ErrInvalidRequest or generation.ErrUnknownProvider
// for payloads that cannot run.
func (f *GenerationTaskFactory) CreateTask(id uuid.UUID, payload GenerationPayload) (*GenerationTask, error) {
	if err := payload.Request.Validate(); err != nil {
		return nil, err
	}
	generator, err := f.registry.Get(payload.Provider)
	if err != nil {
		return nil, err
	}
	return NewGenerationTask(id, payload, generator, f.logger)
}
