package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/genpoll/internal/events"
)

// TaskSubmitter accepts tasks for background execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// GenerationEventHandler turns generation request events into tasks and
// submits them. The created task takes the event's ID.
type GenerationEventHandler struct {
	factory *GenerationTaskFactory
	runner  TaskSubmitter
	logger  *slog.Logger
}

var _ events.EventHandler = (*GenerationEventHandler)(nil)

// NewGenerationEventHandler creates a handler that builds tasks with factory
// and submits them to runner.
func NewGenerationEventHandler(factory *GenerationTaskFactory, runner TaskSubmitter, logger *slog.Logger) *GenerationEventHandler {
	return &GenerationEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "generation_event_handler"),
	}
}

// HandleEvent implements events.EventHandler. Events of other types are ignored.
func (h *GenerationEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != TaskTypeGeneration {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload GenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}

	task, err := h.factory.CreateTask(event.ID, payload)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected generation request",
			"event_id", event.ID,
			"provider", payload.Provider,
			"error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"task_id", task.ID(),
			"error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "generation task submitted",
		"task_id", task.ID(),
		"provider", payload.Provider)
	return nil
}
