package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler counts the events it receives and returns err.
type recordingHandler struct {
	last  *TaskRequestEvent
	count int
	err   error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.last = event
	h.count++
	return h.err
}

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("event without handlers is rejected", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		event, err := NewTaskRequestEvent("generation", map[string]string{"prompt": "x"})
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrNoHandler)
	})

	t.Run("dispatches by type", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		gen1, gen2, other := &recordingHandler{}, &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler("generation", gen1)
		emitter.RegisterHandler("generation", gen2)
		emitter.RegisterHandler("cleanup", other)

		event, err := NewTaskRequestEvent("generation", map[string]string{"prompt": "x"})
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, 1, gen1.count)
		assert.Equal(t, 1, gen2.count)
		assert.Same(t, event, gen1.last)
		assert.Zero(t, other.count)
	})

	t.Run("first handler error is returned after all handlers ran", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		failing := &recordingHandler{err: errors.New("queue full")}
		after := &recordingHandler{}
		emitter.RegisterHandler("generation", failing)
		emitter.RegisterHandler("generation", after)

		event, err := NewTaskRequestEvent("generation", nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "queue full")
		assert.Equal(t, 1, after.count)
	})

	t.Run("handler func adapter", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		called := false
		emitter.RegisterHandler("generation", EventHandlerFunc(func(context.Context, *TaskRequestEvent) error {
			called = true
			return nil
		}))

		event, err := NewTaskRequestEvent("generation", nil)
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.True(t, called)
	})
}
