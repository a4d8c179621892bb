package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRequestEvent(t *testing.T) {
	type generationPayload struct {
		Provider string `json:"provider"`
		Prompt   string `json:"prompt"`
	}

	event, err := NewTaskRequestEvent("generation", generationPayload{Provider: "fal", Prompt: "a red kite"})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "generation", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)
	assert.JSONEq(t, `{"provider":"fal","prompt":"a red kite"}`, string(event.Payload))

	var decoded generationPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "a red kite", decoded.Prompt)
}

func TestNewTaskRequestEvent_UnencodablePayload(t *testing.T) {
	_, err := NewTaskRequestEvent("generation", map[string]any{"fn": func() {}})
	assert.Error(t, err)
}

func TestUnmarshalPayload_InvalidJSON(t *testing.T) {
	event := &TaskRequestEvent{ID: uuid.New(), Type: "generation", Payload: []byte(`{"prompt":`)}

	var v map[string]any
	err := event.UnmarshalPayload(&v)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid generation payload")
}
