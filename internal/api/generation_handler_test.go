package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/genpoll/internal/events"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/mocks"
	"github.com/phrazzld/genpoll/internal/provider"
	"github.com/phrazzld/genpoll/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router http.Handler
	runner *task.TaskRunner
}

// newTestEnv wires the handler to a real emitter, runner and store. The
// runner is started only when start is true.
func newTestEnv(t *testing.T, queueSize int, start bool, generators ...generation.Generator) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := generation.NewRegistry()
	for _, g := range generators {
		registry.Register(g)
	}
	store := task.NewMemoryStore()
	runner := task.NewTaskRunner(store, task.TaskRunnerConfig{WorkerCount: 2, QueueSize: queueSize}, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.TaskTypeGeneration,
		task.NewGenerationEventHandler(task.NewGenerationTaskFactory(registry, logger), runner, logger))

	if start {
		runner.Start()
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Stop(ctx)
	})

	r := chi.NewRouter()
	r.Route("/api", NewGenerationHandler(emitter, store, registry).RegisterRoutes)
	return &testEnv{router: r, runner: runner}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) submit(t *testing.T, body string) AcceptedResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/generations", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted AcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "/api/generations/"+accepted.ID, w.Header().Get("Location"))
	return accepted
}

func (e *testEnv) waitFinished(t *testing.T, id string) GenerationResponse {
	t.Helper()
	var resp GenerationResponse
	require.Eventually(t, func() bool {
		w := e.do(t, http.MethodGet, "/api/generations/"+id, "")
		if w.Code != http.StatusOK {
			return false
		}
		resp = GenerationResponse{}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.Status == "completed" || resp.Status == "failed"
	}, 2*time.Second, 5*time.Millisecond)
	return resp
}

func TestGenerationLifecycle_Success(t *testing.T) {
	t.Parallel()
	gen := &mocks.MockGenerator{
		ProviderName: "stub",
		States:       []provider.State{provider.StateSubmitted, provider.StatePolling, provider.StateSucceeded},
		GenerateFn: func(_ context.Context, req generation.Request) (*generation.Result, error) {
			return &generation.Result{
				Provider: "stub",
				Handle:   "h-1",
				Outputs:  []generation.Asset{{URL: "https://cdn.example/" + req.Prompt + ".png"}},
			}, nil
		},
	}
	env := newTestEnv(t, 10, true, gen)

	accepted := env.submit(t, `{"provider":"stub","prompt":"lighthouse","width":512,"height":512}`)
	assert.Equal(t, "pending", accepted.Status)
	_, err := uuid.Parse(accepted.ID)
	require.NoError(t, err)

	resp := env.waitFinished(t, accepted.ID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "stub", resp.Provider)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "https://cdn.example/lighthouse.png", resp.Result.Outputs[0].URL)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.FinishedAt)
	assert.Equal(t, "succeeded", resp.JobState)
	assert.Equal(t, 512, gen.Requests()[0].Width)
}

func TestGenerationLifecycle_FailureIsClassified(t *testing.T) {
	t.Parallel()
	gen := mocks.NewMockGeneratorWithError("stub",
		fmt.Errorf("%w: task t-1: Content Moderated", generation.ErrContentBlocked))
	env := newTestEnv(t, 10, true, gen)

	accepted := env.submit(t, `{"provider":"stub","prompt":"x"}`)
	resp := env.waitFinished(t, accepted.ID)

	assert.Equal(t, "failed", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "content_blocked", resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "Content Moderated")
	assert.Nil(t, resp.Result)
}

func TestCreateGeneration_Rejections(t *testing.T) {
	t.Parallel()
	gen := mocks.NewMockGeneratorWithResult("stub", "https://cdn.example/x.png")
	env := newTestEnv(t, 10, false, gen)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "malformed json", body: `{"provider":`, status: http.StatusBadRequest, message: "Invalid request format"},
		{name: "unknown field", body: `{"provider":"stub","prompt":"x","steps":4}`, status: http.StatusBadRequest, message: "Invalid request format"},
		{name: "missing provider", body: `{"prompt":"x"}`, status: http.StatusBadRequest, message: "Invalid Provider: required field"},
		{name: "missing prompt", body: `{"provider":"stub"}`, status: http.StatusBadRequest, message: "Invalid Prompt: required field"},
		{name: "width too small", body: `{"provider":"stub","prompt":"x","width":8}`, status: http.StatusBadRequest, message: "Invalid Width: too small"},
		{name: "unknown provider", body: `{"provider":"dall-e","prompt":"x"}`, status: http.StatusBadRequest, message: "Unknown provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/generations", tc.body)

			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body["error"])
		})
	}
}

func TestCreateGeneration_QueueFull(t *testing.T) {
	t.Parallel()
	gen := mocks.NewMockGeneratorWithResult("stub", "https://cdn.example/x.png")
	env := newTestEnv(t, 1, false, gen)

	first := env.submit(t, `{"provider":"stub","prompt":"x"}`)
	w := env.do(t, http.MethodPost, "/api/generations", `{"provider":"stub","prompt":"y"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = env.do(t, http.MethodGet, "/api/generations/"+first.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
}

func TestGetGeneration_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 1, false)

	w := env.do(t, http.MethodGet, "/api/generations/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/generations/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProviders(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, 1, false,
		mocks.NewMockGeneratorWithResult("replicate", "https://x/1.png"),
		mocks.NewMockGeneratorWithResult("bfl", "https://x/2.jpg"))

	w := env.do(t, http.MethodGet, "/api/providers", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":["bfl","replicate"]}`, w.Body.String())
}

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", generation.ErrInvalidRequest), http.StatusBadRequest},
		{generation.ErrUnknownProvider, http.StatusBadRequest},
		{task.ErrTaskNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to queue task: %w", task.ErrQueueFull), http.StatusTooManyRequests},
		{task.ErrQueueClosed, http.StatusServiceUnavailable},
		{events.ErrNoHandler, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err), tc.err.Error())
	}
}
