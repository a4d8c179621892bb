package replicate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/genpoll/internal/config"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/platform/logger"
	"github.com/phrazzld/genpoll/internal/platform/replicate"
	"github.com/phrazzld/genpoll/internal/polling"
	"github.com/phrazzld/genpoll/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() polling.Options {
	return polling.Options{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Sleep:           func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
}

// fakeReplicate serves one prediction whose status walks through statuses.
type fakeReplicate struct {
	statuses []string
	output   any
	errMsg   any
	polls    atomic.Int32

	mu      sync.Mutex
	created map[string]any
	path    string
}

func (f *fakeReplicate) request() (string, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path, f.created
}

func (f *fakeReplicate) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	create := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.path, f.created = r.URL.Path, body
		f.mu.Unlock()
		srvURL := "http://" + r.Host
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "p1",
			"status": "starting",
			"urls":   map[string]string{"get": srvURL + "/v1/predictions/p1"},
		})
	}
	mux.HandleFunc("POST /v1/predictions", create)
	mux.HandleFunc("POST /v1/models/black-forest-labs/flux-schnell/predictions", create)
	mux.HandleFunc("GET /v1/predictions/p1", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1)) - 1
		if n >= len(f.statuses) {
			n = len(f.statuses) - 1
		}
		body := map[string]any{"id": "p1", "status": f.statuses[n]}
		if f.statuses[n] == "succeeded" {
			body["output"] = f.output
		}
		if f.statuses[n] == "failed" {
			body["error"] = f.errMsg
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

func newGenerator(t *testing.T, srv *httptest.Server, model string) *replicate.Generator {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	g, err := replicate.New(config.HTTPProviderConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   model,
	}, log, fastOptions())
	require.NoError(t, err)
	return g
}

func TestGenerate_PollsUntilSucceeded(t *testing.T) {
	t.Parallel()
	fake := &fakeReplicate{
		statuses: []string{"starting", "processing", "succeeded"},
		output:   []string{"https://cdn.example/a.png", "https://cdn.example/b.png"},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	seed := int64(7)
	result, err := newGenerator(t, srv, "abc123").Generate(context.Background(), generation.Request{
		Prompt: "a lighthouse at dusk",
		Width:  512,
		Seed:   &seed,
	})

	require.NoError(t, err)
	assert.Equal(t, "replicate", result.Provider)
	assert.Equal(t, "p1", result.Handle)
	require.Len(t, result.Outputs, 2)
	assert.Equal(t, "https://cdn.example/b.png", result.Outputs[1].URL)
	assert.Equal(t, int32(3), fake.polls.Load())

	path, created := fake.request()
	assert.Equal(t, "/v1/predictions", path)
	assert.Equal(t, "abc123", created["version"])
	input := created["input"].(map[string]any)
	assert.Equal(t, "a lighthouse at dusk", input["prompt"])
	assert.EqualValues(t, 512, input["width"])
	assert.EqualValues(t, 7, input["seed"])
	assert.NotContains(t, input, "height")
}

func TestGenerate_OfficialModelUsesModelEndpoint(t *testing.T) {
	t.Parallel()
	fake := &fakeReplicate{statuses: []string{"succeeded"}, output: "https://cdn.example/one.webp"}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	result, err := newGenerator(t, srv, "black-forest-labs/flux-schnell").
		Generate(context.Background(), generation.Request{Prompt: "fox"})

	require.NoError(t, err)
	path, created := fake.request()
	assert.Equal(t, "/v1/models/black-forest-labs/flux-schnell/predictions", path)
	assert.NotContains(t, created, "version")
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, "https://cdn.example/one.webp", result.Outputs[0].URL)
}

func TestGenerate_FailedPredictionIsLogicalFailure(t *testing.T) {
	t.Parallel()
	fake := &fakeReplicate{statuses: []string{"processing", "failed"}, errMsg: "CUDA out of memory"}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := newGenerator(t, srv, "owner/model:v1").Generate(context.Background(), generation.Request{Prompt: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "CUDA out of memory")
	assert.Equal(t, int32(2), fake.polls.Load(), "logical failure must not be retried")
	_, created := fake.request()
	assert.Equal(t, "v1", created["version"])
}

func TestGenerate_NSFWIsContentBlocked(t *testing.T) {
	t.Parallel()
	fake := &fakeReplicate{statuses: []string{"failed"}, errMsg: "NSFW content detected. Try a different prompt."}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := newGenerator(t, srv, "abc").Generate(context.Background(), generation.Request{Prompt: "x"})

	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, "content_blocked", generation.Kind(err))
}

func TestGenerate_UnreachableStatusIsProviderUnavailable(t *testing.T) {
	t.Parallel()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "p9", "status": "starting"})
	})
	mux.HandleFunc("GET /v1/predictions/p9", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newGenerator(t, srv, "abc").Generate(context.Background(), generation.Request{Prompt: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrProviderUnavailable)
	assert.ErrorIs(t, err, polling.ErrConsecutiveFailures)
	assert.Equal(t, int32(polling.DefaultMaxConsecutiveFailures), polls.Load())
}

func TestGenerate_ReportsLifecycle(t *testing.T) {
	t.Parallel()
	fake := &fakeReplicate{statuses: []string{"succeeded"}, output: "https://cdn.example/x.png"}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	var states []provider.State
	ctx := provider.WithStateObserver(context.Background(), func(s provider.State) {
		states = append(states, s)
	})
	_, err := newGenerator(t, srv, "abc").Generate(ctx, generation.Request{Prompt: "x"})

	require.NoError(t, err)
	assert.Equal(t, []provider.State{
		provider.StateSubmitted, provider.StatePolling, provider.StateSucceeded,
	}, states)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()
	_, err := replicate.New(config.HTTPProviderConfig{BaseURL: "https://api.replicate.com"}, nil, polling.Options{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerate_RejectsInvalidRequest(t *testing.T) {
	t.Parallel()
	g, err := replicate.New(config.HTTPProviderConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1", Model: "m"}, nil, polling.Options{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), generation.Request{})
	assert.ErrorIs(t, err, generation.ErrInvalidRequest)
}
