package bfl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/phrazzld/genpoll/internal/config"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/polling"
	"github.com/phrazzld/genpoll/internal/provider"
)

// Name is the provider name the generator registers under.
const Name = "bfl"

var statuses = provider.NewStatusTable(
	[]string{"Ready"},
	[]string{"Error", "Failed", "Task not found", "Request Moderated", "Content Moderated"},
)

// Generator runs FLUX tasks on the BFL API.
type Generator struct {
	client  *provider.HTTPClient
	baseURL string
	model   string
	opts    polling.Options
	logger  *slog.Logger
}

var _ generation.Generator = (*Generator)(nil)

// New creates a BFL generator for the endpoint named by cfg.Model, e.g. "flux-pro-1.1".
func New(cfg config.HTTPProviderConfig, logger *slog.Logger, opts polling.Options) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: bfl api key is required", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: bfl base url is required", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bfl")

	return &Generator{
		client: provider.NewHTTPClient(provider.HTTPClientConfig{
			Headers:           map[string]string{"x-key": cfg.APIKey},
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		opts:    provider.WithHTTPErrorPolicy(opts, nil),
		logger:  logger,
	}, nil
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return Name }

// Generate implements generation.Generator.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := g.model
	if req.Model != "" {
		model = req.Model
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no bfl model configured", generation.ErrInvalidRequest)
	}

	job := &fluxJob{g: g, model: model, req: req}
	outputs, handle, err := provider.Await[taskHandle, *taskResult, []generation.Asset](
		ctx, job, g.opts, provider.StateObserver(ctx))
	if err != nil {
		g.logger.ErrorContext(ctx, "flux task did not succeed",
			"task_id", handle.ID,
			"error", err)
		return nil, generation.ClassifyError(fmt.Errorf("bfl: %w", err))
	}
	return &generation.Result{Provider: Name, Handle: handle.ID, Outputs: outputs}, nil
}

type taskHandle struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type taskResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result"`
	Details map[string]any `json:"details"`
}

type fluxJob struct {
	g     *Generator
	model string
	req   generation.Request
}

func (j *fluxJob) Submit(ctx context.Context) (taskHandle, error) {
	body := map[string]any{"prompt": j.req.Prompt}
	if j.req.Width > 0 {
		body["width"] = j.req.Width
	}
	if j.req.Height > 0 {
		body["height"] = j.req.Height
	}
	if j.req.Seed != nil {
		body["seed"] = *j.req.Seed
	}

	var h taskHandle
	if err := j.g.client.Do(ctx, http.MethodPost, j.g.baseURL+"/v1/"+j.model, body, &h); err != nil {
		return taskHandle{}, err
	}
	if h.ID == "" {
		return taskHandle{}, errors.New("task response has no id")
	}
	if h.PollingURL == "" {
		h.PollingURL = j.g.baseURL + "/v1/get_result?id=" + url.QueryEscape(h.ID)
	}

	j.g.logger.InfoContext(ctx, "flux task submitted",
		"task_id", h.ID,
		"model", j.model)
	return h, nil
}

func (j *fluxJob) Query(ctx context.Context, h taskHandle) (*taskResult, error) {
	var r taskResult
	if err := j.g.client.Do(ctx, http.MethodGet, h.PollingURL, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (j *fluxJob) Classify(r *taskResult) polling.Verdict[[]generation.Asset] {
	switch statuses.Lookup(r.Status) {
	case polling.VerdictSuccess:
		if r.Result == nil || r.Result.Sample == "" {
			return polling.Failed[[]generation.Asset](errors.New("task ready without a sample"))
		}
		return polling.Succeeded([]generation.Asset{{URL: r.Result.Sample}})
	case polling.VerdictFailed:
		return polling.Failed[[]generation.Asset](taskError(r))
	default:
		return polling.Pending[[]generation.Asset]()
	}
}

func taskError(r *taskResult) error {
	if strings.Contains(strings.ToLower(r.Status), "moderated") {
		return fmt.Errorf("%w: task %s: %s", generation.ErrContentBlocked, r.ID, r.Status)
	}
	if len(r.Details) > 0 {
		return fmt.Errorf("task %s: %s: %v", r.ID, r.Status, r.Details)
	}
	return fmt.Errorf("task %s: %s", r.ID, r.Status)
}
