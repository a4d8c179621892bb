package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/genpoll/internal/config"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/polling"
	"github.com/phrazzld/genpoll/internal/provider"
)

// Name is the provider name the generator registers under.
const Name = "replicate"

var statuses = provider.NewStatusTable(
	[]string{"succeeded"},
	[]string{"failed", "canceled"},
)

// Generator runs predictions on Replicate.
type Generator struct {
	client  *provider.HTTPClient
	baseURL string
	model   string
	opts    polling.Options
	logger  *slog.Logger
}

var _ generation.Generator = (*Generator)(nil)

// New creates a Replicate generator. cfg.Model is either a version ID, an
// "owner/name:version" reference, or an "owner/name" official model.
func New(cfg config.HTTPProviderConfig, logger *slog.Logger, opts polling.Options) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: replicate api key is required", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: replicate base url is required", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "replicate")

	client := provider.NewHTTPClient(provider.HTTPClientConfig{
		Headers:           map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)

	return &Generator{
		client:  client,
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
		return nil, fmt.Errorf("%w: no replicate model configured", generation.ErrInvalidRequest)
	}

	job := &predictionJob{g: g, model: model, req: req}
	outputs, handle, err := provider.Await[predictionHandle, *prediction, []generation.Asset](
		ctx, job, g.opts, provider.StateObserver(ctx))
	if err != nil {
		g.logger.ErrorContext(ctx, "prediction did not succeed",
			"prediction_id", handle.ID,
			"error", err)
		return nil, generation.ClassifyError(fmt.Errorf("replicate: %w", err))
	}

	return &generation.Result{Provider: Name, Handle: handle.ID, Outputs: outputs}, nil
}

type predictionHandle struct {
	ID     string
	GetURL string
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type predictionJob struct {
	g     *Generator
	model string
	req   generation.Request
}

func (j *predictionJob) Submit(ctx context.Context) (predictionHandle, error) {
	url, body := j.g.createRequest(j.model, j.req)

	var p prediction
	if err := j.g.client.Do(ctx, http.MethodPost, url, body, &p); err != nil {
		return predictionHandle{}, err
	}
	if p.ID == "" {
		return predictionHandle{}, fmt.Errorf("prediction response has no id")
	}

	get := p.URLs.Get
	if get == "" {
		get = j.g.baseURL + "/v1/predictions/" + p.ID
	}
	j.g.logger.InfoContext(ctx, "prediction created",
		"prediction_id", p.ID,
		"model", j.model)
	return predictionHandle{ID: p.ID, GetURL: get}, nil
}

func (j *predictionJob) Query(ctx context.Context, h predictionHandle) (*prediction, error) {
	var p prediction
	if err := j.g.client.Do(ctx, http.MethodGet, h.GetURL, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (j *predictionJob) Classify(p *prediction) polling.Verdict[[]generation.Asset] {
	switch statuses.Lookup(p.Status) {
	case polling.VerdictSuccess:
		assets, err := parseOutput(p.Output)
		if err != nil {
			return polling.Failed[[]generation.Asset](err)
		}
		return polling.Succeeded(assets)
	case polling.VerdictFailed:
		return polling.Failed[[]generation.Asset](predictionError(p))
	default:
		return polling.Pending[[]generation.Asset]()
	}
}

// createRequest picks the endpoint for model. Official models are addressed
// by name, community models by version.
func (g *Generator) createRequest(model string, req generation.Request) (string, map[string]any) {
	input := map[string]any{"prompt": req.Prompt}
	if req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if req.Width > 0 {
		input["width"] = req.Width
	}
	if req.Height > 0 {
		input["height"] = req.Height
	}
	if req.Seed != nil {
		input["seed"] = *req.Seed
	}

	if _, version, ok := strings.Cut(model, ":"); ok {
		return g.baseURL + "/v1/predictions", map[string]any{"version": version, "input": input}
	}
	if strings.Contains(model, "/") {
		return g.baseURL + "/v1/models/" + model + "/predictions", map[string]any{"input": input}
	}
	return g.baseURL + "/v1/predictions", map[string]any{"version": model, "input": input}
}

// parseOutput accepts the two output shapes image models use: a single URL
// or a list of URLs.
func parseOutput(raw json.RawMessage) ([]generation.Asset, error) {
	var urls []string
	var single string
	switch {
	case json.Unmarshal(raw, &urls) == nil:
	case json.Unmarshal(raw, &single) == nil:
		if single != "" {
			urls = []string{single}
		}
	default:
		return nil, fmt.Errorf("unexpected prediction output: %.100s", string(raw))
	}

	assets := make([]generation.Asset, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			assets = append(assets, generation.Asset{URL: u})
		}
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("prediction succeeded without output")
	}
	return assets, nil
}

func predictionError(p *prediction) error {
	msg := ""
	if p.Error != nil {
		msg = fmt.Sprint(p.Error)
	}
	if strings.Contains(strings.ToLower(msg), "nsfw") {
		return fmt.Errorf("%w: prediction %s: %s", generation.ErrContentBlocked, p.ID, msg)
	}
	if msg == "" {
		return fmt.Errorf("prediction %s %s", p.ID, p.Status)
	}
	return fmt.Errorf("prediction %s %s: %s", p.ID, p.Status, msg)
}
