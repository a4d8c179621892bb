package fal

import (
	"context"
	"errors"
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
const Name = "fal"

var statuses = provider.NewStatusTable(
	[]string{"COMPLETED"},
	[]string{"ERROR", "FAILED"},
)

// Generator runs requests on the fal.ai queue.
type Generator struct {
	client  *provider.HTTPClient
	baseURL string
	model   string
	opts    polling.Options
	logger  *slog.Logger
}

var _ generation.Generator = (*Generator)(nil)

// New creates a fal generator for the model path in cfg.Model, e.g. "fal-ai/flux/dev".
func New(cfg config.HTTPProviderConfig, logger *slog.Logger, opts polling.Options) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: fal api key is required", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: fal base url is required", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "fal")

	return &Generator{
		client: provider.NewHTTPClient(provider.HTTPClientConfig{
			Headers:           map[string]string{"Authorization": "Key " + cfg.APIKey},
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   strings.Trim(cfg.Model, "/"),
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
		model = strings.Trim(req.Model, "/")
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no fal model configured", generation.ErrInvalidRequest)
	}

	job := &queueJob{g: g, model: model, req: req}
	outputs, handle, err := provider.Await[queueHandle, *queueStatus, []generation.Asset](
		ctx, job, g.opts, provider.StateObserver(ctx))
	if err != nil {
		g.logger.ErrorContext(ctx, "queue request did not complete",
			"request_id", handle.RequestID,
			"error", err)
		return nil, generation.ClassifyError(fmt.Errorf("fal: %w", err))
	}
	return &generation.Result{Provider: Name, Handle: handle.RequestID, Outputs: outputs}, nil
}

type queueHandle struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type image struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type output struct {
	Images          []image `json:"images"`
	HasNSFWConcepts []bool  `json:"has_nsfw_concepts"`
}

// queueStatus is the status document plus, once the request completed, the
// output fetched from its response URL.
type queueStatus struct {
	Status        string `json:"status"`
	QueuePosition *int   `json:"queue_position"`
	Error         string `json:"error"`

	output    *output
	outputErr error
}

type queueJob struct {
	g     *Generator
	model string
	req   generation.Request
}

func (j *queueJob) Submit(ctx context.Context) (queueHandle, error) {
	body := map[string]any{"prompt": j.req.Prompt}
	if j.req.NegativePrompt != "" {
		body["negative_prompt"] = j.req.NegativePrompt
	}
	if j.req.Width > 0 && j.req.Height > 0 {
		body["image_size"] = map[string]int{"width": j.req.Width, "height": j.req.Height}
	}
	if j.req.Seed != nil {
		body["seed"] = *j.req.Seed
	}

	var h queueHandle
	if err := j.g.client.Do(ctx, http.MethodPost, j.g.baseURL+"/"+j.model, body, &h); err != nil {
		return queueHandle{}, err
	}
	if h.RequestID == "" {
		return queueHandle{}, errors.New("queue response has no request_id")
	}
	requestURL := j.g.baseURL + "/" + j.model + "/requests/" + h.RequestID
	if h.StatusURL == "" {
		h.StatusURL = requestURL + "/status"
	}
	if h.ResponseURL == "" {
		h.ResponseURL = requestURL
	}

	j.g.logger.InfoContext(ctx, "queue request submitted",
		"request_id", h.RequestID,
		"model", j.model)
	return h, nil
}

func (j *queueJob) Query(ctx context.Context, h queueHandle) (*queueStatus, error) {
	var s queueStatus
	if err := j.g.client.Do(ctx, http.MethodGet, h.StatusURL, nil, &s); err != nil {
		return nil, err
	}
	if statuses.Lookup(s.Status) != polling.VerdictSuccess || s.Error != "" {
		return &s, nil
	}

	var out output
	err := j.g.client.Do(ctx, http.MethodGet, h.ResponseURL, nil, &out)
	var httpErr *provider.HTTPError
	switch {
	case err == nil:
		s.output = &out
	case errors.As(err, &httpErr) && !httpErr.Temporary():
		// the request completed, but with an error result
		s.outputErr = err
	default:
		return nil, err
	}
	return &s, nil
}

func (j *queueJob) Classify(s *queueStatus) polling.Verdict[[]generation.Asset] {
	switch statuses.Lookup(s.Status) {
	case polling.VerdictSuccess:
		if s.Error != "" {
			return polling.Failed[[]generation.Asset](fmt.Errorf("request completed with error: %s", s.Error))
		}
		if s.outputErr != nil {
			return polling.Failed[[]generation.Asset](fmt.Errorf("%w: fetching result: %w", generation.ErrGenerationFailed, s.outputErr))
		}
		assets, err := s.output.assets()
		if err != nil {
			return polling.Failed[[]generation.Asset](err)
		}
		return polling.Succeeded(assets)
	case polling.VerdictFailed:
		msg := s.Error
		if msg == "" {
			msg = s.Status
		}
		return polling.Failed[[]generation.Asset](fmt.Errorf("request failed: %s", msg))
	default:
		return polling.Pending[[]generation.Asset]()
	}
}

// assets drops images the safety checker flagged. If every image was
// flagged the result counts as blocked.
func (o *output) assets() ([]generation.Asset, error) {
	var assets []generation.Asset
	flagged := 0
	for i, img := range o.Images {
		if i < len(o.HasNSFWConcepts) && o.HasNSFWConcepts[i] {
			flagged++
			continue
		}
		assets = append(assets, generation.Asset{URL: img.URL, MIMEType: img.ContentType})
	}
	if len(assets) == 0 {
		if flagged > 0 {
			return nil, fmt.Errorf("%w: %d image(s) flagged as nsfw", generation.ErrContentBlocked, flagged)
		}
		return nil, errors.New("request completed without images")
	}
	return assets, nil
}
