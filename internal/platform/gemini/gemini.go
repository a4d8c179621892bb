package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/phrazzld/genpoll/internal/config"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/polling"
	"github.com/phrazzld/genpoll/internal/provider"
	"google.golang.org/genai"
)

// Name is the provider name the generator registers under.
const Name = "gemini"

const defaultMIMEType = "video/mp4"

type operation = *genai.GenerateVideosOperation

type videoJob = provider.JobFuncs[operation, operation, []generation.Asset]

// videoClient is the part of the genai client the generator uses.
type videoClient interface {
	GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (operation, error)
	GetVideosOperation(ctx context.Context, op operation) (operation, error)
}

type genaiClient struct {
	client *genai.Client
}

func (c genaiClient) GenerateVideos(ctx context.Context, model, prompt string, config *genai.GenerateVideosConfig) (operation, error) {
	return c.client.Models.GenerateVideos(ctx, model, prompt, nil, config)
}

func (c genaiClient) GetVideosOperation(ctx context.Context, op operation) (operation, error) {
	return c.client.Operations.GetVideosOperation(ctx, op, nil)
}

// Generator produces videos with a Veo model.
type Generator struct {
	client videoClient
	model  string
	opts   polling.Options
	logger *slog.Logger
}

var _ generation.Generator = (*Generator)(nil)

// New creates a generator backed by the Gemini API.
func New(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger, opts polling.Options) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", generation.ErrInvalidConfig)
	}
	if cfg.VideoModel == "" {
		return nil, fmt.Errorf("%w: gemini video model is required", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create genai client: %w", generation.ErrInvalidConfig, err)
	}

	return newGenerator(genaiClient{client: client}, cfg.VideoModel, logger, opts), nil
}

func newGenerator(client videoClient, model string, logger *slog.Logger, opts polling.Options) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client: client,
		model:  model,
		opts:   provider.WithHTTPErrorPolicy(opts, nil),
		logger: logger.With("component", "gemini"),
	}
}

// Name implements generation.Generator.
func (g *Generator) Name() string { return Name }

// Generate implements generation.Generator.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	videoConfig, err := buildConfig(req)
	if err != nil {
		return nil, err
	}
	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	job := videoJob{
		SubmitFunc: func(ctx context.Context) (operation, error) {
			op, err := g.client.GenerateVideos(ctx, model, req.Prompt, videoConfig)
			if err != nil {
				return nil, asHTTPError(err)
			}
			if op == nil {
				return nil, fmt.Errorf("model %s returned no operation", model)
			}
			g.logger.InfoContext(ctx, "video operation started",
				"operation", op.Name,
				"model", model)
			return op, nil
		},
		QueryFunc: func(ctx context.Context, op operation) (operation, error) {
			latest, err := g.client.GetVideosOperation(ctx, op)
			if err != nil {
				return nil, asHTTPError(err)
			}
			return latest, nil
		},
		ClassifyFunc: classify,
	}

	outputs, op, err := provider.Await[operation, operation, []generation.Asset](
		ctx, job, g.opts, provider.StateObserver(ctx))
	if err != nil {
		g.logger.ErrorContext(ctx, "video operation did not succeed",
			"operation", operationName(op),
			"error", err)
		return nil, generation.ClassifyError(fmt.Errorf("gemini: %w", err))
	}
	return &generation.Result{Provider: Name, Handle: operationName(op), Outputs: outputs}, nil
}

func classify(op operation) polling.Verdict[[]generation.Asset] {
	if op == nil || !op.Done {
		return polling.Pending[[]generation.Asset]()
	}
	if op.Error != nil {
		return polling.Failed[[]generation.Asset](fmt.Errorf("operation %s failed: %v", op.Name, op.Error["message"]))
	}

	var assets []generation.Asset
	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v == nil || v.Video == nil || (v.Video.URI == "" && len(v.Video.VideoBytes) == 0) {
				continue
			}
			mime := v.Video.MIMEType
			if mime == "" {
				mime = defaultMIMEType
			}
			assets = append(assets, generation.Asset{URL: v.Video.URI, MIMEType: mime, Data: v.Video.VideoBytes})
		}
	}
	if len(assets) > 0 {
		return polling.Succeeded(assets)
	}

	if op.Response != nil && op.Response.RAIMediaFilteredCount > 0 {
		return polling.Failed[[]generation.Asset](fmt.Errorf("%w: %d video(s) filtered: %s",
			generation.ErrContentBlocked,
			op.Response.RAIMediaFilteredCount,
			strings.Join(op.Response.RAIMediaFilteredReasons, "; ")))
	}
	return polling.Failed[[]generation.Asset](fmt.Errorf("operation %s finished without videos", op.Name))
}

func buildConfig(req generation.Request) (*genai.GenerateVideosConfig, error) {
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		NegativePrompt: req.NegativePrompt,
	}
	if req.Seed != nil {
		if *req.Seed < math.MinInt32 || *req.Seed > math.MaxInt32 {
			return nil, fmt.Errorf("%w: seed %d out of range for video generation", generation.ErrInvalidRequest, *req.Seed)
		}
		seed := int32(*req.Seed)
		cfg.Seed = &seed
	}
	if req.Width > 0 && req.Height > 0 {
		if req.Width >= req.Height {
			cfg.AspectRatio = "16:9"
		} else {
			cfg.AspectRatio = "9:16"
		}
	}
	return cfg, nil
}

// asHTTPError exposes the status code of a genai API error as a
// *provider.HTTPError, so the shared error policy and ClassifyError treat it
// like any other provider response.
func asHTTPError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &provider.HTTPError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return err
}

func operationName(op operation) string {
	if op == nil {
		return ""
	}
	return op.Name
}
