package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/genpoll/internal/config"
	"github.com/phrazzld/genpoll/internal/events"
	"github.com/phrazzld/genpoll/internal/generation"
	"github.com/phrazzld/genpoll/internal/platform/bfl"
	"github.com/phrazzld/genpoll/internal/platform/fal"
	"github.com/phrazzld/genpoll/internal/platform/gemini"
	"github.com/phrazzld/genpoll/internal/platform/replicate"
	"github.com/phrazzld/genpoll/internal/polling"
	"github.com/phrazzld/genpoll/internal/task"
)

// application holds the shared dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	registry     *generation.Registry
	taskStore    *task.MemoryStore
	taskRunner   *task.TaskRunner
	eventEmitter *events.InMemoryEventEmitter
}

// newApplication wires the provider registry, the task runner and the event
// emitter together. The runner is started by Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: generation.NewRegistry(),
	}

	if err := registerProviders(ctx, cfg.Providers, cfg.Polling.Options(), logger, app.registry); err != nil {
		return nil, err
	}
	if names := app.registry.Names(); len(names) == 0 {
		logger.Warn("no generation providers configured, every generation request will be rejected")
	} else {
		logger.Info("generation providers registered", "providers", names)
	}

	app.taskStore = task.NewMemoryStore()
	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
		Retention:   time.Duration(cfg.Task.RetentionMinutes) * time.Minute,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	factory := task.NewGenerationTaskFactory(app.registry, logger)
	app.eventEmitter.RegisterHandler(task.TaskTypeGeneration,
		task.NewGenerationEventHandler(factory, app.taskRunner, logger))

	logger.Info("application initialized")
	return app, nil
}

type httpProviderFactory func(config.HTTPProviderConfig, *slog.Logger, polling.Options) (generation.Generator, error)

// registerProviders registers a generator for every provider with an API key.
func registerProviders(
	ctx context.Context,
	cfg config.ProvidersConfig,
	opts polling.Options,
	logger *slog.Logger,
	registry *generation.Registry,
) error {
	httpProviders := []struct {
		name  string
		cfg   config.HTTPProviderConfig
		build httpProviderFactory
	}{
		{replicate.Name, cfg.Replicate, func(c config.HTTPProviderConfig, l *slog.Logger, o polling.Options) (generation.Generator, error) {
			return replicate.New(c, l, o)
		}},
		{fal.Name, cfg.Fal, func(c config.HTTPProviderConfig, l *slog.Logger, o polling.Options) (generation.Generator, error) {
			return fal.New(c, l, o)
		}},
		{bfl.Name, cfg.BFL, func(c config.HTTPProviderConfig, l *slog.Logger, o polling.Options) (generation.Generator, error) {
			return bfl.New(c, l, o)
		}},
	}

	for _, p := range httpProviders {
		if !p.cfg.Enabled() {
			continue
		}
		g, err := p.build(p.cfg, logger, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize %s provider: %w", p.name, err)
		}
		registry.Register(g)
	}

	if cfg.Gemini.Enabled() {
		g, err := gemini.New(ctx, cfg.Gemini, logger, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize %s provider: %w", gemini.Name, err)
		}
		registry.Register(g)
	}
	return nil
}

func (app *application) shutdownTimeout() time.Duration {
	return time.Duration(app.config.Task.ShutdownTimeoutSeconds) * time.Second
}
