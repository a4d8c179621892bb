package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. GENPOLL_SERVER_PORT or GENPOLL_PROVIDERS_FAL_API_KEY.
const EnvPrefix = "GENPOLL"

// Load configuration from environment variables and optionally a config file
// named config.yaml in the working directory.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal, including keys whose default is empty.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("polling.initial_interval_ms", 500)
	v.SetDefault("polling.max_interval_ms", 5000)
	v.SetDefault("polling.backoff_multiplier", 1.5)
	v.SetDefault("polling.max_consecutive_failures", 3)
	v.SetDefault("polling.max_retries", 0)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.retention_minutes", 60)
	v.SetDefault("task.shutdown_timeout_seconds", 30)

	v.SetDefault("providers.replicate.api_key", "")
	v.SetDefault("providers.replicate.base_url", "https://api.replicate.com")
	v.SetDefault("providers.replicate.model", "")
	v.SetDefault("providers.replicate.requests_per_second", 0)

	v.SetDefault("providers.fal.api_key", "")
	v.SetDefault("providers.fal.base_url", "https://queue.fal.run")
	v.SetDefault("providers.fal.model", "fal-ai/flux/dev")
	v.SetDefault("providers.fal.requests_per_second", 0)

	v.SetDefault("providers.bfl.api_key", "")
	v.SetDefault("providers.bfl.base_url", "https://api.bfl.ai")
	v.SetDefault("providers.bfl.model", "flux-pro-1.1")
	v.SetDefault("providers.bfl.requests_per_second", 0)

	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.video_model", "veo-2.0-generate-001")
	v.SetDefault("providers.gemini.base_url", "")
}
