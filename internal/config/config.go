package config

import (
	"time"

	"github.com/phrazzld/genpoll/internal/polling"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Polling   PollingConfig   `mapstructure:"polling" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// PollingConfig holds the default polling behaviour applied to every provider.
// Intervals are in milliseconds; MaxRetries of 0 polls until a terminal state.
type PollingConfig struct {
	InitialIntervalMS      int     `mapstructure:"initial_interval_ms" validate:"gt=0"`
	MaxIntervalMS          int     `mapstructure:"max_interval_ms" validate:"gt=0"`
	BackoffMultiplier      float64 `mapstructure:"backoff_multiplier" validate:"gte=1"`
	MaxConsecutiveFailures int     `mapstructure:"max_consecutive_failures" validate:"gt=0"`
	MaxRetries             int     `mapstructure:"max_retries" validate:"gte=0"`
}

// Options converts the configured values into polling.Options.
func (c PollingConfig) Options() polling.Options {
	return polling.Options{
		InitialInterval:        time.Duration(c.InitialIntervalMS) * time.Millisecond,
		MaxInterval:            time.Duration(c.MaxIntervalMS) * time.Millisecond,
		BackoffMultiplier:      c.BackoffMultiplier,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
		MaxRetries:             c.MaxRetries,
	}
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	// RetentionMinutes is how long finished generations stay queryable, 0 keeps them.
	RetentionMinutes int `mapstructure:"retention_minutes" validate:"gte=0"`
	// ShutdownTimeoutSeconds bounds how long shutdown waits for running generations.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ProvidersConfig groups the settings of every generation provider.
// A provider is enabled when its API key is set.
type ProvidersConfig struct {
	Replicate HTTPProviderConfig `mapstructure:"replicate"`
	Fal       HTTPProviderConfig `mapstructure:"fal"`
	BFL       HTTPProviderConfig `mapstructure:"bfl"`
	Gemini    GeminiConfig       `mapstructure:"gemini"`
}

// HTTPProviderConfig configures a provider reached over a plain JSON HTTP API.
type HTTPProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	// Model is the provider's model path or version identifier.
	Model string `mapstructure:"model"`
	// RequestsPerSecond limits calls to the provider, 0 disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
}

// Enabled reports whether the provider has credentials configured.
func (c HTTPProviderConfig) Enabled() bool {
	return c.APIKey != ""
}

// GeminiConfig contains settings for video generation through the Gemini API.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	VideoModel string `mapstructure:"video_model"`
	BaseURL    string `mapstructure:"base_url" validate:"omitempty,url"`
}

// Enabled reports whether the provider has credentials configured.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}
