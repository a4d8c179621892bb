package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets environment variables for the duration of a test. An empty
// value unsets the variable.
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for name, value := range envVars {
		original, had := os.LookupEnv(name)
		if value == "" {
			require.NoError(t, os.Unsetenv(name))
		} else {
			require.NoError(t, os.Setenv(name, value), "Failed to set environment variable %s", name)
		}
		t.Cleanup(func() {
			if had {
				os.Setenv(name, original)
			} else {
				os.Unsetenv(name)
			}
		})
	}
}

// TestLoadDefaults verifies that Load returns the documented defaults when no
// environment variables are set.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, map[string]string{
		"GENPOLL_SERVER_PORT":         "",
		"GENPOLL_SERVER_LOG_LEVEL":    "",
		"GENPOLL_POLLING_MAX_RETRIES": "",
	})

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 2, cfg.Task.WorkerCount)
	assert.Equal(t, 100, cfg.Task.QueueSize)
	assert.Equal(t, 60, cfg.Task.RetentionMinutes)
	assert.Equal(t, 30, cfg.Task.ShutdownTimeoutSeconds)

	opts := cfg.Polling.Options()
	assert.Equal(t, 500*time.Millisecond, opts.InitialInterval)
	assert.Equal(t, 5*time.Second, opts.MaxInterval)
	assert.Equal(t, 1.5, opts.BackoffMultiplier)
	assert.Equal(t, 3, opts.MaxConsecutiveFailures)
	assert.Equal(t, 0, opts.MaxRetries)
	assert.NoError(t, opts.Validate())
}

// TestLoadFromEnv verifies that Load reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"GENPOLL_SERVER_PORT":                       "9090",
		"GENPOLL_SERVER_LOG_LEVEL":                  "debug",
		"GENPOLL_POLLING_INITIAL_INTERVAL_MS":       "250",
		"GENPOLL_POLLING_MAX_RETRIES":               "40",
		"GENPOLL_PROVIDERS_FAL_API_KEY":             "fal-test-key",
		"GENPOLL_PROVIDERS_BFL_REQUESTS_PER_SECOND": "2.5",
		"GENPOLL_PROVIDERS_GEMINI_API_KEY":          "gemini-test-key",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Polling.Options().InitialInterval)
	assert.Equal(t, 40, cfg.Polling.MaxRetries)
	assert.True(t, cfg.Providers.Fal.Enabled())
	assert.Equal(t, "fal-test-key", cfg.Providers.Fal.APIKey)
	assert.Equal(t, "https://queue.fal.run", cfg.Providers.Fal.BaseURL)
	assert.Equal(t, 2.5, cfg.Providers.BFL.RequestsPerSecond)
	assert.False(t, cfg.Providers.Replicate.Enabled())
	assert.True(t, cfg.Providers.Gemini.Enabled())
	assert.Equal(t, "veo-2.0-generate-001", cfg.Providers.Gemini.VideoModel)
}

// TestLoadValidationErrors verifies that Load rejects invalid values.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Invalid port number",
			envVars: map[string]string{"GENPOLL_SERVER_PORT": "999999"},
		},
		{
			name:    "Invalid log level",
			envVars: map[string]string{"GENPOLL_SERVER_LOG_LEVEL": "verbose"},
		},
		{
			name:    "Backoff multiplier below one",
			envVars: map[string]string{"GENPOLL_POLLING_BACKOFF_MULTIPLIER": "0.5"},
		},
		{
			name:    "Negative max retries",
			envVars: map[string]string{"GENPOLL_POLLING_MAX_RETRIES": "-1"},
		},
		{
			name:    "Malformed provider base URL",
			envVars: map[string]string{"GENPOLL_PROVIDERS_REPLICATE_BASE_URL": "not a url"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t, tc.envVars)

			cfg, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
			assert.Nil(t, cfg)
		})
	}
}
