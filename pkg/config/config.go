package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Credentials holds provider API keys.
type Credentials struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
}

// LoadCredentials reads provider API keys from the environment. When envFile
// is non-empty and exists it is loaded first; variables already set in the
// environment are never overridden by it.
func LoadCredentials(envFile string) (*Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	return &Credentials{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
	}, nil
}

// DefaultEnvFile returns the .env path under the project config directory.
func DefaultEnvFile(dir string) string {
	return filepath.Join(dir, DefaultConfigDir, ".env")
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Credentials) HasAdapter(name string) bool {
	if c == nil {
		return false
	}
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	default:
		return false
	}
}

// RetryConfig defines retry and backoff behavior for provider calls.
type RetryConfig struct {
	MaxRetries    int `yaml:"max_retries,omitempty" mapstructure:"maxRetries"`
	BaseBackoffMs int `yaml:"base_backoff_ms,omitempty" mapstructure:"baseBackoffMs"`
	MaxBackoffMs  int `yaml:"max_backoff_ms,omitempty" mapstructure:"maxBackoffMs"`
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	var cfg RetryConfig
	applyRetryDefaults(&cfg)
	return cfg
}

// applyRetryDefaults replaces zero or negative values with the defaults.
func applyRetryDefaults(cfg *RetryConfig) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseBackoffMs <= 0 {
		cfg.BaseBackoffMs = 200
	}
	if cfg.MaxBackoffMs <= 0 {
		cfg.MaxBackoffMs = 2000
	}
	if cfg.MaxBackoffMs < cfg.BaseBackoffMs {
		cfg.MaxBackoffMs = cfg.BaseBackoffMs
	}
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}
