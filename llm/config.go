package llm

import (
	"fmt"
	"time"
)

const defaultTimeout = 5 * time.Minute

// Config holds configuration for creating an LLM adapter.
// It is provider-agnostic; the Dialect field selects the provider mapping.
type Config struct {
	// Name identifies this adapter instance. Defaults to the dialect name.
	Name string `yaml:"name" mapstructure:"name"`

	// Dialect selects the provider mapping ("anthropic", "ollama").
	Dialect string `yaml:"dialect" mapstructure:"dialect"`

	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Model is the default model to use.
	Model string `yaml:"model" mapstructure:"model"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens is the default maximum tokens for responses.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds each HTTP attempt. Defaults to 5m.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// APIKey is handed to the dialect's auth scheme.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// CredentialEnv names the variable that supplies APIKey. When set, an
	// empty APIKey fails CheckCredentials with a configuration error.
	CredentialEnv string `yaml:"-" mapstructure:"-"`

	// Headers are additional HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults sets default values for unset config fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = c.Dialect
	}
}

// Validate checks the static configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("llm: base_url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("llm: model is required")
	}
	return nil
}
