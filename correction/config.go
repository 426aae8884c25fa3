package correction

import (
	"fmt"
	"time"

	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/llm"
	"github.com/fernandomesquita/stenopro/llm/anthropic"
	"github.com/fernandomesquita/stenopro/llm/ollama"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/resilience"
)

// Config is the correction section of the service configuration.
type Config struct {
	// Provider selects the LLM dialect: "anthropic" or "ollama".
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Timeout bounds one correction call, retries included.
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	// RateLimit paces calls to the provider across concurrent runs.
	RateLimit resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Anthropic AnthropicConfig              `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama    OllamaConfig                 `yaml:"ollama" mapstructure:"ollama"`
}

// AnthropicConfig configures the Messages API backend.
type AnthropicConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	APIVersion  string  `yaml:"api_version" mapstructure:"api_version"`
}

// OllamaConfig configures a local Ollama backend.
type OllamaConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = anthropic.DialectName
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.RateLimit.Enabled {
		c.RateLimit.ApplyDefaults()
	}
	if c.Anthropic.BaseURL == "" {
		c.Anthropic.BaseURL = anthropic.DefaultBaseURL
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = anthropic.DefaultModel
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = anthropic.DefaultMaxTokens
	}
	if c.Anthropic.Temperature == 0 {
		c.Anthropic.Temperature = 0.1
	}
	if c.Anthropic.APIVersion == "" {
		c.Anthropic.APIVersion = anthropic.DefaultAPIVersion
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = ollama.DefaultBaseURL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = ollama.DefaultModel
	}
	if c.Ollama.Temperature == 0 {
		c.Ollama.Temperature = 0.1
	}
}

// Validate checks the provider name. A missing API key surfaces per run.
func (c *Config) Validate() error {
	switch c.Provider {
	case anthropic.DialectName, ollama.DialectName:
	default:
		return fmt.Errorf("correction.provider must be anthropic or ollama, got %q", c.Provider)
	}
	if c.Anthropic.Temperature < 0 || c.Anthropic.Temperature > 1 {
		return fmt.Errorf("correction.anthropic.temperature must be within [0, 1]")
	}
	return nil
}

// LLMConfig returns the adapter configuration of the selected provider.
func (c *Config) LLMConfig() llm.Config {
	if c.Provider == ollama.DialectName {
		return llm.Config{
			Name:        ollama.DialectName,
			Dialect:     ollama.DialectName,
			BaseURL:     c.Ollama.BaseURL,
			Model:       c.Ollama.Model,
			MaxTokens:   c.Ollama.MaxTokens,
			Temperature: c.Ollama.Temperature,
			Timeout:     c.Timeout,
		}
	}
	return llm.Config{
		Name:          anthropic.DialectName,
		Dialect:       anthropic.DialectName,
		BaseURL:       c.Anthropic.BaseURL,
		Model:         c.Anthropic.Model,
		MaxTokens:     c.Anthropic.MaxTokens,
		Temperature:   c.Anthropic.Temperature,
		Timeout:       c.Timeout,
		APIKey:        c.Anthropic.APIKey,
		CredentialEnv: anthropic.CredentialEnv,
		Headers:       map[string]string{"anthropic-version": c.Anthropic.APIVersion},
	}
}

// Resilience returns the retry, breaker and rate limit policy for
// correction calls.
func (c *Config) Resilience() provider.ResilienceConfig {
	retry := httpclient.DefaultRetryConfig()
	retry.MaxAttempts = c.MaxAttempts
	res := provider.ResilienceConfig{
		Retry:          retry,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(),
	}
	if c.RateLimit.Enabled {
		rl := c.RateLimit
		res.RateLimiter = &rl
	}
	return res
}
