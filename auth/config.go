package auth

import (
	"errors"
	"fmt"
	"time"
)

// Config configures bearer token authentication.
type Config struct {
	// Enabled turns token checks on for the API routes.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Secret is the HMAC key tokens are signed with.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// Audience, when set, must appear in the token's aud claim.
	Audience string `yaml:"audience" mapstructure:"audience"`
	// TokenTTL is the lifetime of tokens issued by the CLI.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// SkipPaths are path prefixes that never require a token.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// minSecretLen is the shortest accepted HMAC key.
const minSecretLen = 32

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.TokenTTL == 0 {
		c.TokenTTL = 12 * time.Hour
	}
	if c.Issuer == "" {
		c.Issuer = "stenopro"
	}
}

// Validate checks the secret when authentication is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Secret == "" {
		return errors.New("auth.secret is required when auth is enabled")
	}
	if len(c.Secret) < minSecretLen {
		return fmt.Errorf("auth.secret must be at least %d bytes", minSecretLen)
	}
	if c.TokenTTL < 0 {
		return errors.New("auth.token_ttl must be non-negative")
	}
	return nil
}

// Describe returns a one-liner for the startup summary.
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("JWT(HS256) iss=%s ttl=%s", c.Issuer, c.TokenTTL)
}
