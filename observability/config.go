package observability

import (
	"fmt"
	"time"
)

// Config is the observability section of the service configuration.
// Tracing and metrics are both off unless enabled.
type Config struct {
	TracingEnabled bool `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`
	MetricsEnabled bool `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate checks the sample rate bounds.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}

// TracerConfig derives the tracer settings for a service.
func (c Config) TracerConfig(service, version, environment string) TracerConfig {
	return TracerConfig{
		Identity:   Identity{ServiceName: service, ServiceVersion: version, Environment: environment},
		Endpoint:   c.Endpoint,
		Insecure:   c.Insecure,
		SampleRate: c.SampleRate,
	}
}

// MeterConfig derives the meter settings for a service.
func (c Config) MeterConfig(service, version, environment string) MeterConfig {
	return MeterConfig{
		Identity: Identity{ServiceName: service, ServiceVersion: version, Environment: environment},
		Endpoint: c.Endpoint,
		Insecure: c.Insecure,
		Interval: c.Interval,
	}
}
