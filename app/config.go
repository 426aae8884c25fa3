package app

import (
	"fmt"

	"github.com/fernandomesquita/stenopro/api"
	"github.com/fernandomesquita/stenopro/auth"
	"github.com/fernandomesquita/stenopro/config"
	"github.com/fernandomesquita/stenopro/correction"
	"github.com/fernandomesquita/stenopro/database"
	"github.com/fernandomesquita/stenopro/kafka"
	"github.com/fernandomesquita/stenopro/observability"
	"github.com/fernandomesquita/stenopro/processing"
	"github.com/fernandomesquita/stenopro/redis"
	"github.com/fernandomesquita/stenopro/server"
	"github.com/fernandomesquita/stenopro/storage"
	"github.com/fernandomesquita/stenopro/transcription"
)

// ServiceName names the service in logs, config files and traces.
const ServiceName = "stenopro"

// Config is the complete service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Transcription transcription.Config `yaml:"transcription" mapstructure:"transcription"`
	Correction    correction.Config    `yaml:"correction" mapstructure:"correction"`
	Pipeline      processing.Config    `yaml:"pipeline" mapstructure:"pipeline"`
	Upload        api.UploadConfig     `yaml:"upload" mapstructure:"upload"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// envAliases binds the conventional unprefixed variables. STENOPRO_* forms
// take precedence.
var envAliases = map[string]string{
	"GROQ_API_KEY":      "transcription.groq.api_key",
	"ANTHROPIC_API_KEY": "correction.anthropic.api_key",
	"DATABASE_URL":      "database.dsn",
	"STORAGE_DIR":       "storage.local.base_path",
	"PORT":              "server.port",
	"JWT_SECRET":        "auth.secret",
}

// Load reads configuration from the config file, the env file and the
// environment, in increasing precedence.
func Load(opts ...config.LoaderOption) (*Config, error) {
	all := make([]config.LoaderOption, 0, len(envAliases)+len(opts))
	for env, key := range envAliases {
		all = append(all, config.WithEnvAlias(env, key))
	}
	all = append(all, opts...)

	cfg := &Config{}
	if err := config.LoadConfig(ServiceName, cfg, all...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	c.Correction.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Upload.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section and names the first one that fails.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		fn   func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"storage", c.Storage.Validate},
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"transcription", c.Transcription.Validate},
		{"correction", c.Correction.Validate},
		{"pipeline", c.Pipeline.Validate},
		{"upload", c.Upload.Validate},
		{"auth", c.Auth.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
