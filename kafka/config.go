package kafka

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fernandomesquita/stenopro/security"
	"github.com/fernandomesquita/stenopro/version"
)

// DefaultTopic receives transcription lifecycle events.
const DefaultTopic = "stenopro.transcriptions"

var saslMechanisms = []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"}

// Config is the kafka section. When enabled, every lifecycle event is also
// published to Topic keyed by transcription ID.
type Config struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
	// ClientID defaults to the versioned user agent.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`

	TLS           security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	EnableSASL    bool               `yaml:"enable_sasl" mapstructure:"enable_sasl"`
	SASLMechanism string             `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	Username      string             `yaml:"username" mapstructure:"username"`
	Password      string             `yaml:"password" mapstructure:"password"`

	// Compression is one of none, gzip, snappy, lz4 or zstd.
	Compression  string        `yaml:"compression" mapstructure:"compression"`
	Retries      int           `yaml:"retries" mapstructure:"retries"`
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// RequiredAcks of -1 waits for all in-sync replicas.
	RequiredAcks int `yaml:"required_acks" mapstructure:"required_acks"`
	// PublishTimeout bounds one Publish call, retries included.
	PublishTimeout time.Duration `yaml:"publish_timeout" mapstructure:"publish_timeout"`

	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// ApplyDefaults publishes one event per batch with snappy compression and
// acks from all replicas.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.EnableSASL && c.SASLMechanism == "" {
		c.SASLMechanism = "PLAIN"
	}
	setDuration(&c.BatchTimeout, 10*time.Millisecond)
	setDuration(&c.WriteTimeout, 10*time.Second)
	setDuration(&c.PublishTimeout, 5*time.Second)
	setDuration(&c.DialTimeout, 10*time.Second)
	setDuration(&c.IdleTimeout, 30*time.Second)
	setDuration(&c.MetadataTTL, 6*time.Second)
}

// Validate is a no-op for a disabled section.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case len(c.Brokers) == 0:
		return errors.New("kafka.brokers is required")
	case c.Topic == "":
		return errors.New("kafka.topic is required")
	case c.Retries <= 0:
		return fmt.Errorf("kafka.retries must be positive (got: %d)", c.Retries)
	}
	if _, ok := compressionCodecs[c.Compression]; !ok {
		return fmt.Errorf("kafka.compression %q is not supported", c.Compression)
	}
	if c.EnableSASL {
		if !slices.Contains(saslMechanisms, c.SASLMechanism) {
			return fmt.Errorf("kafka.sasl_mechanism must be one of %v (got: %s)", saslMechanisms, c.SASLMechanism)
		}
		if c.Username == "" {
			return errors.New("kafka.username is required with SASL")
		}
	}
	return c.TLS.Validate()
}

func (c *Config) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return version.UserAgent()
}
