package kafka

import (
	"crypto/tls"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

var compressionCodecs = map[string]kafkago.Compression{
	"none":   0,
	"gzip":   kafkago.Gzip,
	"snappy": kafkago.Snappy,
	"lz4":    kafkago.Lz4,
	"zstd":   kafkago.Zstd,
}

// ResolveCompression maps a codec name to kafka-go's constant. Unknown
// names fall back to snappy; Validate rejects them earlier.
func ResolveCompression(name string) kafkago.Compression {
	if c, ok := compressionCodecs[name]; ok {
		return c
	}
	return kafkago.Snappy
}

// credentials resolves the TLS and SASL settings shared by the writer's
// transport and the health-check dialer. Either may be nil.
func (c *Config) credentials() (*tls.Config, sasl.Mechanism, error) {
	tc, err := c.TLS.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("kafka tls: %w", err)
	}
	if !c.EnableSASL {
		return tc, nil, nil
	}
	var m sasl.Mechanism
	switch c.SASLMechanism {
	case "PLAIN":
		m = plain.Mechanism{Username: c.Username, Password: c.Password}
	case "SCRAM-SHA-256":
		m, err = scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		m, err = scram.Mechanism(scram.SHA512, c.Username, c.Password)
	default:
		err = fmt.Errorf("unsupported SASL mechanism %q", c.SASLMechanism)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("kafka sasl: %w", err)
	}
	return tc, m, nil
}

// CreateTransport builds the writer's transport.
func CreateTransport(cfg *Config) (*kafkago.Transport, error) {
	tc, m, err := cfg.credentials()
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
		ClientID:    cfg.clientID(),
		TLS:         tc,
		SASL:        m,
	}, nil
}

// CreateDialer builds a dialer for direct broker connections.
func CreateDialer(cfg *Config) (*kafkago.Dialer, error) {
	tc, m, err := cfg.credentials()
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		ClientID:      cfg.clientID(),
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           tc,
		SASLMechanism: m,
	}, nil
}
