package storage

import (
	"errors"
	"fmt"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Default configuration values.
const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "./uploads"
	DefaultRegion   = "us-east-1"
)

// Config holds storage configuration.
type Config struct {
	// Provider selects the storage backend: "local" or "s3".
	Provider string      `mapstructure:"provider" yaml:"provider"`
	Local    LocalConfig `mapstructure:"local" yaml:"local"`
	S3       S3Config    `mapstructure:"s3" yaml:"s3"`
}

// LocalConfig configures the filesystem backend.
type LocalConfig struct {
	// BasePath is the upload directory, created on start.
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Region string `mapstructure:"region" yaml:"region"`
	// Endpoint is a custom S3-compatible endpoint such as MinIO.
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	// Prefix is prepended to every key, e.g. "audio/".
	Prefix         string `mapstructure:"prefix" yaml:"prefix"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Local.BasePath == "" {
		c.Local.BasePath = DefaultBasePath
	}
	if c.S3.Region == "" {
		c.S3.Region = DefaultRegion
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.Local.BasePath == "" {
			return errors.New("storage: local.base_path is required for local provider")
		}
	case ProviderS3:
		var errs []error
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("storage: s3.bucket is required for s3 provider"))
		}
		if c.S3.Region == "" {
			errs = append(errs, errors.New("storage: s3.region is required for s3 provider"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", errors.Join(errs...))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}
