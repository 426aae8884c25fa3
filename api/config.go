package api

import (
	"fmt"

	"github.com/fernandomesquita/stenopro/server"
)

// DefaultMaxUploadSize is the largest accepted audio upload.
const DefaultMaxUploadSize = "100MB"

// DefaultMimeTypes are the accepted audio content types.
var DefaultMimeTypes = []string{
	"audio/mpeg", "audio/mp3", "audio/wav", "audio/ogg", "audio/x-wav", "audio/wave",
}

// UploadConfig bounds audio uploads.
type UploadConfig struct {
	MaxSize   string   `mapstructure:"max_size" yaml:"max_size"`
	MimeTypes []string `mapstructure:"mime_types" yaml:"mime_types"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *UploadConfig) ApplyDefaults() {
	if c.MaxSize == "" {
		c.MaxSize = DefaultMaxUploadSize
	}
	if len(c.MimeTypes) == 0 {
		c.MimeTypes = append([]string(nil), DefaultMimeTypes...)
	}
}

// Validate checks the configuration.
func (c *UploadConfig) Validate() error {
	n, err := server.ParseSize(c.MaxSize)
	if err != nil {
		return fmt.Errorf("max_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	return nil
}

// MaxBytes returns MaxSize in bytes, zero when it does not parse.
func (c *UploadConfig) MaxBytes() int64 {
	n, _ := server.ParseSize(c.MaxSize)
	return n
}

func (c *UploadConfig) allows(mime string) bool {
	for _, m := range c.MimeTypes {
		if m == mime {
			return true
		}
	}
	return false
}
