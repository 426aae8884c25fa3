package transcription

import (
	"fmt"
	"time"
)

// Request holds parameters for a transcription call.
type Request struct {
	// AudioPath is a local file path to the audio.
	AudioPath string `json:"audio_path"`
	// FileName is the name sent to the backend. Defaults to the base of AudioPath.
	FileName string `json:"file_name,omitempty"`
	// ContentType is the audio MIME type, if known.
	ContentType string `json:"content_type,omitempty"`
	// Language overrides the configured language (ISO 639-1, e.g. "pt").
	Language string `json:"language,omitempty"`
	// Model overrides the configured model.
	Model string `json:"model,omitempty"`
}

// Response holds the result of a transcription call.
type Response struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Segment is a time-aligned portion of a transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// DurationSeconds returns the duration rounded to whole seconds. When the
// backend reports no duration the end of the last segment is used.
func (r *Response) DurationSeconds() int {
	d := r.Duration
	if d <= 0 && len(r.Segments) > 0 {
		d = r.Segments[len(r.Segments)-1].End
	}
	return int(d + 0.5)
}

// Config is the transcription section of the service configuration.
type Config struct {
	// Provider selects the backend: "groq" or "whisper".
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Timeout bounds one transcription call, retries included.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxAttempts is the number of attempts for retryable failures.
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Groq        GroqConfig    `yaml:"groq" mapstructure:"groq"`
	Whisper     WhisperConfig `yaml:"whisper" mapstructure:"whisper"`
}

// GroqConfig configures the Groq backend.
type GroqConfig struct {
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Language    string  `yaml:"language" mapstructure:"language"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// WhisperConfig configures the self-hosted faster-whisper sidecar.
type WhisperConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	Model    string `yaml:"model" mapstructure:"model"`
	Language string `yaml:"language" mapstructure:"language"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "groq"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Groq.Model == "" {
		c.Groq.Model = "whisper-large-v3"
	}
	if c.Groq.Language == "" {
		c.Groq.Language = "pt"
	}
	if c.Whisper.URL == "" {
		c.Whisper.URL = "http://localhost:8387"
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "large-v3"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "pt"
	}
}

// Validate checks the provider name. Missing credentials are not a
// configuration load error; they surface per run.
func (c *Config) Validate() error {
	switch c.Provider {
	case "groq", "whisper":
		return nil
	default:
		return fmt.Errorf("transcription.provider must be groq or whisper, got %q", c.Provider)
	}
}
