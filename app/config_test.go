package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fernandomesquita/stenopro/config"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(config.WithConfigFile(path), config.WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg := loadFrom(t, `
environment: staging
transcription:
  provider: whisper
  timeout: 2m
pipeline:
  max_concurrent_runs: 2
upload:
  max_size: 50MB
`)
	if cfg.Name != ServiceName || cfg.Environment != "staging" {
		t.Errorf("service = %q/%q", cfg.Name, cfg.Environment)
	}
	if cfg.Transcription.Provider != "whisper" || cfg.Transcription.Timeout != 2*time.Minute {
		t.Errorf("transcription = %+v", cfg.Transcription)
	}
	if cfg.Pipeline.MaxConcurrentRuns != 2 {
		t.Errorf("max_concurrent_runs = %d", cfg.Pipeline.MaxConcurrentRuns)
	}
	if cfg.Upload.MaxBytes() != 50<<20 {
		t.Errorf("upload max = %d", cfg.Upload.MaxBytes())
	}
	if cfg.Correction.Provider != "anthropic" || cfg.Correction.Timeout != 5*time.Minute {
		t.Errorf("correction defaults = %+v", cfg.Correction)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvAliases(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("DATABASE_URL", "postgres://steno@localhost/steno")
	t.Setenv("STORAGE_DIR", "/var/lib/stenopro/uploads")
	t.Setenv("PORT", "8080")

	cfg := loadFrom(t, "database:\n  driver: postgres\n")
	if cfg.Transcription.Groq.APIKey != "gsk-test" {
		t.Errorf("groq key = %q", cfg.Transcription.Groq.APIKey)
	}
	if cfg.Correction.Anthropic.APIKey != "sk-ant-test" {
		t.Errorf("anthropic key = %q", cfg.Correction.Anthropic.APIKey)
	}
	if cfg.Database.DSN != "postgres://steno@localhost/steno" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Storage.Local.BasePath != "/var/lib/stenopro/uploads" {
		t.Errorf("base path = %q", cfg.Storage.Local.BasePath)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoad_PrefixedVariableWinsOverAlias(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STENOPRO_SERVER_PORT", "9090")

	cfg := loadFrom(t, "")
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestConfig_ValidateNamesSection(t *testing.T) {
	tests := []struct {
		section string
		mutate  func(*Config)
	}{
		{"transcription", func(c *Config) { c.Transcription.Provider = "azure" }},
		{"correction", func(c *Config) { c.Correction.Provider = "openai" }},
		{"upload", func(c *Config) { c.Upload.MaxSize = "lots" }},
		{"auth", func(c *Config) { c.Auth.Enabled = true }},
		{"pipeline", func(c *Config) { c.Pipeline.MaxConcurrentRuns = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.HasPrefix(err.Error(), tt.section+":") {
				t.Errorf("Validate() = %v, want %s error", err, tt.section)
			}
		})
	}
}
