package app

import (
	"fmt"

	"github.com/fernandomesquita/stenopro/bootstrap"
	"github.com/fernandomesquita/stenopro/correction"
	"github.com/fernandomesquita/stenopro/llm"
	"github.com/fernandomesquita/stenopro/llm/anthropic"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/transcription"
	"github.com/fernandomesquita/stenopro/transcription/groq"
	"github.com/fernandomesquita/stenopro/transcription/whisper"
)

// providers are the external backends one run calls.
type providers struct {
	transcriber transcription.Provider
	corrector   correction.Provider
	credentials []provider.CredentialChecker
}

// newProviders builds the configured backends and wraps them with timeouts
// and resilience. Credentials are not checked here; a missing key fails the
// run, not the startup.
func newProviders(cfg *Config) (*providers, error) {
	var checkers []provider.CredentialChecker

	reg := transcription.NewRegistry()
	reg.RegisterFactory(groq.ProviderName, func() (transcription.Provider, error) {
		p, err := groq.New(cfg.Transcription.Groq, cfg.Transcription.Timeout)
		if err != nil {
			return nil, err
		}
		checkers = append(checkers, p)
		return p, nil
	})
	reg.RegisterFactory(whisper.ProviderName, func() (transcription.Provider, error) {
		return whisper.New(cfg.Transcription.Whisper, cfg.Transcription.Timeout)
	})
	backend, err := reg.Create(cfg.Transcription.Provider)
	if err != nil {
		return nil, fmt.Errorf("transcription provider: %w", err)
	}

	adapter, err := llm.New(cfg.Correction.LLMConfig())
	if err != nil {
		return nil, fmt.Errorf("correction provider: %w", err)
	}
	checkers = append(checkers, adapter)

	return &providers{
		transcriber: transcription.Wrap(backend, cfg.Transcription.Timeout, cfg.Transcription.Resilience()),
		corrector:   correction.Wrap(correction.New(adapter), cfg.Correction.Timeout, cfg.Correction.Resilience()),
		credentials: checkers,
	}, nil
}

// trackClients lists the configured backends in the startup summary.
func trackClients(s *bootstrap.Summary, cfg *Config) {
	status := func(key string) string {
		if key == "" {
			return "no credentials"
		}
		return "configured"
	}

	switch cfg.Transcription.Provider {
	case groq.ProviderName:
		s.TrackClient("Groq Whisper", cfg.Transcription.Groq.BaseURL, status(cfg.Transcription.Groq.APIKey), "http")
	case whisper.ProviderName:
		s.TrackClient("Whisper sidecar", cfg.Transcription.Whisper.URL, "configured", "http")
	}

	llmCfg := cfg.Correction.LLMConfig()
	llmStatus := "configured"
	if cfg.Correction.Provider == anthropic.DialectName {
		llmStatus = status(cfg.Correction.Anthropic.APIKey)
	}
	s.TrackClient("LLM "+llmCfg.Dialect, llmCfg.BaseURL, llmStatus, "http")
}
