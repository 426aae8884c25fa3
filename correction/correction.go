package correction

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/llm"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/provider"
)

// Request is the input of one correction.
type Request struct {
	RawText string
	// SystemPrompt is the resolved instruction text: the record's custom
	// prompt, the active system prompt or DefaultSystemPrompt.
	SystemPrompt string
	Glossary     []GlossaryEntry
}

// Response is the corrected text with token usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider revises a raw transcript.
type Provider = provider.RequestResponse[Request, *Response]

// New adapts an LLM backend into a correction Provider. The whole prompt is
// sent as a single user message.
func New(backend llm.Provider) Provider {
	return provider.Adapt[Request, *Response, llm.CompletionRequest, *llm.CompletionResponse](
		backend,
		backend.Name(),
		func(_ context.Context, req Request) (llm.CompletionRequest, error) {
			system := req.SystemPrompt
			if strings.TrimSpace(system) == "" {
				system = DefaultSystemPrompt
			}
			prompt := BuildPrompt(system, req.RawText, FormatGlossary(req.Glossary))
			return llm.CompletionRequest{Messages: llm.UserMessage(prompt)}, nil
		},
		func(_ Request, out *llm.CompletionResponse) (*Response, error) {
			return &Response{
				Text:         out.Content,
				Model:        out.Model,
				InputTokens:  out.Usage.PromptTokens,
				OutputTokens: out.Usage.CompletionTokens,
			}, nil
		},
	)
}

// Wrap layers logging, tracing, the correction timeout and resilience
// around p. The timeout covers every retry and maps to PROVIDER_TIMEOUT.
func Wrap(p Provider, timeout time.Duration, res provider.ResilienceConfig) Provider {
	name := p.Name()
	return provider.Chain(
		provider.WithLogging[Request, *Response](logger.Get("correction")),
		provider.WithTracing[Request, *Response]("correction"),
		provider.WithTimeout[Request, *Response](timeout, func(err error) error {
			return apperrors.ProviderTimeout(name, timeout).WithCause(err)
		}),
		provider.WithResilience[Request, *Response](name, res),
	)(p)
}
