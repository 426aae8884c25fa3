package transcription

import (
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/provider"
)

// Provider is a speech-to-text backend.
type Provider = provider.RequestResponse[Request, *Response]

// NewRegistry creates a registry of transcription backends.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}

// Wrap layers logging, tracing, the transcription timeout and resilience
// around a backend. The timeout covers every retry.
func Wrap(p Provider, timeout time.Duration, res provider.ResilienceConfig) Provider {
	name := p.Name()
	return provider.Chain(
		provider.WithLogging[Request, *Response](logger.Get("transcription")),
		provider.WithTracing[Request, *Response]("transcription"),
		provider.WithTimeout[Request, *Response](timeout, func(err error) error {
			return apperrors.ProviderTimeout(name, timeout).WithCause(err)
		}),
		provider.WithResilience[Request, *Response](name, res),
	)(p)
}

// Resilience returns the retry and circuit breaker policy for the
// configured backend. Only failures httpclient classifies as retryable are
// retried.
func (c Config) Resilience() provider.ResilienceConfig {
	retry := httpclient.DefaultRetryConfig()
	retry.MaxAttempts = c.MaxAttempts
	return provider.ResilienceConfig{
		Retry:          retry,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(),
	}
}
