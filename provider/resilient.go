package provider

import (
	"context"
	"errors"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/resilience"
)

// ResilienceConfig bundles optional resilience policies. Nil fields are skipped.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
	RateLimiter    *resilience.RateLimiterConfig
	Bulkhead       *resilience.BulkheadConfig
}

// IsEmpty returns true if no resilience policies are configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// WithResilience wraps p in RateLimiter → Bulkhead → CircuitBreaker → Retry.
// An empty config returns p unchanged.
func WithResilience[I, O any](name string, cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		r := &resilientRR[I, O]{inner: inner, retry: cfg.Retry}
		if cfg.CircuitBreaker != nil {
			r.cb = resilience.NewCircuitBreaker(name, *cfg.CircuitBreaker)
		}
		if cfg.RateLimiter != nil {
			r.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
		}
		if cfg.Bulkhead != nil {
			r.bh = resilience.NewBulkhead(name, *cfg.Bulkhead)
		}
		return r
	}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	cb    *resilience.CircuitBreaker
	rl    *resilience.RateLimiter
	bh    *resilience.Bulkhead
	retry *resilience.RetryConfig
}

func (r *resilientRR[I, O]) Name() string                         { return r.inner.Name() }
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool { return r.inner.IsAvailable(ctx) }

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	var zero O
	if r.rl != nil {
		if err := r.rl.Wait(ctx); err != nil {
			return zero, err
		}
	}
	if r.bh != nil {
		release, err := r.bh.Acquire(ctx)
		if err != nil {
			return zero, wrapResilienceError(r.inner.Name(), err)
		}
		defer release()
	}

	call := func(ctx context.Context) (O, error) { return r.inner.Execute(ctx, input) }
	if r.cb != nil {
		next := call
		call = func(ctx context.Context) (O, error) {
			var out O
			var callErr error
			err := r.cb.Execute(func() error {
				out, callErr = next(ctx)
				return callErr
			})
			if err != nil && callErr == nil {
				return out, wrapResilienceError(r.inner.Name(), err)
			}
			return out, callErr
		}
	}
	if r.retry != nil {
		return resilience.Retry(ctx, *r.retry, call)
	}
	return call(ctx)
}

func wrapResilienceError(name string, err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable(name).WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull):
		return apperrors.ServiceUnavailable(name).WithCause(err).WithDetail("reason", "concurrency limit reached")
	default:
		return err
	}
}
