package provider

import (
	"context"
	"errors"
	"time"
)

// WithTimeout bounds each Execute call by d. When the bound elapses while
// the caller's own context is still live, the error is replaced by
// onTimeout(err) so callers see a provider timeout rather than a transport
// error.
func WithTimeout[I, O any](d time.Duration, onTimeout func(error) error) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if d <= 0 {
			return inner
		}
		return &timeoutRR[I, O]{inner: inner, timeout: d, onTimeout: onTimeout}
	}
}

type timeoutRR[I, O any] struct {
	inner     RequestResponse[I, O]
	timeout   time.Duration
	onTimeout func(error) error
}

func (t *timeoutRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *timeoutRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *timeoutRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	output, err := t.inner.Execute(callCtx, input)
	if err == nil {
		return output, nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && t.onTimeout != nil {
		return output, t.onTimeout(err)
	}
	return output, err
}
