package provider

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/resilience"
)

type echoProvider struct {
	name  string
	calls int
	fn    func(ctx context.Context, in string) (string, error)
}

func (p *echoProvider) Name() string                       { return p.name }
func (p *echoProvider) IsAvailable(_ context.Context) bool { return true }
func (p *echoProvider) Execute(ctx context.Context, in string) (string, error) {
	p.calls++
	if p.fn != nil {
		return p.fn(ctx, in)
	}
	return "echo:" + in, nil
}

type orderTracker struct {
	inner RequestResponse[string, string]
	tag   string
	order *[]string
}

func (o *orderTracker) Name() string                         { return o.inner.Name() }
func (o *orderTracker) IsAvailable(ctx context.Context) bool { return o.inner.IsAvailable(ctx) }
func (o *orderTracker) Execute(ctx context.Context, in string) (string, error) {
	*o.order = append(*o.order, o.tag+":before")
	out, err := o.inner.Execute(ctx, in)
	*o.order = append(*o.order, o.tag+":after")
	return out, err
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware[string, string] {
		return func(inner RequestResponse[string, string]) RequestResponse[string, string] {
			return &orderTracker{inner: inner, tag: tag, order: &order}
		}
	}

	wrapped := Chain(mw("A"), mw("B"))(&echoProvider{name: "groq"})
	if _, err := wrapped.Execute(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	want := []string{"A:before", "B:before", "B:after", "A:after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
	if wrapped.Name() != "groq" {
		t.Errorf("name = %q", wrapped.Name())
	}
}

func TestChain_Empty(t *testing.T) {
	out, err := Chain[string, string]()(&echoProvider{name: "p"}).Execute(context.Background(), "hi")
	if err != nil || out != "echo:hi" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestWithLogging_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "test", &buf)
	p := &echoProvider{name: "anthropic", fn: func(context.Context, string) (string, error) {
		return "", errors.New("overloaded")
	}}

	_, err := WithLogging[string, string](log)(p).Execute(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	out := buf.String()
	if !strings.Contains(out, "provider call failed") || !strings.Contains(out, "anthropic") || !strings.Contains(out, "overloaded") {
		t.Errorf("unexpected log %q", out)
	}
}

func TestWithTimeout_MapsDeadline(t *testing.T) {
	p := &echoProvider{name: "anthropic", fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	wrapped := WithTimeout[string, string](10*time.Millisecond, func(err error) error {
		return apperrors.ProviderTimeout("anthropic", 10*time.Millisecond).WithCause(err)
	})(p)

	_, err := wrapped.Execute(context.Background(), "x")
	if !apperrors.HasCode(err, apperrors.ErrCodeProviderTimeout) {
		t.Fatalf("expected provider timeout, got %v", err)
	}
}

func TestWithTimeout_CallerCancelNotMapped(t *testing.T) {
	p := &echoProvider{name: "p", fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	mapped := false
	wrapped := WithTimeout[string, string](time.Minute, func(err error) error { mapped = true; return err })(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := wrapped.Execute(ctx, "x")
	if !errors.Is(err, context.Canceled) || mapped {
		t.Errorf("caller cancellation should pass through, got %v mapped=%v", err, mapped)
	}
}

func TestWithTimeout_ZeroDisables(t *testing.T) {
	p := &echoProvider{name: "p"}
	if WithTimeout[string, string](0, nil)(p) != RequestResponse[string, string](p) {
		t.Error("zero timeout should return the provider unchanged")
	}
}

func TestWithResilience_Retries(t *testing.T) {
	attempts := 0
	p := &echoProvider{name: "groq", fn: func(context.Context, string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("503")
		}
		return "ok", nil
	}}
	retry := resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	out, err := WithResilience[string, string]("groq", ResilienceConfig{Retry: &retry})(p).Execute(context.Background(), "x")
	if err != nil || out != "ok" || attempts != 3 {
		t.Fatalf("got %q, %v after %d attempts", out, err, attempts)
	}
}

func TestWithResilience_OpenCircuitIsServiceUnavailable(t *testing.T) {
	p := &echoProvider{name: "groq", fn: func(context.Context, string) (string, error) {
		return "", errors.New("down")
	}}
	wrapped := WithResilience[string, string]("groq", ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour},
	})(p)

	_, _ = wrapped.Execute(context.Background(), "x")
	_, err := wrapped.Execute(context.Background(), "x")
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestWithResilience_EmptyIsPassthrough(t *testing.T) {
	p := &echoProvider{name: "p"}
	if WithResilience[string, string]("p", ResilienceConfig{})(p) != RequestResponse[string, string](p) {
		t.Error("empty config should return the provider unchanged")
	}
}

func TestWithTracing_Passthrough(t *testing.T) {
	out, err := WithTracing[string, string]("stenopro")(&echoProvider{name: "p"}).Execute(context.Background(), "a")
	if err != nil || out != "echo:a" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestAdapt(t *testing.T) {
	backend := &echoProvider{name: "llm"}
	adapted := Adapt[int, int, string, string](backend, "length",
		func(_ context.Context, n int) (string, error) { return strings.Repeat("a", n), nil },
		func(n int, out string) (int, error) { return len(out) - n, nil },
	)
	got, err := adapted.Execute(context.Background(), 3)
	if err != nil || got != len("echo:") {
		t.Fatalf("got %d, %v", got, err)
	}
	if adapted.Name() != "length" || !adapted.IsAvailable(context.Background()) {
		t.Error("unexpected name or availability")
	}
}

func TestAdapt_MapInError(t *testing.T) {
	backend := &echoProvider{name: "llm"}
	adapted := Adapt[int, int, string, string](backend, "x",
		func(context.Context, int) (string, error) { return "", errors.New("bad input") },
		func(int, string) (int, error) { return 0, nil },
	)
	if _, err := adapted.Execute(context.Background(), 1); err == nil || backend.calls != 0 {
		t.Error("mapIn error should stop before the backend call")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry[*echoProvider]()
	reg.RegisterFactory("whisper", func() (*echoProvider, error) { return &echoProvider{name: "whisper"}, nil })
	reg.RegisterFactory("groq", func() (*echoProvider, error) { return &echoProvider{name: "groq"}, nil })

	p, err := reg.Create("groq")
	if err != nil || p.Name() != "groq" {
		t.Fatalf("got %v, %v", p, err)
	}
	if names := reg.List(); len(names) != 2 || names[0] != "groq" {
		t.Errorf("names = %v", names)
	}
	if _, err := reg.Create("deepgram"); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
}
