package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(2), func(ctx context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetry_RetryIfStopsEarly(t *testing.T) {
	cfg := fastRetry(5)
	cfg.RetryIf = func(error) bool { return false }
	calls := 0
	_ = RetryFunc(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errBoom
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryFunc(ctx, fastRetry(3), func(ctx context.Context) error {
		t.Fatal("fn should not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	cfg := fastRetry(3)
	var seen []int
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) { seen = append(seen, attempt) }
	_ = RetryFunc(context.Background(), cfg, func(ctx context.Context) error { return errBoom })
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v", seen)
	}
}

func TestBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, BackoffFactor: 2}
	if d := Backoff(1, cfg); d != 100*time.Millisecond {
		t.Errorf("attempt 1 = %s", d)
	}
	if d := Backoff(2, cfg); d != 200*time.Millisecond {
		t.Errorf("attempt 2 = %s", d)
	}
	if d := Backoff(5, cfg); d != 300*time.Millisecond {
		t.Errorf("attempt 5 = %s, want cap", d)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.DeadlineExceeded) {
		t.Error("deadline should not be retried")
	}
	if !DefaultRetryIf(errBoom) {
		t.Error("plain errors should be retried")
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []State
	cb := NewCircuitBreaker("groq", CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, to)
		},
	})
	cb.now = func() time.Time { return now }

	fail := func() error { return errBoom }
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("anthropic", CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(time.Second)
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Errorf("state = %s, want open", cb.State())
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	cb := NewCircuitBreaker("x", CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, errBoom) },
	})
	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateClosed {
		t.Errorf("ignored errors must not open the circuit")
	}
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := NewBulkhead("runs", BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})

	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if b.InUse() != 1 {
		t.Errorf("in use = %d", b.InUse())
	}
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	release()
	if b.InUse() != 0 {
		t.Errorf("in use after release = %d", b.InUse())
	}
}

func TestBulkhead_ContextCancelled(t *testing.T) {
	b := NewBulkhead("runs", BulkheadConfig{MaxConcurrent: 1})
	release, _ := b.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}
}

func TestBulkhead_Execute(t *testing.T) {
	b := NewBulkhead("runs", BulkheadConfig{MaxConcurrent: 2})
	var ran atomic.Bool
	if err := b.Execute(context.Background(), func() error { ran.Store(true); return nil }); err != nil {
		t.Fatal(err)
	}
	if !ran.Load() || b.InUse() != 0 {
		t.Error("execute should run fn and release its slot")
	}
	if b.MaxConcurrent() != 2 {
		t.Errorf("max = %d", b.MaxConcurrent())
	}
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(100, 0)
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 2})
	rl.now = func() time.Time { return now }
	rl.last = now

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst should allow two calls")
	}
	if rl.Allow() {
		t.Fatal("third call should be limited")
	}
	now = now.Add(500 * time.Millisecond)
	if !rl.Allow() {
		t.Error("one token should refill after 500ms at 2/s")
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}
}
