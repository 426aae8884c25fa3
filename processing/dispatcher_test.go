package processing

import (
	"context"
	"testing"
	"time"

	"github.com/fernandomesquita/stenopro/component"
	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/transcript"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.MaxConcurrentRuns != 4 || cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	d := NewDispatcher(h.orch, Config{MaxConcurrentRuns: 2})

	if err := d.Dispatch(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	d.Wait()

	if rec := h.get(t, 1); rec.Status != transcript.StatusReady {
		t.Errorf("status = %s", rec.Status)
	}
}

func TestDispatcher_RunOutlivesRequestContext(t *testing.T) {
	h := newHarness(t)
	h.stt.gate = make(chan struct{})
	h.seed(t, 1, "a.mp3", true)
	d := NewDispatcher(h.orch, Config{})

	reqCtx, cancel := context.WithCancel(context.Background())
	if err := d.Dispatch(reqCtx, 1); err != nil {
		t.Fatal(err)
	}
	cancel()
	close(h.stt.gate)
	d.Wait()

	if rec := h.get(t, 1); rec.Status != transcript.StatusReady {
		t.Errorf("status = %s, run must not inherit request cancellation", rec.Status)
	}
}

func TestDispatcher_ReprocessPreconditionsAreSynchronous(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "gone.mp3", false)
	d := NewDispatcher(h.orch, Config{})

	if err := d.DispatchReprocess(ctx, 1); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if err := d.DispatchReprocess(ctx, 99); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown record, got %v", err)
	}

	h.seed(t, 2, "b.mp3", true)
	unlock, err := h.locker.Acquire(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.DispatchReprocess(ctx, 2); !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	unlock()
}

func TestDispatcher_ReprocessHoldsLockUntilRunEnds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}

	h.stt.gate = make(chan struct{})
	d := NewDispatcher(h.orch, Config{})
	if err := d.DispatchReprocess(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if rec := h.get(t, 1); rec.Status != transcript.StatusUploading && rec.Status != transcript.StatusTranscribing {
		t.Errorf("status after reset = %s", rec.Status)
	}
	if err := d.DispatchReprocess(ctx, 1); !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		t.Errorf("second reprocess while running: expected CONFLICT, got %v", err)
	}

	close(h.stt.gate)
	d.Wait()
	if h.locker.Held(1) {
		t.Error("lock must be released when the run ends")
	}
	if rec := h.get(t, 1); rec.Status != transcript.StatusReady {
		t.Errorf("status = %s", rec.Status)
	}
}

func TestDispatcher_BoundsConcurrency(t *testing.T) {
	h := newHarness(t)
	h.stt.gate = make(chan struct{})
	for id := uint(1); id <= 3; id++ {
		h.seed(t, id, "a.mp3", true)
	}
	d := NewDispatcher(h.orch, Config{MaxConcurrentRuns: 1})

	for id := uint(1); id <= 3; id++ {
		if err := d.Dispatch(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.stt.calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if got := h.stt.calls.Load(); got != 1 {
		t.Errorf("transcriber calls = %d, want 1 while the slot is held", got)
	}
	if got := d.InFlight(); got != 1 {
		t.Errorf("in flight = %d", got)
	}

	close(h.stt.gate)
	d.Wait()
	if got := h.stt.calls.Load(); got != 3 {
		t.Errorf("transcriber calls = %d, want 3", got)
	}
}

func TestDispatcher_Shutdown(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	d := NewDispatcher(h.orch, Config{})

	if got := d.Health(context.Background()).Status; got != component.StatusHealthy {
		t.Errorf("health = %s", got)
	}
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(context.Background(), 1); !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("dispatch after shutdown: got %v", err)
	}
	if err := d.DispatchReprocess(context.Background(), 1); !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("reprocess after shutdown: got %v", err)
	}
	if got := d.Health(context.Background()).Status; got != component.StatusUnhealthy {
		t.Errorf("health after shutdown = %s", got)
	}
}

func TestDispatcher_ShutdownCancelsStragglers(t *testing.T) {
	h := newHarness(t)
	h.stt.gate = make(chan struct{})
	h.seed(t, 1, "a.mp3", true)
	d := NewDispatcher(h.orch, Config{})

	if err := d.Dispatch(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.stt.calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); err == nil {
		t.Fatal("expected the drain to time out")
	}
	if rec := h.get(t, 1); rec.Status != transcript.StatusError {
		t.Errorf("cancelled run should record a failure, status = %s", rec.Status)
	}
}

func TestDispatcher_ShutdownFailsQueuedRuns(t *testing.T) {
	h := newHarness(t)
	h.stt.gate = make(chan struct{})
	h.seed(t, 1, "a.mp3", true)
	h.seed(t, 2, "b.mp3", true)
	d := NewDispatcher(h.orch, Config{MaxConcurrentRuns: 1})

	for id := uint(1); id <= 2; id++ {
		if err := d.Dispatch(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.stt.calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = d.Shutdown(ctx)

	if got := h.stt.calls.Load(); got != 1 {
		t.Errorf("transcriber calls = %d, the queued run must not start", got)
	}
	for id := uint(1); id <= 2; id++ {
		rec := h.get(t, id)
		if rec.Status != transcript.StatusError || rec.ErrorMessage == nil {
			t.Errorf("record %d = %s %s", id, rec.Status, str(rec.ErrorMessage))
		}
	}
	if got := str(h.get(t, 2).ErrorMessage); got != msgNotStarted {
		t.Errorf("queued record errorMessage = %q", got)
	}
}

func TestDispatcher_ReprocessDuringShutdownKeepsRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(h.orch, Config{})
	if err := d.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	if err := d.DispatchReprocess(ctx, 1); !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if rec := h.get(t, 1); rec.Status != transcript.StatusReady || rec.RawText == nil {
		t.Errorf("refused reprocess reset the record: %s raw=%s", rec.Status, str(rec.RawText))
	}
	if h.locker.Held(1) {
		t.Error("refused reprocess must not hold the lock")
	}
}
