package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	errs   []error
	msgs   []kafkago.Message
	calls  int
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		if err != nil {
			return err
		}
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Stats() kafkago.WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return kafkago.WriterStats{Writes: int64(len(w.msgs))}
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() events.Event {
	return events.Event{
		Type:            events.TypeStatusChanged,
		TranscriptionID: 42,
		Status:          "correcting",
		ProgressPercent: 60,
		ProgressMessage: "Corrigindo texto…",
		At:              time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMessage_KeyAndValue(t *testing.T) {
	msg, err := Message(sampleEvent())
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Key) != "42" {
		t.Errorf("key = %q, want 42", msg.Key)
	}
	var decoded events.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded.Status != "correcting" || decoded.ProgressPercent != 60 {
		t.Errorf("decoded = %+v", decoded)
	}
	if msg.Headers[0].Key != "event-type" || string(msg.Headers[0].Value) != events.TypeStatusChanged {
		t.Errorf("headers = %+v", msg.Headers)
	}
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(Config{Enabled: true}, w, logger.Nop())

	p.Publish(context.Background(), sampleEvent())

	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "42" {
		t.Fatalf("messages = %+v", w.msgs)
	}
	if p.Failed() != 0 {
		t.Errorf("Failed() = %d", p.Failed())
	}
	if p.Stats().Writes != 1 {
		t.Errorf("Stats().Writes = %d", p.Stats().Writes)
	}
}

func TestPublisher_RetriesRetryableErrors(t *testing.T) {
	w := &fakeWriter{errs: []error{errors.New("connection refused"), nil}}
	p := NewPublisherWithWriter(Config{Enabled: true, Retries: 3}, w, logger.Nop())

	p.Publish(context.Background(), sampleEvent())

	if w.calls != 2 {
		t.Errorf("calls = %d, want 2", w.calls)
	}
	if p.Failed() != 0 {
		t.Errorf("Failed() = %d, want 0", p.Failed())
	}
}

func TestPublisher_PermanentErrorIsCountedNotRetried(t *testing.T) {
	w := &fakeWriter{errs: []error{errors.New("message too large")}}
	p := NewPublisherWithWriter(Config{Enabled: true, Retries: 3}, w, logger.Nop())

	p.Publish(context.Background(), sampleEvent())

	if w.calls != 1 {
		t.Errorf("calls = %d, want 1", w.calls)
	}
	if p.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", p.Failed())
	}
}

func TestPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(Config{Enabled: true}, w, logger.Nop())
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}

	p.Publish(context.Background(), sampleEvent())
	if p.Failed() != 1 {
		t.Error("publishing after close should count as a failure")
	}
}

func TestNewPublisher_Disabled(t *testing.T) {
	if _, err := NewPublisher(Config{}, logger.Nop()); err == nil {
		t.Error("expected error for disabled kafka")
	}
}

func TestNewPublisher_LazyWriter(t *testing.T) {
	p, err := NewPublisher(Config{Enabled: true}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if p.writer != nil {
		t.Error("writer should be created on first publish")
	}
	if p.Stats().Writes != 0 {
		t.Error("stats before first publish should be zero")
	}
}
