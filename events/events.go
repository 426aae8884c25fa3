// Package events carries transcription lifecycle notifications from the
// pipeline to subscribers (SSE clients, Kafka consumers).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/fernandomesquita/stenopro/logger"
)

// Event types.
const (
	TypeStatusChanged = "transcription.status_changed"
	TypeCompleted     = "transcription.completed"
	TypeFailed        = "transcription.failed"
)

// Event is a persisted transition of one transcription.
type Event struct {
	Type            string    `json:"type"`
	TranscriptionID uint      `json:"transcriptionId"`
	Status          string    `json:"status"`
	ProgressPercent int       `json:"progressPercent"`
	ProgressMessage string    `json:"progressMessage"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	At              time.Time `json:"at"`
}

// Publisher delivers events. Implementations log their own failures;
// publishing never fails a run.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) {}

// Multi fans an event out to several publishers in order. A publisher that
// panics is logged and skipped.
type Multi []Publisher

// Publish sends e to every publisher.
func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		if p == nil {
			continue
		}
		publishSafely(ctx, p, e)
	}
}

func publishSafely(ctx context.Context, p Publisher, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get("events").Error("Publisher panicked", logger.Fields(
				logger.FieldTranscriptionID, e.TranscriptionID,
				"type", e.Type,
				"panic", r,
			))
		}
	}()
	p.Publish(ctx, e)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends e.
func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Statuses returns the status of each recorded event in order.
func (r *Recorder) Statuses() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Status
	}
	return out
}
