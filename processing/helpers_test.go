package processing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fernandomesquita/stenopro/correction"
	"github.com/fernandomesquita/stenopro/database/testutil"
	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/storage/local"
	"github.com/fernandomesquita/stenopro/transcript"
	"github.com/fernandomesquita/stenopro/transcription"
)

var fixedNow = time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)

type fakeTranscriber struct {
	text     string
	duration float64
	err      error
	// gate, when set, blocks Execute until it is closed.
	gate  chan struct{}
	calls atomic.Int32

	mu   sync.Mutex
	reqs []transcription.Request
}

func (f *fakeTranscriber) Name() string                     { return "fake-stt" }
func (f *fakeTranscriber) IsAvailable(context.Context) bool { return true }

func (f *fakeTranscriber) Execute(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &transcription.Response{Text: f.text, Duration: f.duration}, nil
}

type fakeCorrector struct {
	text string
	err  error
	// hang blocks until the context ends.
	hang bool
	// during runs inside Execute, simulating a concurrent writer.
	during func(ctx context.Context)
	calls  atomic.Int32

	mu   sync.Mutex
	reqs []correction.Request
}

func (f *fakeCorrector) Name() string                     { return "fake-llm" }
func (f *fakeCorrector) IsAvailable(context.Context) bool { return true }

func (f *fakeCorrector) Execute(ctx context.Context, req correction.Request) (*correction.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.during != nil {
		f.during(ctx)
	}
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &correction.Response{Text: f.text, Model: "fake", InputTokens: 10, OutputTokens: 5}, nil
}

func (f *fakeCorrector) lastRequest(t *testing.T) correction.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		t.Fatal("corrector was not called")
	}
	return f.reqs[len(f.reqs)-1]
}

type credentialFunc func() error

func (f credentialFunc) CheckCredentials() error { return f() }

type harness struct {
	records  *transcript.Store
	glossary *glossary.Store
	prompts  *prompt.SystemStore
	blobs    *local.Storage
	stt      *fakeTranscriber
	llm      *fakeCorrector
	events   *events.Recorder
	locker   *LocalLocker
	deps     Deps
	orch     *Orchestrator
}

func newHarness(t *testing.T, opts ...func(*harness)) *harness {
	t.Helper()
	db := testutil.Open(t, &transcript.Transcription{}, &glossary.Entry{}, &prompt.SystemPrompt{})
	blobs, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		records:  transcript.NewStore(db),
		glossary: glossary.NewStore(db),
		prompts:  prompt.NewSystemStore(db),
		blobs:    blobs,
		stt:      &fakeTranscriber{text: "ola mundo", duration: 12},
		llm:      &fakeCorrector{text: "Olá, mundo. (Fim da transcrição)"},
		events:   &events.Recorder{},
		locker:   NewLocalLocker(),
	}
	h.deps = Deps{
		Records:     h.records,
		Blobs:       h.blobs,
		Transcriber: h.stt,
		Corrector:   h.llm,
		Prompts:     h.prompts,
		Glossary:    h.glossary,
		Locker:      h.locker,
		Events:      h.events,
		Clock:       func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(h)
	}
	h.orch, err = New(h.deps)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

// wrapCorrector applies the production middleware chain with timeout d.
func wrapCorrector(d time.Duration) func(*harness) {
	return func(h *harness) {
		h.deps.Corrector = correction.Wrap(h.llm, d, provider.ResilienceConfig{})
	}
}

// seed inserts an uploading record with the given id and, when withAudio is
// set, writes its audio blob.
func (h *harness) seed(t *testing.T, id uint, filename string, withAudio bool) *transcript.Transcription {
	t.Helper()
	if withAudio {
		if err := os.WriteFile(filepath.Join(h.blobs.BasePath(), filename), []byte("ID3fake"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	started := fixedNow.Add(-time.Minute)
	rec := &transcript.Transcription{
		ID:                  id,
		Title:               "Sessão plenária",
		AudioFilename:       filename,
		ProcessingStartedAt: &started,
	}
	if err := h.records.Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func (h *harness) get(t *testing.T, id uint) *transcript.Transcription {
	t.Helper()
	rec, err := h.records.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func str(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func strp(s string) *string { return &s }
