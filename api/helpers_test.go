package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/database/testutil"
	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/sse"
	"github.com/fernandomesquita/stenopro/storage/local"
	"github.com/fernandomesquita/stenopro/transcript"
)

func init() { gin.SetMode(gin.TestMode) }

var fixedNow = time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC)

// mp3Header is an ID3v2.3 tag header followed by padding.
var mp3Header = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), bytes.Repeat([]byte{0}, 64)...)

type fakeRunner struct {
	mu          sync.Mutex
	dispatched  []uint
	reprocessed []uint
	err         error
}

func (f *fakeRunner) Dispatch(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, id)
	return f.err
}

func (f *fakeRunner) DispatchReprocess(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reprocessed = append(f.reprocessed, id)
	return nil
}

type fixture struct {
	records   *transcript.Store
	glossary  *glossary.Store
	prompts   *prompt.SystemStore
	templates *prompt.TemplateStore
	blobs     *local.Storage
	runner    *fakeRunner
	hub       *sse.Hub
	router    *gin.Engine
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	db := testutil.Open(t, &transcript.Transcription{}, &glossary.Entry{}, &prompt.SystemPrompt{}, &prompt.Template{})
	blobs, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	f := &fixture{
		records:   transcript.NewStore(db),
		glossary:  glossary.NewStore(db),
		prompts:   prompt.NewSystemStore(db),
		templates: prompt.NewTemplateStore(db),
		blobs:     blobs,
		runner:    &fakeRunner{},
		hub:       hub,
	}
	deps := Deps{
		Records:   f.records,
		Glossary:  f.glossary,
		Prompts:   f.prompts,
		Templates: f.templates,
		Blobs:     f.blobs,
		Runner:    f.runner,
		Hub:       hub,
		Clock:     func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.router = gin.New()
	New(deps).Register(f.router)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) json(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

func (f *fixture) seed(t *testing.T, title string, status transcript.Status) *transcript.Transcription {
	t.Helper()
	rec := &transcript.Transcription{Title: title, AudioFilename: "seed.mp3", Status: status}
	if err := f.records.Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

type upload struct {
	fields      map[string]string
	filename    string
	contentType string
	data        []byte
	noFile      bool
}

func multipartRequest(t *testing.T, u upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range u.fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if !u.noFile {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="audio"; filename="`+u.filename+`"`)
		if u.contentType != "" {
			h.Set("Content-Type", u.contentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(u.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  json.RawMessage `json:"meta"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int) envelope {
	t.Helper()
	if rr.Code != wantStatus {
		t.Fatalf("status = %d, want %d (%s)", rr.Code, wantStatus, rr.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON: %v (%s)", err, rr.Body.String())
	}
	return env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	env := decode(t, rr, status)
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q (%s)", env.Error.Code, code, env.Error.Message)
	}
}
