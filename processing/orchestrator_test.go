package processing

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fernandomesquita/stenopro/correction"
	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/httpclient"
	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/transcript"
)

func TestRun_Scenario(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 7, "a.mp3", true)

	if err := h.orch.Run(context.Background(), 7); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec := h.get(t, 7)
	if rec.Status != transcript.StatusReady || rec.ProgressPercent != 100 || rec.ProgressMessage != "Done" {
		t.Errorf("status = %s %d %q", rec.Status, rec.ProgressPercent, rec.ProgressMessage)
	}
	if str(rec.RawText) != "ola mundo" {
		t.Errorf("rawText = %s", str(rec.RawText))
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 12 {
		t.Errorf("durationSeconds = %v", rec.DurationSeconds)
	}
	want := "Olá, mundo. (Fim da transcrição)"
	if str(rec.CorrectedText) != want || str(rec.FinalText) != want {
		t.Errorf("corrected = %s, final = %s", str(rec.CorrectedText), str(rec.FinalText))
	}
	if rec.ErrorMessage != nil {
		t.Errorf("errorMessage = %s", str(rec.ErrorMessage))
	}
	if rec.ProcessingCompletedAt == nil || !rec.ProcessingCompletedAt.Equal(fixedNow) {
		t.Errorf("processingCompletedAt = %v", rec.ProcessingCompletedAt)
	}

	if got := h.stt.reqs[0].AudioPath; got != filepath.Join(h.blobs.BasePath(), "a.mp3") {
		t.Errorf("transcriber got path %q", got)
	}
	req := h.llm.lastRequest(t)
	if req.RawText != "ola mundo" || req.SystemPrompt != correction.DefaultSystemPrompt {
		t.Errorf("correction request = %q / prompt default=%v", req.RawText, req.SystemPrompt == correction.DefaultSystemPrompt)
	}
}

func TestRun_ProgressSequence(t *testing.T) {
	h := newHarness(t)
	rec := h.seed(t, 1, "a.mp3", true)

	if err := h.orch.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	percents := []int{rec.ProgressPercent}
	for _, e := range h.events.Events() {
		percents = append(percents, e.ProgressPercent)
	}
	if got := intsString(percents); got != "0,33,66,100" {
		t.Errorf("progress = %s, want 0,33,66,100", got)
	}
	if got := strings.Join(h.events.Statuses(), ","); got != "transcribing,correcting,ready" {
		t.Errorf("statuses = %s", got)
	}
	last := h.events.Events()[2]
	if last.Type != events.TypeCompleted || last.TranscriptionID != 1 || !last.At.Equal(fixedNow) {
		t.Errorf("last event = %+v", last)
	}
}

func TestRun_TranscriptionFails(t *testing.T) {
	h := newHarness(t)
	h.stt.err = apperrors.ProviderError("groq", &httpclient.Error{
		StatusCode: 415, Code: httpclient.ErrCodeValidation, Message: "unsupported audio",
	})
	h.seed(t, 1, "a.mp3", true)

	if err := h.orch.Run(context.Background(), 1); err != nil {
		t.Fatalf("run failures are persisted, not returned: %v", err)
	}

	rec := h.get(t, 1)
	if rec.Status != transcript.StatusError || rec.ProgressPercent != 0 || rec.ProgressMessage != "Processing failed" {
		t.Errorf("status = %s %d %q", rec.Status, rec.ProgressPercent, rec.ProgressMessage)
	}
	if rec.RawText != nil {
		t.Errorf("rawText should stay nil, got %s", str(rec.RawText))
	}
	if !strings.HasPrefix(str(rec.ErrorMessage), "Provider error:") {
		t.Errorf("errorMessage = %s", str(rec.ErrorMessage))
	}
	if h.llm.calls.Load() != 0 {
		t.Error("corrector must not run after a transcription failure")
	}
	evs := h.events.Events()
	if last := evs[len(evs)-1]; last.Type != events.TypeFailed || last.ErrorMessage != str(rec.ErrorMessage) {
		t.Errorf("failure event = %+v", last)
	}
}

func TestRun_CorrectionFailsKeepsRawText(t *testing.T) {
	h := newHarness(t)
	h.llm.err = &httpclient.Error{StatusCode: 529, Code: httpclient.ErrCodeServer, Message: "overloaded"}
	h.seed(t, 1, "a.mp3", true)

	if err := h.orch.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	rec := h.get(t, 1)
	if rec.Status != transcript.StatusError {
		t.Fatalf("status = %s", rec.Status)
	}
	if str(rec.RawText) != "ola mundo" {
		t.Errorf("rawText lost: %s", str(rec.RawText))
	}
	if rec.CorrectedText != nil || rec.FinalText != nil {
		t.Error("correction fields must stay empty")
	}
	if !strings.HasPrefix(str(rec.ErrorMessage), "Provider error:") {
		t.Errorf("errorMessage = %s", str(rec.ErrorMessage))
	}
}

func TestRun_CorrectionTimeout(t *testing.T) {
	h := newHarness(t, wrapCorrector(50*time.Millisecond))
	h.llm.hang = true
	h.seed(t, 1, "a.mp3", true)

	if err := h.orch.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	rec := h.get(t, 1)
	if rec.Status != transcript.StatusError {
		t.Fatalf("status = %s", rec.Status)
	}
	if !strings.HasPrefix(str(rec.ErrorMessage), "Provider timeout:") {
		t.Errorf("errorMessage = %s", str(rec.ErrorMessage))
	}
	if str(rec.RawText) != "ola mundo" {
		t.Errorf("rawText lost: %s", str(rec.RawText))
	}
}

func TestRun_MissingCredentialStopsBeforeProviders(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.deps.Credentials = []provider.CredentialChecker{
			credentialFunc(func() error { return apperrors.Configuration("GROQ_API_KEY") }),
		}
	})
	h.seed(t, 1, "a.mp3", true)

	if err := h.orch.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	rec := h.get(t, 1)
	if got := str(rec.ErrorMessage); got != "Configuration error: GROQ_API_KEY is not configured" {
		t.Errorf("errorMessage = %s", got)
	}
	if h.stt.calls.Load() != 0 || h.llm.calls.Load() != 0 {
		t.Error("no provider may be called without credentials")
	}
	if got := strings.Join(h.events.Statuses(), ","); got != "error" {
		t.Errorf("statuses = %s", got)
	}
}

func TestRun_MissingAudioIsNotFoundFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "gone.mp3", false)

	if err := h.orch.Run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	rec := h.get(t, 1)
	if rec.Status != transcript.StatusError || !strings.HasPrefix(str(rec.ErrorMessage), "Not found:") {
		t.Errorf("record = %s %s", rec.Status, str(rec.ErrorMessage))
	}
}

func TestRun_MissingRecord(t *testing.T) {
	h := newHarness(t)
	err := h.orch.Run(context.Background(), 404)
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if h.locker.Held(404) {
		t.Error("lock must be released")
	}
}

func TestRun_BusyRecord(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	unlock, err := h.locker.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	err = h.orch.Run(context.Background(), 1)
	if !apperrors.HasCode(err, apperrors.ErrCodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if h.stt.calls.Load() != 0 {
		t.Error("a locked record must not be processed")
	}
}

func TestRun_PromptResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("active system prompt", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.prompts.Create(ctx, prompt.NewSystemPrompt{Version: 1, Content: "Revise o texto.", IsActive: true}); err != nil {
			t.Fatal(err)
		}
		h.seed(t, 1, "a.mp3", true)
		if err := h.orch.Run(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := h.llm.lastRequest(t).SystemPrompt; got != "Revise o texto." {
			t.Errorf("system prompt = %q", got)
		}
	})

	t.Run("custom prompt wins", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.prompts.Create(ctx, prompt.NewSystemPrompt{Version: 1, Content: "Revise o texto.", IsActive: true}); err != nil {
			t.Fatal(err)
		}
		h.seed(t, 1, "a.mp3", true)
		if _, err := h.records.Edit(ctx, 1, transcript.Patch{CustomPrompt: strp("Use linguagem formal.")}); err != nil {
			t.Fatal(err)
		}
		if err := h.orch.Run(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if got := h.llm.lastRequest(t).SystemPrompt; got != "Use linguagem formal." {
			t.Errorf("system prompt = %q", got)
		}
	})
}

func TestRun_GlossaryGlobalAndScoped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 7, "a.mp3", true)
	for _, c := range []struct {
		name  string
		scope glossary.Scope
	}{
		{"Arthur Lira", glossary.Global()},
		{"PL 2630", glossary.For(7)},
		{"Outro termo", glossary.For(8)},
	} {
		if _, err := h.glossary.Create(ctx, glossary.Term{Name: c.name, Info: "info"}, c.scope); err != nil {
			t.Fatal(err)
		}
	}

	if err := h.orch.Run(ctx, 7); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, g := range h.llm.lastRequest(t).Glossary {
		names = append(names, g.Name)
	}
	if got := strings.Join(names, ","); got != "Arthur Lira,PL 2630" {
		t.Errorf("glossary = %s", got)
	}
}

func TestRun_EditorWriteDuringRunIsKept(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	h.llm.during = func(context.Context) {
		if _, err := h.records.SetFinalText(ctx, 1, "texto do editor"); err != nil {
			t.Errorf("editor write: %v", err)
		}
	}

	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}

	rec := h.get(t, 1)
	if rec.Status != transcript.StatusReady {
		t.Fatalf("status = %s", rec.Status)
	}
	if str(rec.FinalText) != "texto do editor" {
		t.Errorf("finalText = %s", str(rec.FinalText))
	}
	if str(rec.CorrectedText) != "Olá, mundo. (Fim da transcrição)" {
		t.Errorf("correctedText = %s", str(rec.CorrectedText))
	}
}

func TestRun_SupersededRunDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	h.llm.during = func(context.Context) {
		cur := h.get(t, 1)
		if _, err := h.records.Update(ctx, 1, cur.Version, transcript.StageFields(transcript.StatusArchived)); err != nil {
			t.Errorf("concurrent write: %v", err)
		}
	}

	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}

	rec := h.get(t, 1)
	if rec.Status != transcript.StatusArchived {
		t.Errorf("status = %s, the superseded run overwrote it", rec.Status)
	}
	if rec.CorrectedText != nil || rec.ErrorMessage != nil {
		t.Error("superseded run must not write")
	}
}

func TestReprocess_KeepsEditedFinalText(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := h.records.SetFinalText(ctx, 1, "editado à mão"); err != nil {
		t.Fatal(err)
	}

	h.stt.text = "ola mundo de novo"
	h.llm.text = "Olá, mundo de novo. (Fim da transcrição)"
	if err := h.orch.Reprocess(ctx, 1); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}

	rec := h.get(t, 1)
	if rec.Status != transcript.StatusReady {
		t.Fatalf("status = %s", rec.Status)
	}
	if str(rec.FinalText) != "editado à mão" {
		t.Errorf("finalText = %s", str(rec.FinalText))
	}
	if str(rec.RawText) != "ola mundo de novo" || str(rec.CorrectedText) != "Olá, mundo de novo. (Fim da transcrição)" {
		t.Errorf("texts not refreshed: %s / %s", str(rec.RawText), str(rec.CorrectedText))
	}
	if rec.ProcessingStartedAt == nil || !rec.ProcessingStartedAt.Equal(fixedNow) {
		t.Errorf("processingStartedAt = %v", rec.ProcessingStartedAt)
	}
	if got := strings.Join(h.events.Statuses(), ","); !strings.HasSuffix(got, "ready,uploading,transcribing,correcting,ready") {
		t.Errorf("statuses = %s", got)
	}
}

func TestReprocess_ClearsError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.stt.err = &httpclient.Error{Code: httpclient.ErrCodeConnection, Message: "connection refused"}
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if msg := str(h.get(t, 1).ErrorMessage); !strings.HasPrefix(msg, "Network error:") {
		t.Fatalf("errorMessage = %s", msg)
	}

	h.stt.err = nil
	if err := h.orch.Reprocess(ctx, 1); err != nil {
		t.Fatal(err)
	}
	rec := h.get(t, 1)
	if rec.Status != transcript.StatusReady || rec.ErrorMessage != nil {
		t.Errorf("record = %s %s", rec.Status, str(rec.ErrorMessage))
	}
}

func TestRun_RerunOfFailedRecordClearsError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.stt.err = &httpclient.Error{Code: httpclient.ErrCodeConnection, Message: "connection refused"}
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if rec := h.get(t, 1); rec.Status != transcript.StatusError || rec.ErrorMessage == nil {
		t.Fatalf("first run = %s %s", rec.Status, str(rec.ErrorMessage))
	}

	h.stt.err = nil
	var during *transcript.Transcription
	h.llm.during = func(ctx context.Context) {
		during, _ = h.records.GetByID(ctx, 1)
	}
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if during == nil || during.Status != transcript.StatusCorrecting || during.ErrorMessage != nil {
		t.Errorf("record while correcting = %+v", during)
	}
	rec := h.get(t, 1)
	if rec.Status != transcript.StatusReady || rec.ProgressPercent != 100 {
		t.Errorf("status = %s %d", rec.Status, rec.ProgressPercent)
	}
	if rec.ErrorMessage != nil {
		t.Errorf("ready record still carries errorMessage %q", str(rec.ErrorMessage))
	}
	if rec.ProcessingStartedAt == nil || !rec.ProcessingStartedAt.Equal(fixedNow) {
		t.Errorf("processingStartedAt = %v, want the rerun's start", rec.ProcessingStartedAt)
	}
}

func TestRun_RerunOfReadyRecordClearsCompletion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if rec := h.get(t, 1); rec.ProcessingCompletedAt == nil {
		t.Fatal("first run should stamp processingCompletedAt")
	}

	var during *transcript.Transcription
	h.llm.during = func(ctx context.Context) {
		during, _ = h.records.GetByID(ctx, 1)
	}
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if during == nil || during.ProcessingCompletedAt != nil {
		t.Errorf("processingCompletedAt while running = %v", during)
	}
	if rec := h.get(t, 1); rec.Status != transcript.StatusReady || rec.ProcessingCompletedAt == nil {
		t.Errorf("record = %s completed=%v", rec.Status, rec.ProcessingCompletedAt)
	}
}

func TestReprocess_DeletedBlobLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, 1, "a.mp3", true)
	if err := h.orch.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	before := h.get(t, 1)
	if err := os.Remove(filepath.Join(h.blobs.BasePath(), "a.mp3")); err != nil {
		t.Fatal(err)
	}
	calls := h.stt.calls.Load()

	err := h.orch.Reprocess(ctx, 1)
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot reprocess") {
		t.Errorf("error = %v", err)
	}

	after := h.get(t, 1)
	if after.Version != before.Version || after.Status != transcript.StatusReady || str(after.RawText) != str(before.RawText) {
		t.Errorf("record changed: %+v", after)
	}
	if h.stt.calls.Load() != calls {
		t.Error("no provider call expected")
	}
	if h.locker.Held(1) {
		t.Error("lock must be released")
	}
}

func TestReprocess_MissingRecord(t *testing.T) {
	h := newHarness(t)
	if err := h.orch.Reprocess(context.Background(), 9); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}); !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func intsString(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
