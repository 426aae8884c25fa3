package processing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fernandomesquita/stenopro/correction"
	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/observability"
	"github.com/fernandomesquita/stenopro/provider"
	"github.com/fernandomesquita/stenopro/transcript"
	"github.com/fernandomesquita/stenopro/transcription"
)

// Run outcomes reported to metrics.
const (
	OutcomeCompleted  = "completed"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

// maxWriteAttempts bounds how often a stage write is retried after editor
// writes moved the version forward.
const maxWriteAttempts = 3

// errSuperseded stops a run whose record was changed by someone else.
var errSuperseded = errors.New("run superseded")

// Deps are the orchestrator's collaborators. Records, Blobs, Transcriber and
// Corrector are required.
type Deps struct {
	Records     Records
	Blobs       Blobs
	Transcriber transcription.Provider
	Corrector   correction.Provider
	// Credentials are checked before any provider call.
	Credentials []provider.CredentialChecker
	Prompts     Prompts
	Glossary    Glossary
	// Locker defaults to an in-process LocalLocker.
	Locker  Locker
	Events  events.Publisher
	Metrics *observability.PipelineMetrics
	// Clock stamps processingStartedAt and processingCompletedAt.
	Clock  func() time.Time
	Logger *logger.Logger
}

// Orchestrator advances one record at a time through the pipeline.
type Orchestrator struct {
	records     Records
	blobs       Blobs
	transcriber transcription.Provider
	corrector   correction.Provider
	credentials []provider.CredentialChecker
	prompts     Prompts
	glossary    Glossary
	locker      Locker
	events      events.Publisher
	metrics     *observability.PipelineMetrics
	now         func() time.Time
	log         *logger.Logger
}

// New validates d and builds an Orchestrator.
func New(d Deps) (*Orchestrator, error) {
	switch {
	case d.Records == nil:
		return nil, apperrors.Configuration("processing records store")
	case d.Blobs == nil:
		return nil, apperrors.Configuration("processing blob store")
	case d.Transcriber == nil:
		return nil, apperrors.Configuration("transcription provider")
	case d.Corrector == nil:
		return nil, apperrors.Configuration("correction provider")
	}
	o := &Orchestrator{
		records:     d.Records,
		blobs:       d.Blobs,
		transcriber: d.Transcriber,
		corrector:   d.Corrector,
		credentials: d.Credentials,
		prompts:     d.Prompts,
		glossary:    d.Glossary,
		locker:      d.Locker,
		events:      d.Events,
		metrics:     d.Metrics,
		now:         d.Clock,
		log:         d.Logger,
	}
	if o.locker == nil {
		o.locker = NewLocalLocker()
	}
	if o.events == nil {
		o.events = events.Nop{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.log == nil {
		o.log = logger.Get("processing")
	}
	return o, nil
}

// Run processes record id. It returns an error only when the record does not
// exist, cannot be read, or is locked by another run; every failure after
// that is persisted on the record.
func (o *Orchestrator) Run(ctx context.Context, id uint) error {
	unlock, err := o.locker.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return o.run(ctx, id)
}

// Reprocess resets record id to uploading, keeping finalText, and runs it
// again within the call. A record whose audio is gone is left untouched.
func (o *Orchestrator) Reprocess(ctx context.Context, id uint) error {
	unlock, err := o.prepareReprocess(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	return o.run(ctx, id)
}

// prepareReprocess takes the run lock, checks the preconditions and resets
// the record. On success the caller owns the returned lock.
func (o *Orchestrator) prepareReprocess(ctx context.Context, id uint) (Unlock, error) {
	unlock, err := o.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.reset(ctx, id); err != nil {
		unlock()
		return nil, err
	}
	return unlock, nil
}

func (o *Orchestrator) reset(ctx context.Context, id uint) error {
	rec, err := o.records.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := o.blobs.Exists(ctx, rec.AudioFilename)
	if err != nil {
		return apperrors.StorageError("check audio", err)
	}
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound,
			fmt.Sprintf("Audio file %q no longer exists; cannot reprocess.", rec.AudioFilename),
			http.StatusNotFound,
		).WithDetails(map[string]any{"resource": "audio", "id": rec.AudioFilename})
	}

	st := &runState{id: id, version: rec.Version, status: rec.Status}
	fields := transcript.StageFields(transcript.StatusUploading).With(transcript.Fields{
		transcript.ColErrorMessage:          nil,
		transcript.ColRawText:               nil,
		transcript.ColCorrectedText:         nil,
		transcript.ColProcessingStartedAt:   o.now(),
		transcript.ColProcessingCompletedAt: nil,
	})
	if err := o.write(ctx, st, transcript.StatusUploading, fields); err != nil {
		if errors.Is(err, errSuperseded) {
			return apperrors.Conflict("transcription changed while it was being reset").WithCause(err)
		}
		return err
	}
	o.log.WithContext(ctx).Info("Transcription reset for reprocessing", logger.Fields(logger.FieldTranscriptionID, id))
	return nil
}

// runState is what a run knows about its record: the version it last saw
// and the status it last wrote.
type runState struct {
	id      uint
	version int
	status  transcript.Status
}

func (o *Orchestrator) run(ctx context.Context, id uint) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrTranscriptionID, id)

	log := o.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldTranscriptionID, id))

	rec, err := o.records.GetByID(ctx, id)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}

	o.metrics.RunStarted(ctx)
	started := time.Now()
	st := &runState{id: id, version: rec.Version, status: rec.Status}

	outcome, kind := o.execute(ctx, st, rec, log)

	o.metrics.RunFinished(ctx, outcome, string(kind))
	log.Info("Run finished", logger.Fields(
		"outcome", outcome,
		"kind", string(kind),
		logger.FieldDuration, time.Since(started).Milliseconds(),
	))
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, st *runState, rec *transcript.Transcription, log *logger.Logger) (string, Kind) {
	err := o.stages(ctx, st, rec, log)
	if err == nil {
		return OutcomeCompleted, ""
	}
	if errors.Is(err, errSuperseded) {
		log.Warn("Run stopped, record changed by another writer", logger.Fields(logger.FieldError, err.Error()))
		return OutcomeSuperseded, ""
	}

	f := Classify(err)
	observability.SetSpanError(ctx, err)
	log.Error("Run failed", logger.Fields(
		logger.FieldStage, f.Stage,
		"kind", string(f.Kind),
		logger.FieldError, err.Error(),
	))

	fields := transcript.StageFields(transcript.StatusError).With(transcript.Fields{
		transcript.ColErrorMessage: f.Message,
	})
	// a cancelled run still records why it stopped
	if werr := o.write(context.WithoutCancel(ctx), st, transcript.StatusError, fields); werr != nil {
		if errors.Is(werr, errSuperseded) {
			return OutcomeSuperseded, f.Kind
		}
		log.Error("Could not persist run failure", logger.Fields(logger.FieldError, werr.Error()))
	}
	return OutcomeFailed, f.Kind
}

func (o *Orchestrator) stages(ctx context.Context, st *runState, rec *transcript.Transcription, log *logger.Logger) error {
	for _, c := range o.credentials {
		if err := c.CheckCredentials(); err != nil {
			return inStage(StagePrepare, err)
		}
	}

	if err := o.write(ctx, st, transcript.StatusTranscribing, o.startFields(rec)); err != nil {
		return inStage(StageTranscribe, err)
	}
	resp, err := o.transcribe(ctx, rec)
	if err != nil {
		return inStage(StageTranscribe, err)
	}
	rawText := resp.Text
	if err := o.write(ctx, st, st.status, transcript.Fields{
		transcript.ColRawText:         rawText,
		transcript.ColDurationSeconds: resp.DurationSeconds(),
	}); err != nil {
		return inStage(StageTranscribe, err)
	}
	log.Info("Transcription stored", logger.Fields("chars", len(rawText), "duration_seconds", resp.DurationSeconds()))

	if err := o.write(ctx, st, transcript.StatusCorrecting, transcript.StageFields(transcript.StatusCorrecting)); err != nil {
		return inStage(StageCorrect, err)
	}
	corrected, err := o.correct(ctx, rec, rawText, log)
	if err != nil {
		return inStage(StageCorrect, err)
	}

	fields := transcript.StageFields(transcript.StatusReady).With(transcript.Fields{
		transcript.ColCorrectedText:         corrected,
		transcript.ColFinalText:             transcript.FinalTextIfEmpty(corrected),
		transcript.ColProcessingCompletedAt: o.now(),
	})
	if err := o.write(ctx, st, transcript.StatusReady, fields); err != nil {
		return inStage(StageCorrect, err)
	}
	return nil
}

// startFields opens a run: the previous run's error and completion time are
// cleared. Uploads and resets stamp processingStartedAt themselves; a run
// entered from any other state stamps it here.
func (o *Orchestrator) startFields(rec *transcript.Transcription) transcript.Fields {
	fields := transcript.StageFields(transcript.StatusTranscribing).With(transcript.Fields{
		transcript.ColErrorMessage:          nil,
		transcript.ColProcessingCompletedAt: nil,
	})
	if rec.Status != transcript.StatusUploading || rec.ProcessingStartedAt == nil {
		fields[transcript.ColProcessingStartedAt] = o.now()
	}
	return fields
}

// abandon fails a record whose dispatched run never started. A record that
// left uploading in the meantime belongs to another run and is left alone.
func (o *Orchestrator) abandon(ctx context.Context, id uint, reason string) error {
	rec, err := o.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status != transcript.StatusUploading {
		return nil
	}
	st := &runState{id: id, version: rec.Version, status: rec.Status}
	fields := transcript.StageFields(transcript.StatusError).With(transcript.Fields{
		transcript.ColErrorMessage: reason,
	})
	err = o.write(ctx, st, transcript.StatusError, fields)
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

func (o *Orchestrator) transcribe(ctx context.Context, rec *transcript.Transcription) (resp *transcription.Response, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanTranscribe)
	defer span.End()
	start := time.Now()
	defer func() {
		o.metrics.StageFinished(ctx, StageTranscribe, err != nil, time.Since(start))
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
	}()

	path, release, err := o.blobs.ResolvePath(ctx, rec.AudioFilename)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer release()
	}

	return o.transcriber.Execute(ctx, transcription.Request{
		AudioPath: path,
		FileName:  rec.AudioFilename,
	})
}

func (o *Orchestrator) correct(ctx context.Context, rec *transcript.Transcription, rawText string, log *logger.Logger) (text string, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCorrect)
	defer span.End()
	start := time.Now()
	defer func() {
		o.metrics.StageFinished(ctx, StageCorrect, err != nil, time.Since(start))
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
	}()

	system, err := o.systemPrompt(ctx, rec)
	if err != nil {
		return "", err
	}
	terms, err := o.glossaryFor(ctx, rec.ID)
	if err != nil {
		return "", err
	}

	resp, err := o.corrector.Execute(ctx, correction.Request{
		RawText:      rawText,
		SystemPrompt: system,
		Glossary:     terms,
	})
	if err != nil {
		return "", err
	}
	log.Info("Correction received", logger.Fields(
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	))
	return resp.Text, nil
}

// systemPrompt resolves the record's custom prompt, then the active system
// prompt, then the built-in default.
func (o *Orchestrator) systemPrompt(ctx context.Context, rec *transcript.Transcription) (string, error) {
	if rec.CustomPrompt != nil && strings.TrimSpace(*rec.CustomPrompt) != "" {
		return *rec.CustomPrompt, nil
	}
	if o.prompts != nil {
		active, err := o.prompts.ActiveContent(ctx)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(active) != "" {
			return active, nil
		}
	}
	return correction.DefaultSystemPrompt, nil
}

func (o *Orchestrator) glossaryFor(ctx context.Context, id uint) ([]correction.GlossaryEntry, error) {
	if o.glossary == nil {
		return nil, nil
	}
	entries, err := o.glossary.EntriesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	terms := make([]correction.GlossaryEntry, len(entries))
	for i, e := range entries {
		terms[i] = correction.GlossaryEntry{Name: e.Name, Info: e.Info}
	}
	return terms, nil
}

// write applies fields at the run's version. After a version conflict it
// re-reads the record and retries only if the record still shows the status
// this run last wrote; otherwise the run is superseded.
func (o *Orchestrator) write(ctx context.Context, st *runState, next transcript.Status, fields transcript.Fields) error {
	for attempt := 1; ; attempt++ {
		v, err := o.records.Update(ctx, st.id, st.version, fields)
		if err == nil {
			st.version = v
			st.status = next
			if _, ok := fields[transcript.ColStatus]; ok {
				o.publish(ctx, st, fields)
			}
			return nil
		}
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return fmt.Errorf("%w: record deleted", errSuperseded)
		}
		if !apperrors.HasCode(err, apperrors.ErrCodeVersionConflict) || attempt == maxWriteAttempts {
			return err
		}

		cur, rerr := o.records.GetByID(ctx, st.id)
		if rerr != nil {
			return rerr
		}
		if cur.Status != st.status {
			return fmt.Errorf("%w: status is %s, run last wrote %s", errSuperseded, cur.Status, st.status)
		}
		st.version = cur.Version
	}
}

func (o *Orchestrator) publish(ctx context.Context, st *runState, fields transcript.Fields) {
	p := transcript.ProgressOf(st.status)
	e := events.Event{
		Type:            events.TypeStatusChanged,
		TranscriptionID: st.id,
		Status:          string(st.status),
		ProgressPercent: p.Percent,
		ProgressMessage: p.Message,
		At:              o.now(),
	}
	switch st.status {
	case transcript.StatusReady:
		e.Type = events.TypeCompleted
	case transcript.StatusError:
		e.Type = events.TypeFailed
		if msg, ok := fields[transcript.ColErrorMessage].(string); ok {
			e.ErrorMessage = msg
		}
	}
	o.events.Publish(ctx, e)
}
