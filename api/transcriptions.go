package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/server"
	"github.com/fernandomesquita/stenopro/sse"
	"github.com/fernandomesquita/stenopro/storage"
	"github.com/fernandomesquita/stenopro/transcript"
	"github.com/fernandomesquita/stenopro/validation"
)

// uploadsPrefix is the public path under which stored audio is served.
const uploadsPrefix = "/uploads/"

// transcriptionView is the API shape of a transcription. transcriptionText
// and audioDuration mirror finalText and durationSeconds.
type transcriptionView struct {
	*transcript.Transcription
	TranscriptionText *string `json:"transcriptionText"`
	AudioDuration     *int    `json:"audioDuration"`
}

func viewOf(t *transcript.Transcription) transcriptionView {
	return transcriptionView{Transcription: t, TranscriptionText: t.FinalText, AudioDuration: t.DurationSeconds}
}

func (h *Handler) listTranscriptions(c *gin.Context) {
	params, err := transcript.ParseListQuery(c.Request.URL.Query())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.records.List(c.Request.Context(), params)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, res.Items, res.Pagination)
}

func (h *Handler) transcriptionStats(c *gin.Context) {
	stats, err := h.records.Stats(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, stats)
}

func (h *Handler) getTranscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.records.GetByID(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, viewOf(rec))
}

func (h *Handler) createTranscription(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log.WithContext(ctx)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = apperrors.InvalidInput("audio", "expected a multipart/form-data upload")
		}
		server.RespondWithError(c, err)
		return
	}

	title := strings.TrimSpace(formValue(form, "title"))
	room := strings.TrimSpace(formValue(form, "room"))
	v := validation.New().
		Required("title", title).
		MaxLength("title", title, 255).
		MaxLength("room", room, 100)
	if err := v.Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	templateID, err := validation.ParseOptionalID("promptTemplateId", formValue(form, "promptTemplateId"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	files := form.File["audio"]
	if len(files) == 0 {
		server.RespondWithError(c, apperrors.MissingField("audio"))
		return
	}
	fh := files[0]
	if fh.Size == 0 {
		server.RespondWithError(c, apperrors.InvalidInput("audio", "file is empty"))
		return
	}
	if limit := h.upload.MaxBytes(); limit > 0 && fh.Size > limit {
		server.RespondWithError(c, apperrors.PayloadTooLarge(limit))
		return
	}

	var customPrompt *string
	if templateID != nil {
		tpl, err := h.templates.Get(ctx, *templateID)
		switch {
		case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
			log.Warn("Prompt template not found, using the system prompt", logger.Fields("template_id", *templateID))
		case err != nil:
			server.RespondWithError(c, err)
			return
		default:
			customPrompt = &tpl.PromptText
		}
	}

	key, err := h.storeUpload(c, fh)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	now := h.now()
	rec := &transcript.Transcription{
		Title:               title,
		Room:                room,
		AudioURL:            uploadsPrefix + key,
		AudioFilename:       key,
		CustomPrompt:        customPrompt,
		ProcessingStartedAt: &now,
	}
	if err := h.records.Create(ctx, rec); err != nil {
		h.discardUpload(ctx, log, key, 0)
		server.RespondWithError(c, err)
		return
	}
	log.Info("Transcription created", logger.Fields(
		logger.FieldTranscriptionID, rec.ID,
		"audio", key,
		"size", fh.Size,
	))

	if err := h.runner.Dispatch(ctx, rec.ID); err != nil {
		// no run will ever pick the record up
		h.discardUpload(ctx, log, key, rec.ID)
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, viewOf(rec))
}

// discardUpload removes what a failed create already stored: the record when
// id is set, then the blob.
func (h *Handler) discardUpload(ctx context.Context, log *logger.Logger, key string, id uint) {
	if id != 0 {
		if err := h.records.Delete(ctx, id); err != nil {
			log.Warn("Remove record of refused upload", logger.ErrorFields("delete", err))
		}
	}
	if err := h.blobs.Delete(ctx, key); err != nil {
		log.Warn("Remove orphaned upload", logger.ErrorFields("delete", err))
	}
}

// storeUpload checks the file's content type and saves it to blob storage.
func (h *Handler) storeUpload(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", apperrors.InvalidInput("audio", "unreadable upload")
	}
	defer f.Close()

	sniffed, err := sniffAudio(f)
	if err != nil {
		return "", apperrors.InvalidInput("audio", "unreadable upload")
	}
	if sniffed != "" && !h.upload.allows(sniffed) {
		return "", apperrors.UnsupportedMedia(sniffed)
	}
	mimeType := declaredType(fh.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == octetStream {
		mimeType = sniffed
	}
	if !h.upload.allows(mimeType) {
		return "", apperrors.UnsupportedMedia(mimeType)
	}

	return storage.SaveAudio(c.Request.Context(), h.blobs, h.now(), fh.Filename, f)
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

type updateTranscriptionRequest struct {
	Title             *string        `json:"title" validate:"omitempty,notblank,maxrunes=255"`
	Room              *string        `json:"room" validate:"omitempty,maxrunes=100"`
	FinalText         *string        `json:"finalText"`
	TranscriptionText *string        `json:"transcriptionText"`
	CustomPrompt      optionalString `json:"customPrompt"`
}

func (h *Handler) updateTranscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateTranscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := transcript.Patch{Title: req.Title, Room: req.Room, FinalText: req.FinalText}
	if patch.FinalText == nil {
		patch.FinalText = req.TranscriptionText
	}
	if req.CustomPrompt.Set {
		empty := ""
		patch.CustomPrompt = &empty
		if req.CustomPrompt.Value != nil {
			patch.CustomPrompt = req.CustomPrompt.Value
		}
	}

	rec, err := h.records.Edit(c.Request.Context(), id, patch)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, viewOf(rec))
}

func (h *Handler) reprocessTranscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.runner.DispatchReprocess(ctx, id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	rec, err := h.records.GetByID(ctx, id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, viewOf(rec))
}

func (h *Handler) deleteTranscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	log := h.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldTranscriptionID, id))

	rec, err := h.records.GetByID(ctx, id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if rec.AudioFilename != "" {
		if err := h.blobs.Delete(ctx, rec.AudioFilename); err != nil {
			log.Warn("Delete audio blob", logger.ErrorFields("delete", err))
		}
	}
	if _, err := h.glossary.DeleteScoped(ctx, id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.records.Delete(ctx, id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	log.Info("Transcription deleted")
	server.RespondOK(c, gin.H{"id": id, "success": true})
}

func (h *Handler) transcriptionAudio(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.records.GetByID(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.serveBlob(c, rec.AudioFilename)
}

func (h *Handler) uploadedAudio(c *gin.Context) {
	key := c.Param("key")
	if err := storage.ValidateKey(key); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.serveBlob(c, key)
}

// serveBlob streams a stored blob. Seekable blobs get range support.
func (h *Handler) serveBlob(c *gin.Context, key string) {
	ctx := c.Request.Context()
	rc, err := h.blobs.Download(ctx, key)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	defer rc.Close()

	contentType := contentTypeFor(key)
	if rs, ok := rc.(io.ReadSeeker); ok {
		c.Header("Content-Type", contentType)
		http.ServeContent(c.Writer, c.Request, key, time.Time{}, rs)
		return
	}
	size, err := h.blobs.Size(ctx, key)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, size, contentType, rc, nil)
}

// transcriptionEvents streams progress frames for one transcription. The
// stream opens with the current state and closes after a terminal status.
func (h *Handler) transcriptionEvents(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.records.GetByID(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	snapshot, err := sse.ProgressFrame(snapshotEvent(rec))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	sse.ServeSSE(h.hub, c.Writer, c.Request, sse.TranscriptionTopic(id),
		sse.WithSnapshot(snapshot),
		sse.WithCloseWhen(terminalFrame),
	)
}

func snapshotEvent(rec *transcript.Transcription) events.Event {
	e := events.Event{
		Type:            events.TypeStatusChanged,
		TranscriptionID: rec.ID,
		Status:          string(rec.Status),
		ProgressPercent: rec.ProgressPercent,
		ProgressMessage: rec.ProgressMessage,
		At:              rec.UpdatedAt,
	}
	if rec.ErrorMessage != nil {
		e.ErrorMessage = *rec.ErrorMessage
	}
	return e
}

func terminalFrame(f sse.Frame) bool {
	if f.Event != sse.EventProgress {
		return false
	}
	var e events.Event
	if err := json.Unmarshal(f.Data, &e); err != nil {
		return false
	}
	return transcript.Status(e.Status).Terminal()
}
