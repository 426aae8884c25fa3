package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/sse"
	"github.com/fernandomesquita/stenopro/storage"
	"github.com/fernandomesquita/stenopro/transcript"
)

// Runner starts pipeline runs in the background.
type Runner interface {
	Dispatch(ctx context.Context, id uint) error
	DispatchReprocess(ctx context.Context, id uint) error
}

// Deps are the handler's collaborators. All but Clock and Logger are
// required.
type Deps struct {
	Records   *transcript.Store
	Glossary  *glossary.Store
	Prompts   *prompt.SystemStore
	Templates *prompt.TemplateStore
	Blobs     storage.Storage
	Runner    Runner
	Hub       *sse.Hub
	Upload    UploadConfig
	Clock     func() time.Time
	Logger    *logger.Logger
}

// Handler serves the REST API.
type Handler struct {
	records   *transcript.Store
	glossary  *glossary.Store
	prompts   *prompt.SystemStore
	templates *prompt.TemplateStore
	blobs     storage.Storage
	runner    Runner
	hub       *sse.Hub
	upload    UploadConfig
	now       func() time.Time
	log       *logger.Logger
}

// New creates a Handler.
func New(d Deps) *Handler {
	d.Upload.ApplyDefaults()
	h := &Handler{
		records:   d.Records,
		glossary:  d.Glossary,
		prompts:   d.Prompts,
		templates: d.Templates,
		blobs:     d.Blobs,
		runner:    d.Runner,
		hub:       d.Hub,
		upload:    d.Upload,
		now:       d.Clock,
		log:       d.Logger,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.log == nil {
		h.log = logger.Get("api")
	}
	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	t := api.Group("/transcriptions")
	t.GET("", h.listTranscriptions)
	t.GET("/stats", h.transcriptionStats)
	t.POST("", h.createTranscription)
	t.GET("/:id", h.getTranscription)
	t.PATCH("/:id", h.updateTranscription)
	t.DELETE("/:id", h.deleteTranscription)
	t.POST("/:id/reprocess", h.reprocessTranscription)
	t.GET("/:id/audio", h.transcriptionAudio)
	t.GET("/:id/events", h.transcriptionEvents)

	g := api.Group("/glossary")
	g.GET("", h.listGlossary)
	g.POST("", h.createGlossaryEntry)
	g.POST("/import", h.importGlossary)
	g.DELETE("/:id", h.deleteGlossaryEntry)

	p := api.Group("/prompts")
	p.GET("", h.listPrompts)
	p.GET("/active", h.activePrompt)
	p.POST("", h.createPrompt)
	p.POST("/:id/activate", h.activatePrompt)

	pt := api.Group("/prompt-templates")
	pt.GET("", h.listTemplates)
	pt.GET("/default", h.defaultTemplate)
	pt.GET("/:id", h.getTemplate)
	pt.POST("", h.createTemplate)
	pt.PATCH("/:id", h.updateTemplate)
	pt.DELETE("/:id", h.deleteTemplate)

	r.GET("/uploads/:key", h.uploadedAudio)
}
