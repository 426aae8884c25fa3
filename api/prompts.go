package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/prompt"
	"github.com/fernandomesquita/stenopro/server"
)

func (h *Handler) listPrompts(c *gin.Context) {
	prompts, err := h.prompts.List(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, prompts)
}

// activePrompt answers {"data": null} when no prompt is active.
func (h *Handler) activePrompt(c *gin.Context) {
	p, err := h.prompts.GetActive(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, p)
}

func (h *Handler) createPrompt(c *gin.Context) {
	var req prompt.NewSystemPrompt
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.prompts.Create(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, p)
}

func (h *Handler) activatePrompt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.prompts.Activate(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, p)
}

func (h *Handler) listTemplates(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, templates)
}

func (h *Handler) defaultTemplate(c *gin.Context) {
	t, err := h.templates.GetDefault(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, t)
}

func (h *Handler) getTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, t)
}

func (h *Handler) createTemplate(c *gin.Context) {
	var req prompt.TemplateInput
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.templates.Create(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, t)
}

func (h *Handler) updateTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req prompt.TemplatePatch
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.templates.Update(c.Request.Context(), id, req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, t)
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"id": id, "success": true})
}
