package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/glossary"
	"github.com/fernandomesquita/stenopro/server"
	"github.com/fernandomesquita/stenopro/validation"
)

type glossaryEntryRequest struct {
	Name            string `json:"name" validate:"notblank,maxrunes=255"`
	Info            string `json:"info" validate:"maxrunes=255"`
	TranscriptionID *uint  `json:"transcriptionId" validate:"omitempty,gt=0"`
	IsGlobal        bool   `json:"isGlobal"`
}

type glossaryImportRequest struct {
	Terms           []glossary.Term `json:"terms" validate:"required,min=1,dive"`
	TranscriptionID *uint           `json:"transcriptionId" validate:"omitempty,gt=0"`
	IsGlobal        bool            `json:"isGlobal"`
}

func scopeOf(transcriptionID *uint, isGlobal bool) glossary.Scope {
	return glossary.Scope{TranscriptionID: transcriptionID, Global: isGlobal}
}

// listGlossary accepts ?globalOnly=true or ?transcriptionId=N.
func (h *Handler) listGlossary(c *gin.Context) {
	id, err := validation.ParseOptionalID("transcriptionId", c.Query("transcriptionId"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	f := glossary.Filter{TranscriptionID: id, GlobalOnly: c.Query("globalOnly") == "true"}
	entries, err := h.glossary.List(c.Request.Context(), f)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, entries)
}

func (h *Handler) createGlossaryEntry(c *gin.Context) {
	var req glossaryEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.glossary.Create(c.Request.Context(),
		glossary.Term{Name: req.Name, Info: req.Info},
		scopeOf(req.TranscriptionID, req.IsGlobal))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, entry)
}

func (h *Handler) importGlossary(c *gin.Context) {
	var req glossaryImportRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.glossary.Import(c.Request.Context(), req.Terms, scopeOf(req.TranscriptionID, req.IsGlobal))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, res)
}

func (h *Handler) deleteGlossaryEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.glossary.Delete(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{"id": id, "success": true})
}
