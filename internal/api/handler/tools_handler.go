package handler

import (
	"net/http"

	"detective_lab/internal/app/service"
	"detective_lab/internal/common"

	"github.com/go-chi/chi/v5"
)

type ToolsHandler struct {
	evidenceService *service.EvidenceService
}

func NewToolsHandler(es *service.EvidenceService) *ToolsHandler {
	return &ToolsHandler{evidenceService: es}
}

func (h *ToolsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/extract", h.extract)
}

type extractRequest struct {
	Text string `json:"text"`
}

func (h *ToolsHandler) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.evidenceService.Extract(req.Text))
}
