package handler

import (
	"net/http"

	"detective_lab/internal/app/service"
	"detective_lab/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProgressHandler struct {
	progressService    *service.ProgressService
	leaderboardService *service.LeaderboardService
}

func NewProgressHandler(ps *service.ProgressService, ls *service.LeaderboardService) *ProgressHandler {
	return &ProgressHandler{progressService: ps, leaderboardService: ls}
}

// RegisterRoutes expects an authenticated router.
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.mine)
	r.Get("/me/graph", h.graph)
}

func (h *ProgressHandler) mine(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	snap, err := h.progressService.Snapshot(r.Context(), session)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, snap)
}

func (h *ProgressHandler) graph(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	graph, err := h.progressService.Graph(r.Context(), session)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, graph)
}

func (h *ProgressHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.leaderboardService.Leaderboard(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rows)
}

func (h *ProgressHandler) UserRank(w http.ResponseWriter, r *http.Request) {
	row, err := h.leaderboardService.Rank(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, row)
}

// Learners is the instructor overview of every learner's progress.
func (h *ProgressHandler) Learners(w http.ResponseWriter, r *http.Request) {
	learners, err := h.progressService.Learners(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, learners)
}
