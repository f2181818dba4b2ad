package handler

import (
	"net/http"

	"detective_lab/internal/app/service"
	"detective_lab/internal/common"

	"github.com/go-chi/chi/v5"
)

type CaseHandler struct {
	caseService       *service.CaseService
	submissionService *service.SubmissionService
}

func NewCaseHandler(cs *service.CaseService, ss *service.SubmissionService) *CaseHandler {
	return &CaseHandler{caseService: cs, submissionService: ss}
}

// RegisterRoutes expects an authenticated router.
func (h *CaseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listCases)                       // GET /api/v1/cases?concept=loops
	r.Get("/{caseID}", h.getCase)                 // GET /api/v1/cases/log-triage
	r.Post("/{caseID}/submissions", h.submitCode) // POST /api/v1/cases/log-triage/submissions
}

func (h *CaseHandler) listCases(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	cases, err := h.caseService.ListCases(r.Context(), session, r.URL.Query().Get("concept"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, cases)
}

func (h *CaseHandler) getCase(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	detail, err := h.caseService.GetCaseDetails(r.Context(), session, chi.URLParam(r, "caseID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, detail)
}

// submitCode grades synchronously. Every verdict is a 200; only requests that
// cannot be graded get an error status.
func (h *CaseHandler) submitCode(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrAbort(w, r)
	if !ok {
		return
	}
	var req service.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.submissionService.Submit(r.Context(), session, chi.URLParam(r, "caseID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, outcome)
}

func (h *CaseHandler) ListRuntimes(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.caseService.Runtimes())
}
