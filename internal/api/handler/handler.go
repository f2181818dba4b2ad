package handler

import (
	"encoding/json"
	"net/http"

	"detective_lab/internal/api/middleware"
	"detective_lab/internal/common"
	"detective_lab/internal/domain/model"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 256 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func sessionOrAbort(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
	}
	return session, ok
}
