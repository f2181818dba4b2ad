package middleware

import (
	"context"
	"errors"
	"net/http"

	"detective_lab/internal/common"
	"detective_lab/internal/common/security"
	"detective_lab/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const SessionCtxKey contextKey = "session"

// Authenticator requires a token verified by jwtauth.Verifier and stores the
// session it carries in the request context.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			if errors.Is(err, jwtauth.ErrNoTokenFound) {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}
		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		session, err := security.SessionFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func InstructorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok || !session.IsInstructor() {
			common.RespondWithError(w, http.StatusForbidden, "Instructor access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithSession(ctx context.Context, session model.Session) context.Context {
	return context.WithValue(ctx, SessionCtxKey, session)
}

func SessionFromContext(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(SessionCtxKey).(model.Session)
	return session, ok
}
