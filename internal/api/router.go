package api

import (
	"net/http"
	"time"

	"detective_lab/internal/api/handler"
	"detective_lab/internal/api/middleware"
	"detective_lab/internal/app/service"
	"detective_lab/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type Services struct {
	Auth        *service.AuthService
	Cases       *service.CaseService
	Submissions *service.SubmissionService
	Progress    *service.ProgressService
	Leaderboard *service.LeaderboardService
	Evidence    *service.EvidenceService
	Metrics     http.Handler // Optional; mounted at /metrics
}

func NewRouter(svc Services, tokens *security.TokenIssuer, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifier only parses "Authorization: Bearer T"; Authenticator enforces it per group.
	r.Use(jwtauth.Verifier(tokens.JWTAuth()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics)
	}

	authHandler := handler.NewAuthHandler(svc.Auth)
	caseHandler := handler.NewCaseHandler(svc.Cases, svc.Submissions)
	progressHandler := handler.NewProgressHandler(svc.Progress, svc.Leaderboard)
	toolsHandler := handler.NewToolsHandler(svc.Evidence)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", authHandler.RegisterRoutes)
		v1.Get("/runtimes", caseHandler.ListRuntimes)
		v1.Get("/leaderboard", progressHandler.Leaderboard)
		v1.Get("/leaderboard/{username}", progressHandler.UserRank)

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.Authenticator)
			authed.Route("/cases", caseHandler.RegisterRoutes)
			authed.Route("/progress", progressHandler.RegisterRoutes)
			authed.Route("/tools", toolsHandler.RegisterRoutes)

			authed.Group(func(instructor chi.Router) {
				instructor.Use(middleware.InstructorOnly)
				instructor.Get("/instructor/learners", progressHandler.Learners)
			})
		})
	})

	return r
}
