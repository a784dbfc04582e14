package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/testcheck/internal/auth"
	"github.com/mind-engage/testcheck/internal/exam"
	"github.com/mind-engage/testcheck/internal/export"
	"github.com/mind-engage/testcheck/internal/rbac"
	syncx "github.com/mind-engage/testcheck/internal/sync"
)

type Deps struct {
	DB          *sql.DB
	Service     *exam.Service
	Exporter    *export.Exporter
	Events      *syncx.EventRepo  // nil hides the audit log
	Auth        *auth.AuthService // nil disables authentication
	CORSOrigins []string
	BotUsername string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Archive-URL"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", readyHandler(d.DB))

	authn := auth.AnonymousAdmin
	if d.Auth != nil {
		authn = auth.JWTMiddleware(d.Auth)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if d.Auth != nil {
			api.Post("/auth/login", auth.LoginHandler(d.Auth))
		}

		api.Group(func(pr chi.Router) {
			pr.Use(authn)

			pr.With(rbac.Require(rbac.PermTestsWrite)).Post("/tests", CreateTestHandler(d.Service))
			pr.With(rbac.Require(rbac.PermTestsRead)).Get("/tests", ListTestsHandler(d.Service))
			pr.With(rbac.Require(rbac.PermTestsRead)).Get("/tests/{id}", GetTestHandler(d.Service))
			pr.With(rbac.Require(rbac.PermTestsWrite)).Patch("/tests/{id}", UpdateTestHandler(d.Service))
			pr.With(rbac.Require(rbac.PermTestsWrite)).Delete("/tests/{id}", DeleteTestHandler(d.Service))
			pr.With(rbac.Require(rbac.PermTestsRead)).Get("/tests/{id}/stats", StatsHandler(d.Service))
			pr.With(rbac.Require(rbac.PermTestsRead)).Get("/tests/{id}/qr", QRHandler(d.Service, d.BotUsername))

			pr.With(rbac.Require(rbac.PermResponsesWrite)).Post("/responses", SubmitResponseHandler(d.Service))
			pr.With(rbac.Require(rbac.PermResponsesRead)).Get("/responses/{testId}", ListResponsesHandler(d.Service))
			pr.With(rbac.RequireAny(rbac.PermExport, rbac.PermResponsesRead)).
				Get("/export/{testId}", ExportResultsHandler(d.Exporter))
			if d.Events != nil {
				pr.With(rbac.Require(rbac.PermEventsRead)).Get("/events", EventsHandler(d.Events))
			}

			legacyRoutes(pr, d)
		})
	})

	r.Group(func(legacy chi.Router) {
		legacy.Use(authn)
		legacyRoutes(legacy, d)
		legacy.With(rbac.Require(rbac.PermResponsesRead)).Get("/responses/{testId}", ListResponsesHandler(d.Service))
	})

	return r
}

// legacyRoutes registers the paths used by the existing bot clients. They are
// served both under /api/v1 and at the root.
func legacyRoutes(r chi.Router, d Deps) {
	r.With(rbac.Require(rbac.PermTestsWrite)).Post("/insert-test", CreateTestHandler(d.Service))
	r.With(rbac.Require(rbac.PermTestsRead)).Get("/test/{id}", GetTestHandler(d.Service))
	r.With(rbac.Require(rbac.PermTestsRead)).Get("/all-tests/", ListTestsHandler(d.Service))
	r.With(rbac.Require(rbac.PermTestsWrite)).Delete("/delete-test/{id}", DeleteTestHandler(d.Service))
	r.With(rbac.Require(rbac.PermResponsesWrite)).Post("/insert-response/", SubmitResponseHandler(d.Service))
	r.With(rbac.RequireAny(rbac.PermExport, rbac.PermResponsesRead)).
		Get("/export-responses/{testId}", ExportResultsHandler(d.Exporter))
}

func readyHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			respondDetail(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
