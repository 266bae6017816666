package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/assessment"
	"github.com/mind-engage/mindengage-assess/internal/auth"
	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	"github.com/mind-engage/mindengage-assess/internal/session"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

// Deps is everything the routes need. Sessions, Events, DB and Metrics are
// optional; their routes are only mounted when set.
type Deps struct {
	Service  *assessment.Service
	Sessions *session.Manager
	Auth     *authmw.AuthService
	Login    authmw.LoginConfig
	Guard    *GuestGuard
	Events   *syncx.EventRepo
	DB       Pinger
	Metrics  http.Handler

	SecureCookies bool
}

func Mount(r chi.Router, d Deps) {
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(d.DB))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Login))
	r.Post("/auth/guest", auth.GuestHandler(d.SecureCookies))

	// Bearer token optional: public-link attempts are anonymous.
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.OptionalJWTMiddleware(d.Auth))

		pr.With(authmw.RequireSubject, rbac.Require(rbac.PermAssessmentCreate)).
			Post("/assessments", CreateAssessmentHandler(d.Service))
		pr.Group(func(vr chi.Router) {
			vr.Use(rbac.RequireIfRole(rbac.PermAssessmentView))
			vr.Get("/assessments/{id}", GetAssessmentHandler(d.Service))
			vr.Get("/shared/{token}", SharedAssessmentHandler(d.Service))
			vr.Get("/assessments/{id}/performance", PerformanceHandler(d.Service))
			vr.Get("/submissions/{id}/review", ReviewHandler(d.Service))
		})

		pr.Group(func(sr chi.Router) {
			sr.Use(rbac.RequireIfRole(rbac.PermSubmissionCreate))
			sr.Post("/assessments/{id}/submit", SubmitHandler(d.Service, d.Guard))
			if d.Sessions != nil {
				sr.Post("/assessments/{id}/sessions", StartSessionHandler(d.Sessions, d.Guard))
				sr.Get("/sessions/{id}", GetSessionHandler(d.Sessions))
				sr.Put("/sessions/{id}/answers/{index}", SetAnswerHandler(d.Sessions))
				sr.Post("/sessions/{id}/submit", SubmitSessionHandler(d.Sessions))
			}
		})

		if d.Events != nil {
			pr.With(authmw.RequireSubject, rbac.Require(rbac.PermEventsRead)).
				Get("/events", EventsHandler(d.Events))
		}
	})
}
