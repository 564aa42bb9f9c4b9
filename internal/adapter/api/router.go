package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/gapmap/internal/repository"
	"github.com/eslsoft/gapmap/internal/usecase"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Concepts  *ConceptHandler
	Items     *ItemHandler
	Learning  *LearningHandler
	Analytics *AnalyticsHandler
	Plan      *PlanHandler
	Sessions  *SessionHandler
}

// NewHandlers wires the usecases into their HTTP handlers.
func NewHandlers(
	concepts usecase.ConceptUsecase,
	items usecase.ItemUsecase,
	learning usecase.LearningUsecase,
	analytics usecase.AnalyticsUsecase,
	plan usecase.PlanUsecase,
	sessions usecase.SessionUsecase,
	attempts repository.AttemptRepository,
) *Handlers {
	return &Handlers{
		Concepts:  NewConceptHandler(concepts),
		Items:     NewItemHandler(items),
		Learning:  NewLearningHandler(learning, attempts),
		Analytics: NewAnalyticsHandler(analytics),
		Plan:      NewPlanHandler(plan),
		Sessions:  NewSessionHandler(sessions),
	}
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(h *Handlers, db *sql.DB, logger *logrus.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/attempts", func(r chi.Router) {
			r.Post("/", h.Learning.SubmitAttempt)
			r.Get("/", h.Learning.ListAttempts)
		})
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/next", h.Learning.NextReviewItem)
			r.Get("/due-count", h.Learning.CountDue)
		})

		r.Get("/mastery", h.Analytics.ConceptMastery)
		r.Get("/gaps", h.Analytics.TopGaps)
		r.Get("/trends", h.Analytics.Trends)
		r.Get("/plan", h.Plan.DailyPlan)

		r.Route("/concepts", func(r chi.Router) {
			r.Post("/", h.Concepts.Create)
			r.Get("/", h.Concepts.List)
			r.Get("/{id}", h.Concepts.Get)
			r.Patch("/{id}", h.Concepts.Update)
			r.Delete("/{id}", h.Concepts.Delete)
		})
		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.Items.Create)
			r.Get("/", h.Items.List)
			r.Get("/{id}", h.Items.Get)
			r.Patch("/{id}", h.Items.Update)
			r.Delete("/{id}", h.Items.Delete)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.Sessions.Create)
			r.Get("/", h.Sessions.List)
			r.Post("/{id}/complete", h.Sessions.Complete)
		})
	})

	return r
}
