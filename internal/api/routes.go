package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Rate limiter for override writes: burst of 100, then 10/second
	mutationLimiter := NewRateLimiter(100, 100*time.Millisecond)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes (auth and scope required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Use(ScopeMiddleware)

			r.Get("/insights", h.GetInsights)
			r.Get("/insights/digest", h.Digest)
			r.Get("/alerts", h.GetAlerts)
			r.Get("/challenges", h.ListChallenges)

			r.Group(func(r chi.Router) {
				r.Use(mutationLimiter.Middleware)

				r.Post("/insights/refresh", h.RefreshInsights)
				r.Post("/insights/read-all", h.MarkAllInsightsRead)
				r.Post("/insights/{id}/read", h.MarkInsightRead)
				r.Delete("/insights/{id}", h.DeleteInsight)

				r.Post("/alerts/refresh", h.RefreshAlerts)
				r.Post("/alerts/read-all", h.MarkAllAlertsRead)
				r.Post("/alerts/{id}/read", h.MarkAlertRead)
				r.Delete("/alerts/{id}", h.DeleteAlert)

				r.Post("/suggestions/{id}/accept", h.AcceptSuggestion)
				r.Post("/challenges/{id}/complete", h.CompleteChallenge)
				r.Post("/challenges/{id}/abandon", h.AbandonChallenge)
			})
		})
	})

	return r
}
