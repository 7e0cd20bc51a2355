package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. Everything under /api requires a
// resolved actor; /health does not.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.fractionalops.com", "http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.withActor)

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.CreateCampaign)
			r.Get("/", h.ListCampaigns)

			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", h.GetCampaign)
				r.Delete("/", h.DeleteCampaign)

				r.Post("/list-questions", h.AnswerListQuestions)
				r.Post("/upload-list", h.UploadCampaignList)
				r.Post("/attach-list", h.AttachList)
				r.Post("/approve-list", h.ApproveList)
				r.Get("/preview-list", h.ListPreview)

				r.Post("/generate-copy", h.GenerateCopy)
				r.Post("/approve-copy", h.ApproveCopy)
				r.Post("/reject-copy", h.RejectCopy)

				r.Put("/intermediaries", h.UpdateIntermediaries)
				r.Put("/launch-status", h.UpdateLaunchStatus)

				r.Get("/approvals", h.ListApprovals)
			})
		})

		r.Route("/executions", func(r chi.Router) {
			r.Route("/{executionID}", func(r chi.Router) {
				r.Get("/", h.GetExecution)
				r.Post("/approve", h.ApproveExecution)
			})
		})

		r.Route("/lists", func(r chi.Router) {
			r.Post("/", h.UploadList)
			r.Get("/", h.ListLists)
			r.Route("/{listID}", func(r chi.Router) {
				r.Get("/", h.GetList)
				r.Post("/approve", h.ApproveStandaloneList)
				r.Delete("/", h.DeleteList)
			})
		})
	})

	return r
}
