package server

import (
	"net/http"

	"archie/internal/gateway/handler"
	"archie/internal/gateway/middleware"

	"github.com/go-chi/chi/v5"
)

func NewMux(h *handler.ConversationHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/generate-architecture", h.GenerateArchitecture)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", h.Delete)
				r.Post("/messages", h.SendMessage)
				r.Post("/approve", h.Approve)
				r.Get("/deep-dive/progress", h.DeepDiveSSE)
				r.Get("/deep-dive/ws", h.DeepDiveWS)
				r.Get("/diagram", h.Diagram)
				r.Get("/components/{componentId}/details", h.ComponentDetail)
			})
		})
	})
	return r
}
