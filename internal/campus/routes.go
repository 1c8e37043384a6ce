package campus

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/ai-health", h.AIHealth)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/simple-chat", h.SimpleChat)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Require)
			r.Post("/chat", h.Chat)
			r.Get("/profile", h.Profile)
			r.Get("/history", h.History)
		})
	})
}
