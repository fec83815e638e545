package webhook

import (
	"net/http"

	"github.com/12344-munna/facebook-webhook-backend/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/webhook", h.Verify)
	r.Post("/webhook", h.HandleEvents)
	r.Get("/products/{productID}", h.GetProduct)
	r.Handle("/metrics", metrics.Handler())
	return r
}
