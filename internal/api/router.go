package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/newsletter-api/internal/api/middleware"
	"github.com/phrazzld/newsletter-api/internal/store"
)

// NewRouter wires the middleware stack and every route.
func NewRouter(subscribers store.SubscriberStore, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	subscriptionHandler := NewSubscriptionHandler(subscribers, logger)

	r.Get("/health", HealthCheck)
	r.Post("/subscriptions", subscriptionHandler.Subscribe)

	return r
}
