package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/corpusd/internal/api"
	"github.com/cloo-solutions/corpusd/internal/api/handlers"
	"github.com/cloo-solutions/corpusd/internal/api/middleware"
)

type RouterConfig struct {
	APIToken       string
	ContentHandler *handlers.ContentHandler
	QueryHandler   *handlers.QueryHandler
	SyncHandler    *handlers.SyncHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.APIToken != "" {
			r.Use(middleware.BearerAuth(cfg.APIToken))
		}

		r.Route("/content", func(r chi.Router) {
			r.Post("/", cfg.ContentHandler.Upload)
			r.Get("/", cfg.ContentHandler.List)
			r.Get("/{id}", cfg.ContentHandler.Get)
			r.Delete("/{id}", cfg.ContentHandler.Delete)
			r.Get("/{id}/archive", cfg.ContentHandler.Archive)
		})

		r.Post("/search", cfg.QueryHandler.Search)
		r.Post("/filter", cfg.QueryHandler.Filter)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", cfg.SyncHandler.Trigger)
			r.Get("/status", cfg.SyncHandler.Status)
			r.Get("/runs", cfg.SyncHandler.History)
		})
	})

	return r
}
