package server

import (
	"net/http"

	"github.com/brightpath-consulting/kmap/internal/api"
	"github.com/brightpath-consulting/kmap/internal/api/handlers"
	"github.com/brightpath-consulting/kmap/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	StatsHandler     *handlers.StatsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", cfg.StatsHandler.Get)

	r.Route("/knowledge", func(r chi.Router) {
		r.Get("/files/{fileId}", cfg.KnowledgeHandler.GetByFile)
		r.Get("/chunks", cfg.KnowledgeHandler.SearchChunks)
	})

	return r
}
