package handlers

import (
	"context"
	"net/http"

	"github.com/brightpath-consulting/kmap/internal/api"
	"github.com/brightpath-consulting/kmap/internal/repository"
)

// StatsProvider summarizes knowledge pipeline progress.
type StatsProvider interface {
	GetKnowledgeStats(ctx context.Context) (*repository.KnowledgeStats, error)
}

type StatsHandler struct {
	provider StatsProvider
}

func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.provider.GetKnowledgeStats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, stats)
}
