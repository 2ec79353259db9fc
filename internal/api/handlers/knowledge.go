package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/brightpath-consulting/kmap/internal/api"
	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/go-chi/chi/v5"
)

// KnowledgeReader exposes the read side of the knowledge store.
type KnowledgeReader interface {
	GetByFileID(ctx context.Context, fileID string) (*domain.DocumentKnowledge, error)
	GetChunks(ctx context.Context, documentID string) ([]domain.KnowledgeChunk, error)
	ListChunksByCategory(ctx context.Context, category string, limit int) ([]domain.KnowledgeChunk, error)
	SearchChunksByKeyword(ctx context.Context, keyword string, limit int) ([]domain.KnowledgeChunk, error)
}

type KnowledgeHandler struct {
	store KnowledgeReader
}

func NewKnowledgeHandler(store KnowledgeReader) *KnowledgeHandler {
	return &KnowledgeHandler{store: store}
}

type DocumentResponse struct {
	ID                       string          `json:"id"`
	FileName                 string          `json:"file_name"`
	OriginalFileID           string          `json:"original_file_id"`
	ContentType              string          `json:"content_type"`
	Summary                  string          `json:"summary"`
	KeyTopics                []string        `json:"key_topics"`
	BusinessValue            string          `json:"business_value"`
	ImplementationComplexity string          `json:"implementation_complexity"`
	TargetAudience           []string        `json:"target_audience"`
	ExtractedAt              string          `json:"extracted_at"`
	Chunks                   []ChunkResponse `json:"chunks,omitempty"`
}

type ChunkResponse struct {
	ID              string   `json:"id"`
	ChunkIndex      int      `json:"chunk_index"`
	TotalChunks     int      `json:"total_chunks"`
	WordCount       int      `json:"word_count"`
	Category        string   `json:"category"`
	ConfidenceScore float64  `json:"confidence_score"`
	Keywords        []string `json:"keywords"`
	Concepts        []string `json:"concepts"`
	Section         string   `json:"section,omitempty"`
	Content         string   `json:"content"`
}

func documentToResponse(doc *domain.DocumentKnowledge, chunks []domain.KnowledgeChunk) *DocumentResponse {
	resp := &DocumentResponse{
		ID:                       doc.ID,
		FileName:                 doc.FileName,
		OriginalFileID:           doc.OriginalFileID,
		ContentType:              doc.ContentType,
		Summary:                  doc.Summary,
		KeyTopics:                doc.KeyTopics,
		BusinessValue:            doc.BusinessValue,
		ImplementationComplexity: string(doc.ImplementationComplexity),
		TargetAudience:           doc.TargetAudience,
		ExtractedAt:              doc.ExtractedAt.UTC().Format(time.RFC3339),
	}
	for _, c := range chunks {
		resp.Chunks = append(resp.Chunks, chunkToResponse(c))
	}
	return resp
}

func chunkToResponse(c domain.KnowledgeChunk) ChunkResponse {
	return ChunkResponse{
		ID:              c.ID,
		ChunkIndex:      c.ChunkIndex,
		TotalChunks:     c.TotalChunks,
		WordCount:       c.WordCount,
		Category:        c.Category,
		ConfidenceScore: c.ConfidenceScore,
		Keywords:        c.Keywords,
		Concepts:        c.Concepts,
		Section:         c.Section,
		Content:         c.Content,
	}
}

// GetByFile returns the knowledge document mapped from a source file,
// chunks included.
func (h *KnowledgeHandler) GetByFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	if fileID == "" {
		api.Error(w, http.StatusBadRequest, "file id is required")
		return
	}

	doc, err := h.store.GetByFileID(r.Context(), fileID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	chunks, err := h.store.GetChunks(r.Context(), doc.ID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc, chunks))
}

// SearchChunks lists chunks by category or keyword.
func (h *KnowledgeHandler) SearchChunks(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	keyword := r.URL.Query().Get("keyword")
	if category == "" && keyword == "" {
		api.Error(w, http.StatusBadRequest, "category or keyword is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var chunks []domain.KnowledgeChunk
	var err error
	if category != "" {
		chunks, err = h.store.ListChunksByCategory(r.Context(), category, limit)
	} else {
		chunks, err = h.store.SearchChunksByKeyword(r.Context(), keyword, limit)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		resp = append(resp, chunkToResponse(c))
	}
	api.Success(w, http.StatusOK, resp)
}
