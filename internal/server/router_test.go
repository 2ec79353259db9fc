package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightpath-consulting/kmap/internal/api/handlers"
	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/brightpath-consulting/kmap/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKnowledgeReader struct {
	mock.Mock
}

func (m *MockKnowledgeReader) GetByFileID(ctx context.Context, fileID string) (*domain.DocumentKnowledge, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentKnowledge), args.Error(1)
}

func (m *MockKnowledgeReader) GetChunks(ctx context.Context, documentID string) ([]domain.KnowledgeChunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnowledgeChunk), args.Error(1)
}

func (m *MockKnowledgeReader) ListChunksByCategory(ctx context.Context, category string, limit int) ([]domain.KnowledgeChunk, error) {
	args := m.Called(ctx, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnowledgeChunk), args.Error(1)
}

func (m *MockKnowledgeReader) SearchChunksByKeyword(ctx context.Context, keyword string, limit int) ([]domain.KnowledgeChunk, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnowledgeChunk), args.Error(1)
}

type MockStatsProvider struct {
	mock.Mock
}

func (m *MockStatsProvider) GetKnowledgeStats(ctx context.Context) (*repository.KnowledgeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.KnowledgeStats), args.Error(1)
}

func newTestRouter(reader *MockKnowledgeReader, stats *MockStatsProvider) http.Handler {
	return NewRouter(RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(reader),
		StatsHandler:     handlers.NewStatsHandler(stats),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(new(MockKnowledgeReader), new(MockStatsProvider))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["data"]["status"])
}

func TestRouter_Stats(t *testing.T) {
	stats := new(MockStatsProvider)
	stats.On("GetKnowledgeStats", mock.Anything).Return(&repository.KnowledgeStats{
		Total:  10,
		Mapped: 7,
		Empty:  1,
		Failed: 1,
	}, nil)

	router := newTestRouter(new(MockKnowledgeReader), stats)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data repository.KnowledgeStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(10), body.Data.Total)
	assert.Equal(t, int64(7), body.Data.Mapped)
}

func TestRouter_GetKnowledgeByFile(t *testing.T) {
	reader := new(MockKnowledgeReader)
	doc := &domain.DocumentKnowledge{
		ID:                       "knowledge_f1",
		FileName:                 "report.pdf",
		OriginalFileID:           "f1",
		ContentType:              "application/pdf",
		Summary:                  "Summary text.",
		KeyTopics:                []string{"quality"},
		BusinessValue:            "High SMB business value",
		ImplementationComplexity: domain.ComplexityLow,
		TargetAudience:           []string{"quality-staff"},
		ExtractedAt:              time.Now().UTC(),
	}
	chunks := []domain.KnowledgeChunk{
		{ID: "c1", DocumentID: doc.ID, ChunkIndex: 0, TotalChunks: 1, WordCount: 2, Category: "general", Content: "Summary text."},
	}

	reader.On("GetByFileID", mock.Anything, "f1").Return(doc, nil)
	reader.On("GetChunks", mock.Anything, "knowledge_f1").Return(chunks, nil)

	router := newTestRouter(reader, new(MockStatsProvider))

	req := httptest.NewRequest(http.MethodGet, "/knowledge/files/f1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data handlers.DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "knowledge_f1", body.Data.ID)
	assert.Equal(t, "High SMB business value", body.Data.BusinessValue)
	require.Len(t, body.Data.Chunks, 1)
	assert.Equal(t, "c1", body.Data.Chunks[0].ID)
}

func TestRouter_GetKnowledgeByFile_NotFound(t *testing.T) {
	reader := new(MockKnowledgeReader)
	reader.On("GetByFileID", mock.Anything, "ghost").Return(nil, domain.ErrKnowledgeNotFound)

	router := newTestRouter(reader, new(MockStatsProvider))

	req := httptest.NewRequest(http.MethodGet, "/knowledge/files/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SearchChunks_ByKeyword(t *testing.T) {
	reader := new(MockKnowledgeReader)
	reader.On("SearchChunksByKeyword", mock.Anything, "quality", 50).Return([]domain.KnowledgeChunk{
		{ID: "c1", Category: "manufacturing-knowledge", Keywords: []string{"quality"}},
	}, nil)

	router := newTestRouter(reader, new(MockStatsProvider))

	req := httptest.NewRequest(http.MethodGet, "/knowledge/chunks?keyword=quality", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []handlers.ChunkResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "c1", body.Data[0].ID)
}

func TestRouter_SearchChunks_ByCategory(t *testing.T) {
	reader := new(MockKnowledgeReader)
	reader.On("ListChunksByCategory", mock.Anything, "ai-applications", 5).Return([]domain.KnowledgeChunk{}, nil)

	router := newTestRouter(reader, new(MockStatsProvider))

	req := httptest.NewRequest(http.MethodGet, "/knowledge/chunks?category=ai-applications&limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	reader.AssertExpectations(t)
}

func TestRouter_SearchChunks_MissingFilter(t *testing.T) {
	router := newTestRouter(new(MockKnowledgeReader), new(MockStatsProvider))

	req := httptest.NewRequest(http.MethodGet, "/knowledge/chunks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
