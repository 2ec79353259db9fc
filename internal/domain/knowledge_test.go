package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeID(t *testing.T) {
	assert.Equal(t, "knowledge_f1", KnowledgeID("f1"))
	assert.Equal(t, "knowledge_", KnowledgeIDPrefix)
}

func TestNewDocumentKnowledge(t *testing.T) {
	now := time.Now().UTC()
	doc := NewDocumentKnowledge("f1", "report.pdf", "application/pdf", now)

	assert.Equal(t, "knowledge_f1", doc.ID)
	assert.Equal(t, "f1", doc.OriginalFileID)
	assert.Equal(t, "report.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, now, doc.ExtractedAt)
}

func TestValidateDocumentKnowledge(t *testing.T) {
	valid := func() *DocumentKnowledge {
		doc := NewDocumentKnowledge("f1", "report.pdf", "application/pdf", time.Now().UTC())
		doc.ImplementationComplexity = ComplexityLow
		return doc
	}

	tests := []struct {
		name    string
		mutate  func(*DocumentKnowledge)
		wantErr string
	}{
		{"valid", func(d *DocumentKnowledge) {}, ""},
		{"missing id", func(d *DocumentKnowledge) { d.ID = "" }, "ID is required"},
		{"missing file id", func(d *DocumentKnowledge) { d.OriginalFileID = "" }, "OriginalFileID is required"},
		{"underived id", func(d *DocumentKnowledge) { d.ID = "knowledge_other" }, "derived from the file ID"},
		{"invalid complexity", func(d *DocumentKnowledge) { d.ImplementationComplexity = "extreme" }, "ImplementationComplexity is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			err := ValidateDocumentKnowledge(doc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.Error(t, ValidateDocumentKnowledge(nil))
	})
}

func TestValidateKnowledgeChunk(t *testing.T) {
	valid := func() *KnowledgeChunk {
		return &KnowledgeChunk{
			ID:              "c1",
			DocumentID:      "knowledge_f1",
			Content:         "some content",
			ChunkIndex:      0,
			TotalChunks:     2,
			WordCount:       2,
			Category:        "general",
			ConfidenceScore: 0,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*KnowledgeChunk)
		wantErr string
	}{
		{"valid", func(c *KnowledgeChunk) {}, ""},
		{"zero confidence is valid", func(c *KnowledgeChunk) { c.ConfidenceScore = 0 }, ""},
		{"missing id", func(c *KnowledgeChunk) { c.ID = "" }, "ID is required"},
		{"missing document id", func(c *KnowledgeChunk) { c.DocumentID = "" }, "DocumentID is required"},
		{"missing content", func(c *KnowledgeChunk) { c.Content = "" }, "Content is required"},
		{"negative index", func(c *KnowledgeChunk) { c.ChunkIndex = -1 }, "out of range"},
		{"index beyond total", func(c *KnowledgeChunk) { c.ChunkIndex = 2 }, "out of range"},
		{"confidence above one", func(c *KnowledgeChunk) { c.ConfidenceScore = 1.5 }, "must be in [0,1]"},
		{"missing category", func(c *KnowledgeChunk) { c.Category = "" }, "Category is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := valid()
			tt.mutate(chunk)
			err := ValidateKnowledgeChunk(chunk)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestComplexityConstants(t *testing.T) {
	tests := []struct {
		name       string
		complexity Complexity
		expected   string
	}{
		{"Low", ComplexityLow, "low"},
		{"Medium", ComplexityMedium, "medium"},
		{"High", ComplexityHigh, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.complexity))
		})
	}
}
