package domain

import (
	"fmt"
	"time"
)

// Complexity represents the implementation complexity of a document
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// KnowledgeIDPrefix prefixes every DocumentKnowledge id. The full id is
// derived deterministically from the file id, which makes the id itself
// the idempotency key for the at-most-once-per-file write.
const KnowledgeIDPrefix = "knowledge_"

// KnowledgeID derives the DocumentKnowledge id for a file.
func KnowledgeID(fileID string) string {
	return KnowledgeIDPrefix + fileID
}

// KnowledgeChunk is one classified, keyword-annotated segment of a
// document's extracted text. Immutable once created.
type KnowledgeChunk struct {
	ID              string
	DocumentID      string
	Content         string
	ChunkIndex      int
	TotalChunks     int
	WordCount       int
	Keywords        []string
	Concepts        []string
	Category        string
	Subcategory     string
	ConfidenceScore float64
	Section         string
	SimilarChunks   []string
	RelatedConcepts []string
	CreatedAt       time.Time
}

// DocumentKnowledge is the aggregate of all chunks plus document-level
// classification for one SourceFile. Written at most once per file.
type DocumentKnowledge struct {
	ID                       string
	FileName                 string
	OriginalFileID           string
	ContentType              string
	Summary                  string
	KeyTopics                []string
	BusinessValue            string
	ImplementationComplexity Complexity
	TargetAudience           []string
	ExtractedAt              time.Time
}

// NewDocumentKnowledge creates a DocumentKnowledge with its derived id.
func NewDocumentKnowledge(fileID, fileName, contentType string, extractedAt time.Time) *DocumentKnowledge {
	return &DocumentKnowledge{
		ID:             KnowledgeID(fileID),
		FileName:       fileName,
		OriginalFileID: fileID,
		ContentType:    contentType,
		ExtractedAt:    extractedAt,
	}
}

// ValidateDocumentKnowledge validates a DocumentKnowledge instance
func ValidateDocumentKnowledge(d *DocumentKnowledge) error {
	if d == nil {
		return fmt.Errorf("document knowledge cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document knowledge ID is required")
	}

	if d.OriginalFileID == "" {
		return fmt.Errorf("document knowledge OriginalFileID is required")
	}

	if d.ID != KnowledgeID(d.OriginalFileID) {
		return fmt.Errorf("document knowledge ID must be derived from the file ID")
	}

	if !isValidComplexity(d.ImplementationComplexity) {
		return fmt.Errorf("document knowledge ImplementationComplexity is invalid: %s", d.ImplementationComplexity)
	}

	return nil
}

// ValidateKnowledgeChunk validates a KnowledgeChunk instance
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("knowledge chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("knowledge chunk DocumentID is required")
	}

	if c.Content == "" {
		return fmt.Errorf("knowledge chunk Content is required")
	}

	if c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return fmt.Errorf("knowledge chunk ChunkIndex %d out of range [0,%d)", c.ChunkIndex, c.TotalChunks)
	}

	if c.ConfidenceScore < 0 || c.ConfidenceScore > 1 {
		return fmt.Errorf("knowledge chunk ConfidenceScore must be in [0,1]")
	}

	if c.Category == "" {
		return fmt.Errorf("knowledge chunk Category is required")
	}

	return nil
}

// isValidComplexity checks if a Complexity is valid
func isValidComplexity(c Complexity) bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	}
	return false
}
