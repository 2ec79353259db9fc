package domain

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisStatus represents the status of an analysis run
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusError     AnalysisStatus = "error"
)

// AnalysisRecord represents the output of an external AI analysis run
// against a SourceFile. This pipeline treats it as read-only.
type AnalysisRecord struct {
	ID           string
	FileID       string
	OwnerID      string
	AnalysisType string
	Status       AnalysisStatus
	Data         AnalysisPayload
	GeneratedAt  time.Time
}

// AnalysisPayload is the opaque JSON payload produced by the analysis
// subsystem. Only the listed fields are consumed.
type AnalysisPayload struct {
	Summary            string             `json:"summary"`
	FileNameProcessed  string             `json:"file_name_processed"`
	ContentType        string             `json:"content_type"`
	SizeBytes          int64              `json:"size_bytes"`
	DocumentType       string             `json:"document_type,omitempty"`
	BusinessCategory   string             `json:"business_category,omitempty"`
	SMBRelevance       string             `json:"smb_relevance,omitempty"`
	FullTextAnnotation string             `json:"full_text_annotation,omitempty"`
	Chunks             []AnalysisSubChunk `json:"chunks,omitempty"`
}

// AnalysisSubChunk is one per-section analysis entry inside a payload.
type AnalysisSubChunk struct {
	Analysis string `json:"analysis"`
}

// AnalysisMetadata is copied from the analysis payload onto the source
// file on successful mapping, for downstream queries.
type AnalysisMetadata struct {
	BusinessCategory string
	DocumentType     string
	SMBRelevance     string
}

// Completed reports whether the record is in the completed state.
func (a *AnalysisRecord) Completed() bool {
	return a.Status == AnalysisStatusCompleted
}

// ValidateAnalysisRecord validates an AnalysisRecord instance
func ValidateAnalysisRecord(a *AnalysisRecord) error {
	if a == nil {
		return fmt.Errorf("analysis record cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("analysis record ID is required")
	}

	if a.FileID == "" {
		return fmt.Errorf("analysis record FileID is required")
	}

	if !isValidAnalysisStatus(a.Status) {
		return fmt.Errorf("analysis record Status is invalid: %s", a.Status)
	}

	return nil
}

// isValidAnalysisStatus checks if an AnalysisStatus is valid
func isValidAnalysisStatus(s AnalysisStatus) bool {
	switch s {
	case AnalysisStatusPending, AnalysisStatusCompleted, AnalysisStatusError:
		return true
	}
	return false
}

// Empty reports whether the payload carries no extractable free text.
func (p AnalysisPayload) Empty() bool {
	if strings.TrimSpace(p.Summary) != "" {
		return false
	}
	if strings.TrimSpace(p.FullTextAnnotation) != "" {
		return false
	}
	for _, c := range p.Chunks {
		if strings.TrimSpace(c.Analysis) != "" {
			return false
		}
	}
	return true
}
