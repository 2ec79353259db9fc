package domain

import (
	"fmt"
	"time"
)

// FileStatus represents the upload lifecycle status of a source file
type FileStatus string

const (
	FileStatusUploaded   FileStatus = "uploaded"
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
)

// FilePriority is the optional user-supplied priority of a source file
type FilePriority string

const (
	FilePriorityLow      FilePriority = "low"
	FilePriorityNormal   FilePriority = "normal"
	FilePriorityHigh     FilePriority = "high"
	FilePriorityCritical FilePriority = "critical"
)

// SourceFile represents an uploaded file and its knowledge-pipeline flags.
// The upload subsystem creates it; this pipeline only toggles the knowledge
// fields and copies analysis metadata onto it.
type SourceFile struct {
	ID          string
	OwnerID     string
	FileName    string
	ContentType string
	SizeBytes   int64
	StoragePath string
	Status      FileStatus

	// Optional user-supplied classification hints
	Category    string
	Tags        []string
	Description string
	Priority    FilePriority

	// Knowledge pipeline state
	KnowledgeMapped      bool
	KnowledgeProcessing  bool
	KnowledgeEmpty       bool
	KnowledgeFailed      bool
	KnowledgeError       string
	KnowledgeAttempts    int32
	KnowledgeClaimedAt   *time.Time
	KnowledgeNextRetryAt *time.Time

	// Metadata copied from the analysis on successful mapping
	BusinessCategory string
	DocumentType     string
	SMBRelevance     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSourceFile creates a new SourceFile instance
func NewSourceFile(id, ownerID, fileName, contentType, storagePath string, sizeBytes int64, createdAt time.Time) *SourceFile {
	return &SourceFile{
		ID:          id,
		OwnerID:     ownerID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		StoragePath: storagePath,
		Status:      FileStatusUploaded,
		Priority:    FilePriorityNormal,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// EligibleForMapping reports whether the file may be claimed by the pipeline.
// A file claimed by another worker, already mapped, dead-lettered, or marked
// terminal-empty is not eligible.
func (f *SourceFile) EligibleForMapping() bool {
	return !f.KnowledgeMapped && !f.KnowledgeProcessing && !f.KnowledgeFailed && !f.KnowledgeEmpty
}

// ValidateSourceFile validates a SourceFile instance
func ValidateSourceFile(f *SourceFile) error {
	if f == nil {
		return fmt.Errorf("source file cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("source file ID is required")
	}

	if f.OwnerID == "" {
		return fmt.Errorf("source file OwnerID is required")
	}

	if f.FileName == "" {
		return fmt.Errorf("source file FileName is required")
	}

	if f.KnowledgeMapped && f.KnowledgeProcessing {
		return fmt.Errorf("source file cannot be both mapped and processing")
	}

	return nil
}
