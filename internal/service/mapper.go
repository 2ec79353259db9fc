package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/brightpath-consulting/kmap/internal/pipeline"
	"github.com/brightpath-consulting/kmap/internal/taxonomy"
	"github.com/brightpath-consulting/kmap/internal/telemetry"
	"github.com/google/uuid"
)

// SourceFileStore defines the source-file persistence operations the
// mapper needs. ClaimForMapping must be atomic: the claim succeeds only
// if the file is currently unclaimed and unmapped, and a false return
// means another worker owns the file.
type SourceFileStore interface {
	GetByID(ctx context.Context, id string) (*domain.SourceFile, error)
	ClaimForMapping(ctx context.Context, fileID string) (bool, error)
	CompleteMapping(ctx context.Context, fileID string, meta domain.AnalysisMetadata) error
	MarkEmpty(ctx context.Context, fileID string) error
	ReleaseForRetry(ctx context.Context, fileID string, nextRetryAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, fileID string, errMsg string) error
}

// KnowledgeStore persists document knowledge aggregates. SaveDocument is
// all-or-nothing: either the document and every chunk land, or the
// attempt counts as failed.
type KnowledgeStore interface {
	Exists(ctx context.Context, documentID string) (bool, error)
	SaveDocument(ctx context.Context, doc *domain.DocumentKnowledge, chunks []domain.KnowledgeChunk) error
}

// DeadLetterArchive receives the payload of a record that exhausted its
// retry budget, for offline inspection.
type DeadLetterArchive interface {
	Archive(ctx context.Context, rec *domain.AnalysisRecord, cause error) error
}

// IDGenerator abstracts chunk id generation for tests.
type IDGenerator interface {
	NewID() string
}

// DefaultIDGenerator generates UUIDs.
type DefaultIDGenerator struct{}

func (g *DefaultIDGenerator) NewID() string {
	return uuid.NewString()
}

// MapperConfig tunes retry and chunking behavior.
type MapperConfig struct {
	MaxAttempts  int32
	RetryBackoff time.Duration
	Chunking     pipeline.ChunkConfig
}

// DefaultMapperConfig provides production retry and chunking settings.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		MaxAttempts:  3,
		RetryBackoff: time.Minute,
		Chunking:     pipeline.DefaultChunkConfig(),
	}
}

// KnowledgeMapper turns one completed analysis record into a persisted
// DocumentKnowledge aggregate, updating the source file's processing
// state along the way.
type KnowledgeMapper struct {
	files       SourceFileStore
	knowledge   KnowledgeStore
	rules       *taxonomy.Store
	deadLetters DeadLetterArchive
	ids         IDGenerator
	cfg         MapperConfig
}

// NewKnowledgeMapper creates a new KnowledgeMapper instance.
func NewKnowledgeMapper(files SourceFileStore, knowledge KnowledgeStore, rules *taxonomy.Store, cfg MapperConfig) *KnowledgeMapper {
	return &KnowledgeMapper{
		files:     files,
		knowledge: knowledge,
		rules:     rules,
		ids:       &DefaultIDGenerator{},
		cfg:       cfg,
	}
}

// WithDeadLetterArchive attaches an archive for exhausted records.
func (m *KnowledgeMapper) WithDeadLetterArchive(archive DeadLetterArchive) *KnowledgeMapper {
	m.deadLetters = archive
	return m
}

// WithIDGenerator overrides chunk id generation.
func (m *KnowledgeMapper) WithIDGenerator(ids IDGenerator) *KnowledgeMapper {
	m.ids = ids
	return m
}

// ProcessAnalysis runs the full eligibility -> extract -> chunk ->
// classify -> assemble -> write chain for one analysis record.
//
// Outcomes:
//   - record not completed, file missing, file ineligible, or claim lost:
//     no-op, nil error
//   - no extractable text: terminal-empty, file left unmapped, nil error
//   - any processing failure after the claim: claim released with backoff,
//     or dead-lettered once attempts are exhausted; the error is returned
//     for the caller to log
func (m *KnowledgeMapper) ProcessAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error {
	if rec == nil || !rec.Completed() {
		return nil
	}

	file, err := m.files.GetByID(ctx, rec.FileID)
	if err != nil {
		if errors.Is(err, domain.ErrSourceFileNotFound) {
			log.Printf("knowledge mapper: analysis %s references missing file %s, skipping", rec.ID, rec.FileID)
			return nil
		}
		return fmt.Errorf("failed to load source file %s: %w", rec.FileID, err)
	}

	if !file.EligibleForMapping() {
		return nil
	}

	claimed, err := m.files.ClaimForMapping(ctx, file.ID)
	if err != nil {
		return fmt.Errorf("failed to claim file %s: %w", file.ID, err)
	}
	if !claimed {
		// Another worker got there first.
		return nil
	}

	if err := m.mapClaimed(ctx, file, rec); err != nil {
		return m.handleFailure(ctx, file, rec, err)
	}
	return nil
}

// mapClaimed runs the pipeline for a file this worker has claimed.
func (m *KnowledgeMapper) mapClaimed(ctx context.Context, file *domain.SourceFile, rec *domain.AnalysisRecord) error {
	docID := domain.KnowledgeID(file.ID)
	meta := domain.AnalysisMetadata{
		BusinessCategory: rec.Data.BusinessCategory,
		DocumentType:     rec.Data.DocumentType,
		SMBRelevance:     rec.Data.SMBRelevance,
	}

	exists, err := m.knowledge.Exists(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to check existing knowledge: %w", err)
	}
	if exists {
		// A previous run wrote the document but died before flipping the
		// flags. Finish the bookkeeping without writing again.
		log.Printf("knowledge mapper: document %s already exists, completing flags only", docID)
		return m.files.CompleteMapping(ctx, file.ID, meta)
	}

	text := pipeline.ExtractText(rec.Data)
	if text == "" {
		log.Printf("knowledge mapper: no extractable content for file %s, marking terminal-empty", file.ID)
		return m.files.MarkEmpty(ctx, file.ID)
	}

	segments := pipeline.SplitWords(text, m.cfg.Chunking)
	chunks := m.buildChunks(docID, file.Category, segments)

	doc := pipeline.Assemble(pipeline.AssembleInput{
		File:     file,
		Analysis: rec,
		Text:     text,
	})

	if err := m.knowledge.SaveDocument(ctx, doc, chunks); err != nil {
		return fmt.Errorf("failed to save document knowledge: %w", err)
	}

	if err := m.files.CompleteMapping(ctx, file.ID, meta); err != nil {
		return fmt.Errorf("failed to complete mapping: %w", err)
	}

	log.Printf("knowledge mapper: mapped file %s into %d chunks", file.ID, len(chunks))
	return nil
}

// buildChunks classifies each segment and materializes the chunk records.
func (m *KnowledgeMapper) buildChunks(docID, hint string, segments []pipeline.Segment) []domain.KnowledgeChunk {
	rules := m.rules.Current()
	now := time.Now().UTC()

	chunks := make([]domain.KnowledgeChunk, 0, len(segments))
	for _, seg := range segments {
		c := pipeline.Classify(seg.Content, hint, rules)
		chunks = append(chunks, domain.KnowledgeChunk{
			ID:              m.ids.NewID(),
			DocumentID:      docID,
			Content:         seg.Content,
			ChunkIndex:      seg.Index,
			TotalChunks:     seg.TotalChunks,
			WordCount:       seg.WordCount,
			Keywords:        c.Keywords,
			Concepts:        c.Concepts,
			Category:        c.Category,
			ConfidenceScore: c.Confidence,
			Section:         c.Section,
			RelatedConcepts: c.Concepts,
			CreatedAt:       now,
		})
	}

	// Adjacent windows share overlap text, which makes them the natural
	// similar-chunk relationship.
	for i := range chunks {
		if i > 0 {
			chunks[i].SimilarChunks = append(chunks[i].SimilarChunks, chunks[i-1].ID)
		}
		if i < len(chunks)-1 {
			chunks[i].SimilarChunks = append(chunks[i].SimilarChunks, chunks[i+1].ID)
		}
	}
	return chunks
}

// handleFailure releases the claim for a later retry with exponential
// backoff, or dead-letters the record once the attempt budget is spent.
func (m *KnowledgeMapper) handleFailure(ctx context.Context, file *domain.SourceFile, rec *domain.AnalysisRecord, procErr error) error {
	attempt := file.KnowledgeAttempts + 1

	if attempt >= m.cfg.MaxAttempts {
		log.Printf("knowledge mapper: file %s exhausted %d attempts, dead-lettering: %v", file.ID, attempt, procErr)
		telemetry.CaptureError(ctx, fmt.Errorf("knowledge mapping dead-lettered for file %s: %w", file.ID, procErr))

		if m.deadLetters != nil {
			if archiveErr := m.deadLetters.Archive(ctx, rec, procErr); archiveErr != nil {
				log.Printf("knowledge mapper: failed to archive dead letter for file %s: %v", file.ID, archiveErr)
			}
		}

		if markErr := m.files.MarkFailed(ctx, file.ID, procErr.Error()); markErr != nil {
			return fmt.Errorf("failed to mark file %s failed after %v: %w", file.ID, procErr, markErr)
		}
		return procErr
	}

	backoff := m.cfg.RetryBackoff * time.Duration(1<<uint(attempt-1))
	nextRetry := time.Now().UTC().Add(backoff)

	log.Printf("knowledge mapper: file %s attempt %d/%d failed, retrying after %s: %v",
		file.ID, attempt, m.cfg.MaxAttempts, backoff, procErr)

	if releaseErr := m.files.ReleaseForRetry(ctx, file.ID, nextRetry, procErr.Error()); releaseErr != nil {
		return fmt.Errorf("failed to release file %s after %v: %w", file.ID, procErr, releaseErr)
	}
	return procErr
}
