package repository

import (
	"context"
	"errors"

	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const knowledgeChunkColumns = `id, document_id, content, chunk_index, total_chunks, word_count,
	keywords, concepts, category, subcategory, confidence_score, section,
	similar_chunks, related_concepts, created_at`

// DocumentKnowledgeRepository persists document knowledge aggregates.
// It holds the pool rather than a dbtx because SaveDocument opens its
// own transaction.
type DocumentKnowledgeRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentKnowledgeRepository(pool *pgxpool.Pool) *DocumentKnowledgeRepository {
	return &DocumentKnowledgeRepository{pool: pool}
}

func (r *DocumentKnowledgeRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM document_knowledge WHERE id = $1)`,
		documentID,
	).Scan(&exists)
	return exists, err
}

// SaveDocument writes the document and all of its chunks in one
// transaction. The document id is the primary key, so a concurrent
// writer that slipped past the Exists check loses here instead of
// producing a duplicate.
func (r *DocumentKnowledgeRepository) SaveDocument(ctx context.Context, doc *domain.DocumentKnowledge, chunks []domain.KnowledgeChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmdTag, err := tx.Exec(ctx,
		`INSERT INTO document_knowledge
			(id, file_name, original_file_id, content_type, summary, key_topics,
			 business_value, implementation_complexity, target_audience, extracted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		doc.ID, doc.FileName, doc.OriginalFileID, doc.ContentType, doc.Summary, doc.KeyTopics,
		doc.BusinessValue, doc.ImplementationComplexity, doc.TargetAudience, doc.ExtractedAt,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeAlreadyExists
	}

	for _, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(id, document_id, content, chunk_index, total_chunks, word_count,
				 keywords, concepts, category, subcategory, confidence_score, section,
				 similar_chunks, related_concepts, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			c.ID, c.DocumentID, c.Content, c.ChunkIndex, c.TotalChunks, c.WordCount,
			c.Keywords, c.Concepts, c.Category, nullableString(c.Subcategory), c.ConfidenceScore,
			nullableString(c.Section), c.SimilarChunks, c.RelatedConcepts, c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *DocumentKnowledgeRepository) GetByID(ctx context.Context, documentID string) (*domain.DocumentKnowledge, error) {
	var doc domain.DocumentKnowledge
	err := r.pool.QueryRow(ctx,
		`SELECT id, file_name, original_file_id, content_type, summary, key_topics,
		        business_value, implementation_complexity, target_audience, extracted_at
		 FROM document_knowledge WHERE id = $1`,
		documentID,
	).Scan(&doc.ID, &doc.FileName, &doc.OriginalFileID, &doc.ContentType, &doc.Summary, &doc.KeyTopics,
		&doc.BusinessValue, &doc.ImplementationComplexity, &doc.TargetAudience, &doc.ExtractedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentKnowledgeRepository) GetByFileID(ctx context.Context, fileID string) (*domain.DocumentKnowledge, error) {
	return r.GetByID(ctx, domain.KnowledgeID(fileID))
}

func (r *DocumentKnowledgeRepository) GetChunks(ctx context.Context, documentID string) ([]domain.KnowledgeChunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+knowledgeChunkColumns+`
		 FROM knowledge_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *DocumentKnowledgeRepository) ListChunksByCategory(ctx context.Context, category string, limit int) ([]domain.KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+knowledgeChunkColumns+`
		 FROM knowledge_chunks
		 WHERE category = $1
		 ORDER BY confidence_score DESC, created_at DESC
		 LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *DocumentKnowledgeRepository) SearchChunksByKeyword(ctx context.Context, keyword string, limit int) ([]domain.KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+knowledgeChunkColumns+`
		 FROM knowledge_chunks
		 WHERE $1 = ANY(keywords)
		 ORDER BY confidence_score DESC, created_at DESC
		 LIMIT $2`,
		keyword, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func scanChunkRows(rows pgx.Rows) ([]domain.KnowledgeChunk, error) {
	var chunks []domain.KnowledgeChunk
	for rows.Next() {
		var c domain.KnowledgeChunk
		var subcategory, section pgtype.Text
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex, &c.TotalChunks, &c.WordCount,
			&c.Keywords, &c.Concepts, &c.Category, &subcategory, &c.ConfidenceScore, &section,
			&c.SimilarChunks, &c.RelatedConcepts, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if subcategory.Valid {
			c.Subcategory = subcategory.String
		}
		if section.Valid {
			c.Section = section.String
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
