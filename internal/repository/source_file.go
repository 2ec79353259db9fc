package repository

import (
	"context"
	"errors"
	"time"

	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sourceFileColumns = `id, owner_id, file_name, content_type, size_bytes, storage_path, status,
	category, tags, description, priority,
	knowledge_mapped, knowledge_processing, knowledge_empty, knowledge_failed,
	knowledge_error, knowledge_attempts, knowledge_claimed_at, knowledge_next_retry_at,
	business_category, document_type, smb_relevance,
	created_at, updated_at`

type SourceFileRepository struct {
	db dbtx
}

func NewSourceFileRepository(pool *pgxpool.Pool) *SourceFileRepository {
	return &SourceFileRepository{db: pool}
}

func NewSourceFileRepositoryWithTx(tx pgx.Tx) *SourceFileRepository {
	return &SourceFileRepository{db: tx}
}

func (r *SourceFileRepository) Create(ctx context.Context, f *domain.SourceFile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO source_files
			(id, owner_id, file_name, content_type, size_bytes, storage_path, status,
			 category, tags, description, priority, knowledge_attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		f.ID, f.OwnerID, f.FileName, f.ContentType, f.SizeBytes, f.StoragePath, f.Status,
		nullableString(f.Category), f.Tags, nullableString(f.Description), f.Priority,
		f.KnowledgeAttempts, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

func (r *SourceFileRepository) GetByID(ctx context.Context, id string) (*domain.SourceFile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sourceFileColumns+` FROM source_files WHERE id = $1`, id)
	f, err := scanSourceFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// ClaimForMapping atomically claims the file for this worker. The claim
// is a single conditional update, so of any number of concurrent callers
// exactly one sees true. Files already mapped, claimed, failed, or
// terminal-empty are never claimed.
func (r *SourceFileRepository) ClaimForMapping(ctx context.Context, fileID string) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE source_files
		 SET knowledge_processing = TRUE,
		     knowledge_claimed_at = NOW(),
		     updated_at = NOW()
		 WHERE id = $1
		   AND knowledge_mapped = FALSE
		   AND knowledge_processing = FALSE
		   AND knowledge_failed = FALSE
		   AND knowledge_empty = FALSE`,
		fileID,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() == 1, nil
}

// CompleteMapping flips the file to mapped and copies the analysis
// metadata onto it. Only the claim holder calls this.
func (r *SourceFileRepository) CompleteMapping(ctx context.Context, fileID string, meta domain.AnalysisMetadata) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE source_files
		 SET knowledge_mapped = TRUE,
		     knowledge_processing = FALSE,
		     knowledge_error = NULL,
		     knowledge_claimed_at = NULL,
		     knowledge_next_retry_at = NULL,
		     business_category = $2,
		     document_type = $3,
		     smb_relevance = $4,
		     updated_at = NOW()
		 WHERE id = $1`,
		fileID,
		nullableString(meta.BusinessCategory),
		nullableString(meta.DocumentType),
		nullableString(meta.SMBRelevance),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceFileNotFound
	}
	return nil
}

// MarkEmpty records the terminal-empty outcome: the file stays unmapped
// but is never offered to the pipeline again.
func (r *SourceFileRepository) MarkEmpty(ctx context.Context, fileID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE source_files
		 SET knowledge_empty = TRUE,
		     knowledge_processing = FALSE,
		     knowledge_claimed_at = NULL,
		     updated_at = NOW()
		 WHERE id = $1`,
		fileID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceFileNotFound
	}
	return nil
}

// ReleaseForRetry drops the claim after a failed attempt and schedules
// the next one.
func (r *SourceFileRepository) ReleaseForRetry(ctx context.Context, fileID string, nextRetryAt time.Time, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE source_files
		 SET knowledge_processing = FALSE,
		     knowledge_claimed_at = NULL,
		     knowledge_attempts = knowledge_attempts + 1,
		     knowledge_next_retry_at = $2,
		     knowledge_error = $3,
		     updated_at = NOW()
		 WHERE id = $1`,
		fileID, nextRetryAt, nullableString(errMsg),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceFileNotFound
	}
	return nil
}

// MarkFailed dead-letters the file after its retry budget is spent.
func (r *SourceFileRepository) MarkFailed(ctx context.Context, fileID string, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE source_files
		 SET knowledge_failed = TRUE,
		     knowledge_processing = FALSE,
		     knowledge_claimed_at = NULL,
		     knowledge_attempts = knowledge_attempts + 1,
		     knowledge_error = $2,
		     updated_at = NOW()
		 WHERE id = $1`,
		fileID, nullableString(errMsg),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceFileNotFound
	}
	return nil
}

// ReclaimStale releases claims older than the cutoff so files stuck by
// a crashed worker flow back into the feed. Returns the number of
// claims released.
func (r *SourceFileRepository) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE source_files
		 SET knowledge_processing = FALSE,
		     knowledge_claimed_at = NULL,
		     updated_at = NOW()
		 WHERE knowledge_processing = TRUE
		   AND knowledge_claimed_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// KnowledgeStats summarizes pipeline progress across all files.
type KnowledgeStats struct {
	Total      int64 `json:"total"`
	Mapped     int64 `json:"mapped"`
	Processing int64 `json:"processing"`
	Empty      int64 `json:"empty"`
	Failed     int64 `json:"failed"`
	Pending    int64 `json:"pending"`
}

func (r *SourceFileRepository) GetKnowledgeStats(ctx context.Context) (*KnowledgeStats, error) {
	var s KnowledgeStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE knowledge_mapped),
		        COUNT(*) FILTER (WHERE knowledge_processing),
		        COUNT(*) FILTER (WHERE knowledge_empty),
		        COUNT(*) FILTER (WHERE knowledge_failed),
		        COUNT(*) FILTER (WHERE NOT knowledge_mapped AND NOT knowledge_processing
		                           AND NOT knowledge_empty AND NOT knowledge_failed)
		 FROM source_files`,
	).Scan(&s.Total, &s.Mapped, &s.Processing, &s.Empty, &s.Failed, &s.Pending)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSourceFile(row pgx.Row) (*domain.SourceFile, error) {
	var f domain.SourceFile
	var category, description, knowledgeError pgtype.Text
	var businessCategory, documentType, smbRelevance pgtype.Text
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.FileName, &f.ContentType, &f.SizeBytes, &f.StoragePath, &f.Status,
		&category, &f.Tags, &description, &f.Priority,
		&f.KnowledgeMapped, &f.KnowledgeProcessing, &f.KnowledgeEmpty, &f.KnowledgeFailed,
		&knowledgeError, &f.KnowledgeAttempts, &f.KnowledgeClaimedAt, &f.KnowledgeNextRetryAt,
		&businessCategory, &documentType, &smbRelevance,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		f.Category = category.String
	}
	if description.Valid {
		f.Description = description.String
	}
	if knowledgeError.Valid {
		f.KnowledgeError = knowledgeError.String
	}
	if businessCategory.Valid {
		f.BusinessCategory = businessCategory.String
	}
	if documentType.Valid {
		f.DocumentType = documentType.String
	}
	if smbRelevance.Valid {
		f.SMBRelevance = smbRelevance.String
	}
	return &f, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
