package repository

import (
	"context"
	"errors"

	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalysisRepository struct {
	db dbtx
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{db: pool}
}

func NewAnalysisRepositoryWithTx(tx pgx.Tx) *AnalysisRepository {
	return &AnalysisRepository{db: tx}
}

func (r *AnalysisRepository) Create(ctx context.Context, rec *domain.AnalysisRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO analysis_records (id, file_id, owner_id, status, data, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.FileID, rec.OwnerID, rec.Status, rec.Data, rec.GeneratedAt,
	)
	return err
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, file_id, owner_id, status, data, generated_at
		 FROM analysis_records WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.FileID, &rec.OwnerID, &rec.Status, &rec.Data, &rec.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAnalysisNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *AnalysisRepository) GetByFileID(ctx context.Context, fileID string) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, file_id, owner_id, status, data, generated_at
		 FROM analysis_records
		 WHERE file_id = $1
		 ORDER BY generated_at DESC
		 LIMIT 1`,
		fileID,
	).Scan(&rec.ID, &rec.FileID, &rec.OwnerID, &rec.Status, &rec.Data, &rec.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAnalysisNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListActionable returns completed analysis records whose source file is
// still unmapped, unclaimed, and past any retry backoff. This is the
// poll-side equivalent of a completion event feed: eligibility is part
// of the query, so already-handled files never come back.
func (r *AnalysisRepository) ListActionable(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT a.id, a.file_id, a.owner_id, a.status, a.data, a.generated_at
		 FROM analysis_records a
		 JOIN source_files f ON f.id = a.file_id
		 WHERE a.status = $1
		   AND f.knowledge_mapped = FALSE
		   AND f.knowledge_processing = FALSE
		   AND f.knowledge_failed = FALSE
		   AND f.knowledge_empty = FALSE
		   AND (f.knowledge_next_retry_at IS NULL OR f.knowledge_next_retry_at <= NOW())
		 ORDER BY a.generated_at ASC
		 LIMIT $2`,
		domain.AnalysisStatusCompleted, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AnalysisRecord
	for rows.Next() {
		var rec domain.AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.FileID, &rec.OwnerID, &rec.Status, &rec.Data, &rec.GeneratedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
