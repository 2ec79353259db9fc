package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brightpath-consulting/kmap/internal/domain"
)

// DeadLetterArchiver writes exhausted analysis records to object storage
// so they can be inspected and replayed by hand.
type DeadLetterArchiver struct {
	client *S3Client
}

func NewDeadLetterArchiver(client *S3Client) *DeadLetterArchiver {
	return &DeadLetterArchiver{client: client}
}

type deadLetterEnvelope struct {
	AnalysisID string                 `json:"analysis_id"`
	FileID     string                 `json:"file_id"`
	OwnerID    string                 `json:"owner_id"`
	Cause      string                 `json:"cause"`
	ArchivedAt time.Time              `json:"archived_at"`
	Payload    domain.AnalysisPayload `json:"payload"`
}

// Archive stores the record payload under dead-letters/<file>/<analysis>.json.
func (a *DeadLetterArchiver) Archive(ctx context.Context, rec *domain.AnalysisRecord, cause error) error {
	env := deadLetterEnvelope{
		AnalysisID: rec.ID,
		FileID:     rec.FileID,
		OwnerID:    rec.OwnerID,
		ArchivedAt: time.Now().UTC(),
		Payload:    rec.Data,
	}
	if cause != nil {
		env.Cause = cause.Error()
	}

	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	key := fmt.Sprintf("dead-letters/%s/%s.json", rec.FileID, rec.ID)
	return a.client.PutObject(ctx, key, "application/json", body)
}
