//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brightpath-consulting/kmap/internal/domain"
	"github.com/brightpath-consulting/kmap/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile() *domain.SourceFile {
	now := time.Now().UTC().Truncate(time.Microsecond)
	f := domain.NewSourceFile(uuid.NewString(), "owner1", "report.pdf", "application/pdf", "uploads/report.pdf", 12000, now)
	f.Category = "Manufacturing Knowledge"
	f.Tags = []string{"plant-a"}
	return f
}

func TestSourceFileRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	retrieved, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, retrieved.ID)
	assert.Equal(t, f.OwnerID, retrieved.OwnerID)
	assert.Equal(t, f.FileName, retrieved.FileName)
	assert.Equal(t, f.Category, retrieved.Category)
	assert.Equal(t, f.Tags, retrieved.Tags)
	assert.Equal(t, domain.FilePriorityNormal, retrieved.Priority)
	assert.True(t, retrieved.EligibleForMapping())
	assert.Zero(t, retrieved.KnowledgeAttempts)
}

func TestSourceFileRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSourceFileNotFound)
}

func TestSourceFileRepository_ClaimForMapping(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	claimed, err := repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim on the same file loses.
	claimed, err = repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	retrieved, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.KnowledgeProcessing)
	require.NotNil(t, retrieved.KnowledgeClaimedAt)
}

func TestSourceFileRepository_ClaimForMapping_Contention(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	const workers = 10
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			claimed, err := repo.ClaimForMapping(ctx, f.ID)
			if err == nil && claimed {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1, "exactly one concurrent claim should win")
}

func TestSourceFileRepository_CompleteMapping(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	claimed, err := repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	meta := domain.AnalysisMetadata{
		BusinessCategory: "quality",
		DocumentType:     "operational_document",
		SMBRelevance:     "high",
	}
	require.NoError(t, repo.CompleteMapping(ctx, f.ID, meta))

	retrieved, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.KnowledgeMapped)
	assert.False(t, retrieved.KnowledgeProcessing)
	assert.Nil(t, retrieved.KnowledgeClaimedAt)
	assert.Equal(t, "quality", retrieved.BusinessCategory)
	assert.Equal(t, "operational_document", retrieved.DocumentType)
	assert.Equal(t, "high", retrieved.SMBRelevance)
	assert.False(t, retrieved.EligibleForMapping())

	// A mapped file can never be claimed again.
	claimed, err = repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestSourceFileRepository_MarkEmpty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	claimed, err := repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkEmpty(ctx, f.ID))

	retrieved, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.KnowledgeEmpty)
	assert.False(t, retrieved.KnowledgeMapped)
	assert.False(t, retrieved.KnowledgeProcessing)
	assert.False(t, retrieved.EligibleForMapping())
}

func TestSourceFileRepository_ReleaseForRetry(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	claimed, err := repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	nextRetry := time.Now().UTC().Add(2 * time.Minute).Truncate(time.Microsecond)
	require.NoError(t, repo.ReleaseForRetry(ctx, f.ID, nextRetry, "write failed"))

	retrieved, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.False(t, retrieved.KnowledgeProcessing)
	assert.Equal(t, int32(1), retrieved.KnowledgeAttempts)
	assert.Equal(t, "write failed", retrieved.KnowledgeError)
	require.NotNil(t, retrieved.KnowledgeNextRetryAt)
	assert.Equal(t, nextRetry, retrieved.KnowledgeNextRetryAt.UTC())
	assert.True(t, retrieved.EligibleForMapping())
}

func TestSourceFileRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	f := newTestFile()
	require.NoError(t, repo.Create(ctx, f))

	claimed, err := repo.ClaimForMapping(ctx, f.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkFailed(ctx, f.ID, "exhausted"))

	retrieved, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.KnowledgeFailed)
	assert.False(t, retrieved.KnowledgeProcessing)
	assert.Equal(t, "exhausted", retrieved.KnowledgeError)
	assert.False(t, retrieved.EligibleForMapping())
}

func TestSourceFileRepository_ReclaimStale(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)
	stale := newTestFile()
	fresh := newTestFile()
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))

	for _, f := range []*domain.SourceFile{stale, fresh} {
		claimed, err := repo.ClaimForMapping(ctx, f.ID)
		require.NoError(t, err)
		require.True(t, claimed)
	}

	// Age only the stale claim.
	_, err := pool.Exec(ctx,
		`UPDATE source_files SET knowledge_claimed_at = NOW() - INTERVAL '1 hour' WHERE id = $1`,
		stale.ID)
	require.NoError(t, err)

	released, err := repo.ReclaimStale(ctx, time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	retrieved, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.EligibleForMapping())

	retrieved, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.KnowledgeProcessing)
}

func TestSourceFileRepository_GetKnowledgeStats(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceFileRepository(pool)

	mapped := newTestFile()
	pending := newTestFile()
	empty := newTestFile()
	require.NoError(t, repo.Create(ctx, mapped))
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.Create(ctx, empty))

	claimed, err := repo.ClaimForMapping(ctx, mapped.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.CompleteMapping(ctx, mapped.ID, domain.AnalysisMetadata{}))

	claimed, err = repo.ClaimForMapping(ctx, empty.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.MarkEmpty(ctx, empty.ID))

	stats, err := repo.GetKnowledgeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Mapped)
	assert.Equal(t, int64(1), stats.Empty)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(0), stats.Processing)
	assert.Equal(t, int64(0), stats.Failed)
}
