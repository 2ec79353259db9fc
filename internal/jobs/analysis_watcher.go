package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brightpath-consulting/kmap/internal/domain"
	"golang.org/x/sync/errgroup"
)

// AnalysisFeed supplies completed analysis records whose files still
// await knowledge mapping.
type AnalysisFeed interface {
	ListActionable(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error)
}

// StaleReclaimer releases claims abandoned by crashed workers.
type StaleReclaimer interface {
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// AnalysisProcessor maps one analysis record into document knowledge.
type AnalysisProcessor interface {
	ProcessAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error
}

// WatcherConfig tunes one polling pass of the analysis watcher.
type WatcherConfig struct {
	BatchSize       int
	Concurrency     int
	StaleClaimAfter time.Duration
}

// DefaultWatcherConfig provides production watcher settings.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		BatchSize:       50,
		Concurrency:     4,
		StaleClaimAfter: 10 * time.Minute,
	}
}

// AnalysisWatcher drains the actionable-analysis feed on every poll
// tick. Records are handed to the processor with bounded concurrency;
// each record's claim makes a racing pass over the same batch harmless.
type AnalysisWatcher struct {
	feed      AnalysisFeed
	files     StaleReclaimer
	processor AnalysisProcessor
	cfg       WatcherConfig
}

// NewAnalysisWatcher creates a new AnalysisWatcher instance
func NewAnalysisWatcher(feed AnalysisFeed, files StaleReclaimer, processor AnalysisProcessor, cfg WatcherConfig) *AnalysisWatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWatcherConfig().BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultWatcherConfig().Concurrency
	}
	if cfg.StaleClaimAfter <= 0 {
		cfg.StaleClaimAfter = DefaultWatcherConfig().StaleClaimAfter
	}
	return &AnalysisWatcher{
		feed:      feed,
		files:     files,
		processor: processor,
		cfg:       cfg,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *AnalysisWatcher) ProcessJobs(ctx context.Context) error {
	released, err := w.files.ReclaimStale(ctx, time.Now().UTC().Add(-w.cfg.StaleClaimAfter))
	if err != nil {
		return fmt.Errorf("failed to reclaim stale claims: %w", err)
	}
	if released > 0 {
		log.Printf("Reclaimed %d stale knowledge claims", released)
	}

	records, err := w.feed.ListActionable(ctx, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list actionable analyses: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	log.Printf("Processing %d actionable analysis records", len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := w.processor.ProcessAnalysis(gctx, rec); err != nil {
				// The processor already recorded the failure on the file;
				// one bad record must not sink the rest of the batch.
				log.Printf("Error processing analysis %s: %v", rec.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
