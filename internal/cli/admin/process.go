package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/brightpath-consulting/kmap/internal/config"
	"github.com/brightpath-consulting/kmap/internal/database"
	"github.com/brightpath-consulting/kmap/internal/pipeline"
	"github.com/brightpath-consulting/kmap/internal/repository"
	"github.com/brightpath-consulting/kmap/internal/service"
	"github.com/spf13/cobra"
)

// ProcessCmd returns the process command
func ProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <analysis-id>",
		Short: "Run knowledge mapping for a single analysis record",
		Long:  "Fetch one analysis record and run it through the mapping pipeline, respecting the usual eligibility and claim rules",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	analysisID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	rules, err := loadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return err
	}

	fileRepo := repository.NewSourceFileRepository(pool)
	analysisRepo := repository.NewAnalysisRepository(pool)
	knowledgeRepo := repository.NewDocumentKnowledgeRepository(pool)

	rec, err := analysisRepo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("failed to load analysis %s: %w", analysisID, err)
	}

	mapper := service.NewKnowledgeMapper(fileRepo, knowledgeRepo, rules, service.MapperConfig{
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff,
		Chunking:     pipeline.DefaultChunkConfig(),
	})

	if err := mapper.ProcessAnalysis(ctx, rec); err != nil {
		return fmt.Errorf("mapping failed: %w", err)
	}

	log.Printf("analysis %s processed (file %s)", rec.ID, rec.FileID)
	return nil
}
