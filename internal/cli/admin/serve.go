package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightpath-consulting/kmap/internal/api/handlers"
	"github.com/brightpath-consulting/kmap/internal/config"
	"github.com/brightpath-consulting/kmap/internal/database"
	"github.com/brightpath-consulting/kmap/internal/jobs"
	"github.com/brightpath-consulting/kmap/internal/pipeline"
	"github.com/brightpath-consulting/kmap/internal/repository"
	"github.com/brightpath-consulting/kmap/internal/server"
	"github.com/brightpath-consulting/kmap/internal/service"
	"github.com/brightpath-consulting/kmap/internal/storage"
	"github.com/brightpath-consulting/kmap/internal/taxonomy"
	"github.com/brightpath-consulting/kmap/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the knowledge mapping daemon",
		Long:  "Start the analysis watcher and the operational HTTP server",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-watcher", false, "Serve the HTTP API without the analysis watcher")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rules, err := loadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return err
	}

	fileRepo := repository.NewSourceFileRepository(pool)
	analysisRepo := repository.NewAnalysisRepository(pool)
	knowledgeRepo := repository.NewDocumentKnowledgeRepository(pool)

	mapper := service.NewKnowledgeMapper(fileRepo, knowledgeRepo, rules, service.MapperConfig{
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff,
		Chunking:     pipeline.DefaultChunkConfig(),
	})

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("dead-letter bucket '%s' ready", cfg.S3Bucket)
		mapper.WithDeadLetterArchive(storage.NewDeadLetterArchiver(s3Client))
	}

	var watcherWorker *jobs.Worker
	noWatcher, _ := cmd.Flags().GetBool("no-watcher")
	if !noWatcher {
		watcher := jobs.NewAnalysisWatcher(analysisRepo, fileRepo, mapper, jobs.WatcherConfig{
			BatchSize:       cfg.BatchSize,
			Concurrency:     cfg.Concurrency,
			StaleClaimAfter: cfg.StaleClaimAfter,
		})
		watcherWorker = jobs.NewWorker(watcher, cfg.PollInterval)
		go watcherWorker.Start(ctx)
		log.Println("analysis watcher started")
	}

	// Reload taxonomy rules on SIGHUP without restarting the daemon.
	if cfg.TaxonomyPath != "" {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				if err := rules.Reload(cfg.TaxonomyPath); err != nil {
					log.Printf("taxonomy reload failed, keeping previous rules: %v", err)
				} else {
					log.Printf("taxonomy rules reloaded from %s", cfg.TaxonomyPath)
				}
			}
		}()
	}

	router := server.NewRouter(server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeRepo),
		StatsHandler:     handlers.NewStatsHandler(fileRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if watcherWorker != nil {
		watcherWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func loadTaxonomy(path string) (*taxonomy.Store, error) {
	if path == "" {
		return taxonomy.NewStore(taxonomy.Default()), nil
	}

	tax, err := taxonomy.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy from %s: %w", path, err)
	}
	log.Printf("loaded %d taxonomy rules from %s", len(tax.Rules), path)
	return taxonomy.NewStore(tax), nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
