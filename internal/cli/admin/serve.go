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

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/corpusd/internal/api/handlers"
	"github.com/cloo-solutions/corpusd/internal/config"
	"github.com/cloo-solutions/corpusd/internal/database"
	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/jobs"
	"github.com/cloo-solutions/corpusd/internal/openai"
	"github.com/cloo-solutions/corpusd/internal/pipeline"
	"github.com/cloo-solutions/corpusd/internal/repository"
	"github.com/cloo-solutions/corpusd/internal/server"
	"github.com/cloo-solutions/corpusd/internal/service"
	"github.com/cloo-solutions/corpusd/internal/storage"
	"github.com/cloo-solutions/corpusd/internal/tabular"
	"github.com/cloo-solutions/corpusd/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the corpus API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-sync", false, "Skip the startup sync pass and source watching")

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

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
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

	contentRepo := repository.NewContentRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	syncRunRepo := repository.NewSyncRunRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var archive service.ArchiveStoreInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archive = s3Client
	}

	// Pipeline config problems are reported here, not on the first upload.
	pipelineCfg := pipeline.DefaultConfig()
	if cfg.ProcessingConfigPath != "" {
		pipelineCfg, err = pipeline.LoadConfig(cfg.ProcessingConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load processing config: %w", err)
		}
	}
	enhancer, err := pipeline.New(pipelineCfg, cfg.PipelineTimeout)
	if err != nil {
		return fmt.Errorf("failed to build enhancement pipeline: %w", err)
	}

	var embeddingClient service.EmbeddingClient
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
		embeddingSvc := service.NewEmbeddingService(embeddingClient, contentRepo)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, 10*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	contentSvc := service.NewContentService(contentRepo, txRunner, enhancer, archive)
	filterSvc := service.NewFilterService(contentRepo)

	var searchSvc handlers.SearchService
	if embeddingClient != nil {
		searchSvc = service.NewSearchService(contentRepo, embeddingClient)
	} else {
		searchSvc = &NoOpSearchService{}
	}

	var syncSvc handlers.SyncService = &NoOpSyncService{}
	var watcher *jobs.SourceWatcher
	noSync, _ := cmd.Flags().GetBool("no-sync")
	if cfg.HasSource() && !noSync {
		reader := tabular.NewReader(cfg.SourcePath, tabular.SourceSchema{
			PromptColumn:       cfg.SourcePromptColumn,
			AnswerColumn:       cfg.SourceAnswerColumn,
			SchemaTypeColumn:   cfg.SourceSchemaTypeColumn,
			CategoryColumn:     cfg.SourceCategoryColumn,
			BusinessUnitColumn: cfg.SourceBusinessUnitColumn,
		})
		syncer := service.NewSyncService(reader, contentRepo, txRunner, syncRunRepo)
		syncSvc = syncer

		go func() {
			if _, err := syncer.Sync(ctx, domain.SyncTriggerStartup); err != nil {
				log.Printf("startup sync failed: %v", err)
			}
		}()

		if cfg.WatchSource {
			watcher = jobs.NewSourceWatcher(cfg.SourcePath, cfg.DebounceInterval, syncer)
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("failed to start source watcher: %w", err)
			}
		}
	}

	routerCfg := server.RouterConfig{
		APIToken:       cfg.APIToken,
		ContentHandler: handlers.NewContentHandler(contentSvc),
		QueryHandler:   handlers.NewQueryHandler(searchSvc, filterSvc),
		SyncHandler:    handlers.NewSyncHandler(syncSvc),
	}

	router := server.NewRouter(routerCfg)

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

	if watcher != nil {
		watcher.Stop()
	}
	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type NoOpSearchService struct{}

func (s *NoOpSearchService) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	return nil, fmt.Errorf("search not configured: OPENAI_API_KEY required")
}

type NoOpSyncService struct{}

func (s *NoOpSyncService) Sync(ctx context.Context, trigger domain.SyncTrigger) (*service.SyncResult, error) {
	return nil, fmt.Errorf("sync not configured: CORPUS_SOURCE_PATH required")
}

func (s *NoOpSyncService) Status(ctx context.Context) (*domain.SyncRun, error) {
	return nil, fmt.Errorf("sync not configured: CORPUS_SOURCE_PATH required")
}

func (s *NoOpSyncService) History(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return nil, fmt.Errorf("sync not configured: CORPUS_SOURCE_PATH required")
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
