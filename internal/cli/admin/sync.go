package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/corpusd/internal/config"
	"github.com/cloo-solutions/corpusd/internal/database"
	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/repository"
	"github.com/cloo-solutions/corpusd/internal/service"
	"github.com/cloo-solutions/corpusd/internal/tabular"
)

// SyncCmd returns the sync command. It runs exactly one reconciliation
// pass against the configured source and exits, for cron and CI use.
func SyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the source file",
		Long:  "Reconcile the stored bulk corpus against the source file once and exit",
		RunE:  runSyncOnce,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runSyncOnce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasSource() {
		return fmt.Errorf("sync not configured: CORPUS_SOURCE_PATH required")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	contentRepo := repository.NewContentRepository(pool)
	syncRunRepo := repository.NewSyncRunRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	reader := tabular.NewReader(cfg.SourcePath, tabular.SourceSchema{
		PromptColumn:       cfg.SourcePromptColumn,
		AnswerColumn:       cfg.SourceAnswerColumn,
		SchemaTypeColumn:   cfg.SourceSchemaTypeColumn,
		CategoryColumn:     cfg.SourceCategoryColumn,
		BusinessUnitColumn: cfg.SourceBusinessUnitColumn,
	})
	syncer := service.NewSyncService(reader, contentRepo, txRunner, syncRunRepo)

	result, err := syncer.Sync(ctx, domain.SyncTriggerForced)
	if err != nil {
		return fmt.Errorf("sync pass failed: %w", err)
	}

	run := result.Run
	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":        run.ID,
			"status":    string(run.Status),
			"added":     run.Added,
			"changed":   run.Changed,
			"deleted":   run.Deleted,
			"unchanged": run.Unchanged,
		}
		if run.Error != "" {
			data["error"] = run.Error
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Sync %s: %d added, %d changed, %d deleted, %d unchanged\n",
			run.Status, run.Added, run.Changed, run.Deleted, run.Unchanged)
		if run.Error != "" {
			fmt.Printf("Errors: %s\n", run.Error)
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.Connect(ctx, cfg.DatabaseURL)
}
