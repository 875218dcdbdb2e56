package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/corpusd/internal/repository"
)

func RunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		Long:  "List recent sync runs with their counts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runRunsList(outputFormat, limit)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

func runRunsList(outputFormat string, limit int) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	syncRunRepo := repository.NewSyncRunRepository(pool)

	runs, err := syncRunRepo.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list sync runs: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(runs))
		for i, run := range runs {
			entry := map[string]interface{}{
				"id":           run.ID,
				"triggered_by": string(run.Trigger),
				"status":       string(run.Status),
				"added":        run.Added,
				"changed":      run.Changed,
				"deleted":      run.Deleted,
				"unchanged":    run.Unchanged,
				"started_at":   run.StartedAt,
			}
			if run.Error != "" {
				entry["error"] = run.Error
			}
			if run.FinishedAt != nil {
				entry["finished_at"] = *run.FinishedAt
			}
			data[i] = entry
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(runs) == 0 {
			fmt.Println("No sync runs found")
			return nil
		}
		fmt.Println("Sync runs:")
		for _, run := range runs {
			fmt.Printf("  %s: %s/%s +%d ~%d -%d =%d (started: %s)\n",
				run.ID, run.Trigger, run.Status,
				run.Added, run.Changed, run.Deleted, run.Unchanged,
				run.StartedAt.Format("2006-01-02 15:04:05"))
			if run.Error != "" {
				fmt.Printf("    error: %s\n", run.Error)
			}
		}
	}

	return nil
}
