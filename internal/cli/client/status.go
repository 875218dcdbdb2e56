package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// SyncHistory represents the sync history API response.
type SyncHistory struct {
	Runs []SyncRun `json:"runs"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	var (
		history bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest sync run",
		Long:  "Shows the most recent sync run, or the run history with --history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if history {
				return runHistory(limit, outputJSON)
			}
			return runStatus(outputJSON)
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "Show recent sync runs instead of just the latest")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs with --history")

	return cmd
}

func runStatus(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/sync/status")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			fmt.Println("No sync runs yet.")
			return nil
		}
		return fmt.Errorf("failed to get sync status: %w", err)
	}

	var run SyncRun
	if err := json.Unmarshal(resp.Data, &run); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(output))
	} else {
		printSyncRun(&run)
	}

	return nil
}

func runHistory(limit int, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/sync/runs?limit=%d", limit))
	if err != nil {
		return fmt.Errorf("failed to get sync history: %w", err)
	}

	var history SyncHistory
	if err := json.Unmarshal(resp.Data, &history); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(history, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(history.Runs) == 0 {
		fmt.Println("No sync runs yet.")
		return nil
	}

	for _, run := range history.Runs {
		fmt.Printf("%s  %s/%s  +%d ~%d -%d =%d\n",
			run.StartedAt, run.TriggeredBy, run.Status,
			run.Added, run.Changed, run.Deleted, run.Unchanged)
		if run.Error != "" {
			fmt.Printf("  error: %s\n", run.Error)
		}
	}

	return nil
}
