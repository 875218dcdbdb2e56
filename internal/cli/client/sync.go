package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SyncRun represents a sync run from the API.
type SyncRun struct {
	ID          string `json:"id"`
	TriggeredBy string `json:"triggered_by"`
	Status      string `json:"status"`
	Added       int    `json:"added"`
	Changed     int    `json:"changed"`
	Deleted     int    `json:"deleted"`
	Unchanged   int    `json:"unchanged"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

// SyncCmd creates the sync command.
func SyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger a sync pass against the source file",
		Long: `Asks the server to reconcile its corpus with the configured
source file and waits for the pass to finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSync(outputJSON)
		},
	}

	return cmd
}

func runSync(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/sync", nil)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
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

func printSyncRun(run *SyncRun) {
	fmt.Printf("Sync %s: %s\n", run.ID, run.Status)
	fmt.Printf("Added: %d, Changed: %d, Deleted: %d, Unchanged: %d\n",
		run.Added, run.Changed, run.Deleted, run.Unchanged)
	if run.Error != "" {
		fmt.Printf("Error: %s\n", run.Error)
	}
	fmt.Printf("Started: %s\n", run.StartedAt)
	if run.FinishedAt != "" {
		fmt.Printf("Finished: %s\n", run.FinishedAt)
	}
}
