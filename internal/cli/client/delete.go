package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <content_id>",
		Short: "Delete an uploaded content unit by ID",
		Long: `Delete an uploaded content unit and its chunks.

Sync-owned content cannot be deleted this way; it disappears on the
next sync pass when its row leaves the source file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(args[0], outputJSON)
		},
	}

	return cmd
}

func runDelete(contentID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/content/%s", contentID)); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(map[string]interface{}{
			"id":     contentID,
			"status": "deleted",
		}, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Deleted content: %s\n", contentID)
	}

	return nil
}
