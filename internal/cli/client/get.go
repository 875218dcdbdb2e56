package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ContentUnit represents a content unit from the API.
type ContentUnit struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Provenance  string         `json:"provenance"`
	RowIndex    *int           `json:"row_index,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	ArchiveKey  string         `json:"archive_key,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <content_id>",
		Short:   "Get a content unit by ID",
		Long:    "Retrieves a content unit by its ID and displays the full text and metadata.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(contentID string, outputJSON bool) error {
	// Create API client
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	// Fetch content unit
	resp, err := api.Get(fmt.Sprintf("/content/%s", contentID))
	if err != nil {
		return fmt.Errorf("failed to get content: %w", err)
	}

	// Parse content unit
	var unit ContentUnit
	if err := json.Unmarshal(resp.Data, &unit); err != nil {
		return fmt.Errorf("failed to parse content: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(unit, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("ID: %s\n", unit.ID)
		fmt.Printf("Provenance: %s\n", unit.Provenance)
		if docType, ok := unit.Metadata["document_type"].(string); ok && docType != "" {
			fmt.Printf("Document type: %s\n", docType)
		}
		if filename, ok := unit.Metadata["filename"].(string); ok && filename != "" {
			fmt.Printf("Filename: %s\n", filename)
		}
		if unit.RowIndex != nil {
			fmt.Printf("Source row: %d\n", *unit.RowIndex)
		}
		fmt.Printf("Created: %s\n", unit.CreatedAt)
		fmt.Printf("Updated: %s\n", unit.UpdatedAt)
		fmt.Println()
		fmt.Println("--- Content ---")
		fmt.Println(unit.Text)
	}

	return nil
}
