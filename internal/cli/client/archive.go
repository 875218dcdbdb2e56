package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ArchiveResult represents the archive URL API response.
type ArchiveResult struct {
	URL string `json:"url"`
}

// ArchiveCmd creates the archive command.
func ArchiveCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "archive <content_id>",
		Short: "Fetch the archived raw payload of an upload",
		Long: `Resolves a presigned URL for the raw payload as it was uploaded,
before enhancement. Prints the URL, or downloads the payload with --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runArchive(args[0], output, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "Download the payload to this path instead of printing the URL")

	return cmd
}

func runArchive(contentID, outputPath string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/content/%s/archive", contentID))
	if err != nil {
		return fmt.Errorf("failed to get archive URL: %w", err)
	}

	var result ArchiveResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputPath != "" {
		if err := api.DownloadFile(result.URL, outputPath); err != nil {
			return err
		}
		if outputJSON {
			out, _ := json.MarshalIndent(map[string]string{"id": contentID, "path": outputPath}, "", "  ")
			fmt.Println(string(out))
		} else {
			fmt.Printf("Downloaded archive to %s\n", outputPath)
		}
		return nil
	}

	if outputJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(result.URL)
	}

	return nil
}
