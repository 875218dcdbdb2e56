package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// UploadRequest represents the upload content API request.
type UploadRequest struct {
	Content  string         `json:"content"`
	Filename string         `json:"filename,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UploadResult represents the upload content API response.
type UploadResult struct {
	Unit       ContentUnit `json:"unit"`
	Enhanced   bool        `json:"enhanced"`
	ChunkCount int         `json:"chunk_count"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var (
		file     string
		filename string
		meta     []string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a document from stdin or file",
		Long: `Upload a document for enhancement and indexing.

The server detects the document type, extracts entities, and splits
long documents into chunks before indexing.

Examples:
  # Upload from a file
  corpus upload --file invoice.txt

  # Upload from stdin
  cat contract.md | corpus upload --filename contract.md

  # Attach extra metadata
  corpus upload --file report.txt --meta department=finance --meta quarter=Q3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(file, filename, meta, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (reads stdin if omitted)")
	cmd.Flags().StringVar(&filename, "filename", "", "Filename to record (defaults to the --file basename)")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Extra metadata as key=value (repeatable)")

	return cmd
}

func runUpload(file, filename string, meta []string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var input []byte
	if file != "" {
		input, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if filename == "" {
			filename = filepath.Base(file)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if len(input) == 0 {
		return fmt.Errorf("no input provided")
	}

	req := UploadRequest{
		Content:  string(input),
		Filename: filename,
	}

	for _, kv := range meta {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return fmt.Errorf("invalid --meta %q (expected key=value)", kv)
		}
		if req.Metadata == nil {
			req.Metadata = make(map[string]any)
		}
		req.Metadata[key] = value
	}

	resp, err := api.Post("/content", req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Uploaded content: %s\n", result.Unit.ID)
		if docType, ok := result.Unit.Metadata["document_type"].(string); ok && docType != "" {
			fmt.Printf("Document type: %s\n", docType)
		}
		if result.Enhanced {
			fmt.Println("Enhancement: applied")
		} else {
			fmt.Println("Enhancement: skipped")
		}
		if result.ChunkCount > 0 {
			fmt.Printf("Chunks: %d\n", result.ChunkCount)
		}
	}

	return nil
}
