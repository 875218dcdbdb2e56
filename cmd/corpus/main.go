package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/corpusd/internal/cli"
	"github.com/cloo-solutions/corpusd/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpus",
		Short: "Corpus CLI - Manage a synced and enhanced knowledge corpus",
		Long: `Corpus CLI provides commands to upload, search, and manage content
in a corpus server.

Environment variables:
  CORPUS_API_TOKEN  API token for authentication (required)
  CORPUS_API_URL    API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "API token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.FilterCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.ArchiveCmd())
	rootCmd.AddCommand(client.SyncCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
