package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var apiToken string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure credentials for the corpus API",
		Long:  "Stores the API token and server URL in the global config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(apiToken, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiToken, "api-token", "", "API token for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(apiToken, apiURL string, outputJSON bool) error {
	_ = godotenv.Load()
	if apiToken == "" {
		apiToken = os.Getenv(envAPIToken)
	}
	if apiToken == "" {
		fmt.Print("Enter API token: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API token: %w", err)
		}
		apiToken = strings.TrimSpace(input)
		if apiToken == "" {
			return fmt.Errorf("API token is required")
		}
	}

	if !IsValidAPIToken(apiToken) {
		return fmt.Errorf("invalid API token format (expected crp_ followed by 64 hex characters)")
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	// Verify the token works before persisting it.
	api, err := NewAPIClientWithConfig(apiToken, apiURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	if _, err := api.Get("/content?limit=1"); err != nil {
		return fmt.Errorf("failed to reach corpus API at %s: %w", apiURL, err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIToken: apiToken, APIURL: apiURL}); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"api_url": apiURL,
			"config":  configPath,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Connected to %s\n", apiURL)
		fmt.Printf("Credentials saved to %s\n", configPath)
	}

	return nil
}
