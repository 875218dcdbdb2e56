package admin

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

const apiTokenPrefix = "crp_"

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate an API token",
		Long:  "Generate a random bearer token to use as CORPUS_API_TOKEN",
		RunE:  runTokenGenerate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTokenGenerate(cmd *cobra.Command, args []string) error {
	outputFormat, _ := cmd.Flags().GetString("output")

	token, err := generateAPIToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"token": token,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Token: %s\n", token)
		fmt.Println("\nSet CORPUS_API_TOKEN on the server and use the token as the Bearer credential.")
	}

	return nil
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiTokenPrefix + hex.EncodeToString(bytes), nil
}
