package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query  string      `json:"query"`
	Limit  int         `json:"limit,omitempty"`
	Filter *FilterSpec `json:"filter,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	ID           string  `json:"id"`
	Snippet      string  `json:"snippet,omitempty"`
	Score        float64 `json:"score"`
	Provenance   string  `json:"provenance"`
	DocumentType string  `json:"document_type,omitempty"`
	OriginalID   string  `json:"original_id,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		docType      string
		year         int
		person       string
		organization string
		minAmount    float64
		maxAmount    float64
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search content",
		Long: `Searches the corpus using semantic search.

Metadata filters narrow the results to uploaded documents matching
the given predicates.

Examples:
  corpus search "notas fiscais de energia"
  corpus search "aluguel" --type contract --year 2025
  corpus search "pagamentos" --min-amount 1000 --org "Acme"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			var filter *FilterSpec
			if docType != "" || year != 0 || person != "" || organization != "" ||
				cmd.Flags().Changed("min-amount") || cmd.Flags().Changed("max-amount") {
				filter = &FilterSpec{
					DocumentType: docType,
					Year:         year,
					Person:       person,
					Organization: organization,
				}
				if cmd.Flags().Changed("min-amount") {
					filter.MinAmount = &minAmount
				}
				if cmd.Flags().Changed("max-amount") {
					filter.MaxAmount = &maxAmount
				}
			}

			return runSearch(args[0], limit, filter, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "Filter by document type")
	cmd.Flags().IntVar(&year, "year", 0, "Filter by year of any extracted date")
	cmd.Flags().StringVar(&person, "person", "", "Filter by person name (substring match)")
	cmd.Flags().StringVar(&organization, "org", "", "Filter by organization name (substring match)")
	cmd.Flags().Float64Var(&minAmount, "min-amount", 0, "Filter by minimum monetary amount")
	cmd.Flags().Float64Var(&maxAmount, "max-amount", 0, "Filter by maximum monetary amount")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")

	return cmd
}

func runSearch(query string, limit int, filter *FilterSpec, outputJSON bool) error {
	// Create API client
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	// Build search request
	req := SearchRequest{
		Query:  query,
		Limit:  limit,
		Filter: filter,
	}

	// Perform search
	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	// Parse results
	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
	} else {
		if len(searchResp.Results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
		for i, result := range searchResp.Results {
			fmt.Printf("%d. [%s] %.2f\n", i+1, result.Provenance, result.Score)
			if result.Snippet != "" {
				// Truncate snippet to 100 chars
				snippet := result.Snippet
				if len(snippet) > 100 {
					snippet = snippet[:97] + "..."
				}
				fmt.Printf("   %s\n", snippet)
			}
			if result.DocumentType != "" {
				fmt.Printf("   Type: %s\n", result.DocumentType)
			}
			fmt.Printf("   ID: %s\n", result.ID)
			if i < len(searchResp.Results)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}
