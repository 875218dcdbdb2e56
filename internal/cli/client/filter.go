package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// FilterSpec represents the metadata predicates accepted by the filter
// and search APIs. All present predicates must hold.
type FilterSpec struct {
	DocumentType  string   `json:"document_type,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
	DateFrom      string   `json:"date_from,omitempty"`
	DateTo        string   `json:"date_to,omitempty"`
	Year          int      `json:"year,omitempty"`
	MinAmount     *float64 `json:"min_amount,omitempty"`
	MaxAmount     *float64 `json:"max_amount,omitempty"`
	Person        string   `json:"person,omitempty"`
	Organization  string   `json:"organization,omitempty"`
	EntityGroup   string   `json:"entity_group,omitempty"`
	EntityValue   string   `json:"entity_value,omitempty"`
	IncludeChunks bool     `json:"include_chunks,omitempty"`
}

// FilterResult represents the filter API response.
type FilterResult struct {
	Items []ContentUnit `json:"items"`
	Total int           `json:"total"`
}

// FilterCmd creates the filter command.
func FilterCmd() *cobra.Command {
	var (
		docType       string
		docTypes      []string
		dateFrom      string
		dateTo        string
		year          int
		minAmount     float64
		maxAmount     float64
		person        string
		organization  string
		entityGroup   string
		entityValue   string
		includeChunks bool
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter uploaded content by extracted metadata",
		Long: `Filters uploaded documents by the metadata the enhancement
pipeline extracted: document type, dates, amounts, and entities.

Examples:
  corpus filter --type invoice --year 2025
  corpus filter --date-from 2025-01-01 --date-to 2025-06-30
  corpus filter --min-amount 500 --max-amount 2000
  corpus filter --entity-group project_codes --entity-value PRJ-001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			spec := FilterSpec{
				DocumentType:  docType,
				DocumentTypes: docTypes,
				DateFrom:      dateFrom,
				DateTo:        dateTo,
				Year:          year,
				Person:        person,
				Organization:  organization,
				EntityGroup:   entityGroup,
				EntityValue:   entityValue,
				IncludeChunks: includeChunks,
			}
			if cmd.Flags().Changed("min-amount") {
				spec.MinAmount = &minAmount
			}
			if cmd.Flags().Changed("max-amount") {
				spec.MaxAmount = &maxAmount
			}

			return runFilter(spec, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "Filter by document type")
	cmd.Flags().StringSliceVar(&docTypes, "types", nil, "Filter by any of the given document types")
	cmd.Flags().StringVar(&dateFrom, "date-from", "", "Filter by date range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "date-to", "", "Filter by date range end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&year, "year", 0, "Filter by year of any extracted date")
	cmd.Flags().Float64Var(&minAmount, "min-amount", 0, "Filter by minimum monetary amount")
	cmd.Flags().Float64Var(&maxAmount, "max-amount", 0, "Filter by maximum monetary amount")
	cmd.Flags().StringVar(&person, "person", "", "Filter by person name (substring match)")
	cmd.Flags().StringVar(&organization, "org", "", "Filter by organization name (substring match)")
	cmd.Flags().StringVar(&entityGroup, "entity-group", "", "Filter by custom entity group")
	cmd.Flags().StringVar(&entityValue, "entity-value", "", "Filter by custom entity value (requires --entity-group)")
	cmd.Flags().BoolVar(&includeChunks, "chunks", false, "Include chunk units in the results")

	return cmd
}

func runFilter(spec FilterSpec, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/filter", spec)
	if err != nil {
		return fmt.Errorf("filter failed: %w", err)
	}

	var filterResp FilterResult
	if err := json.Unmarshal(resp.Data, &filterResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(filterResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(filterResp.Items) == 0 {
		fmt.Println("No matching content found.")
		return nil
	}

	fmt.Printf("Found %d matching items:\n\n", filterResp.Total)
	for i, item := range filterResp.Items {
		fmt.Printf("%d. %s\n", i+1, snippetOf(item.Text, 60))
		if docType, ok := item.Metadata["document_type"].(string); ok && docType != "" {
			fmt.Printf("   Type: %s\n", docType)
		}
		if filename, ok := item.Metadata["filename"].(string); ok && filename != "" {
			fmt.Printf("   Filename: %s\n", filename)
		}
		fmt.Printf("   ID: %s\n", item.ID)
		if i < len(filterResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
