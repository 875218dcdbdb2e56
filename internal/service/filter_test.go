package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

func uploadUnit(id string, metadata map[string]any) *domain.ContentUnit {
	return domain.NewContentUnit(id, "conteúdo "+id, metadata, domain.ProvenanceUpload, time.Now().UTC())
}

func filterCorpus() []*domain.ContentUnit {
	return []*domain.ContentUnit{
		uploadUnit("inv-1", map[string]any{
			domain.MetaDocumentType:              "invoice",
			domain.MetaDates:                     []string{"15/03/2024", "2024-04-01"},
			domain.MetaAmounts:                   []float64{1234.56, 87.5},
			domain.MetaPeople:                    []string{"João Silva"},
			domain.MetaOrganizations:             []string{"Acme Ltda"},
			domain.MetaEntityPrefix + "contract_ids": []string{"CT-2024-001"},
		}),
		uploadUnit("rep-1", map[string]any{
			domain.MetaDocumentType:  "report",
			domain.MetaDates:         []string{"1 de dezembro de 2023"},
			domain.MetaAmounts:       []float64{99.9},
			domain.MetaPeople:        []string{"Maria Souza"},
			domain.MetaOrganizations: []string{"Vortex S.A."},
		}),
		uploadUnit("gen-1", map[string]any{
			domain.MetaDocumentType: "general",
		}),
		uploadUnit("inv-1_chunk_0", map[string]any{
			domain.MetaDocumentType: "invoice",
			domain.MetaOriginalID:   "inv-1",
			domain.MetaChunkIndex:   0,
		}),
	}
}

func newFilterService(units []*domain.ContentUnit) (*MockContentRepository, *FilterService) {
	repo := new(MockContentRepository)
	repo.On("ListByProvenance", mock.Anything, domain.ProvenanceUpload).Return(units, nil)
	return repo, NewFilterService(repo)
}

func matchedIDs(out *FilterOutput) []string {
	ids := make([]string, 0, len(out.Items))
	for _, u := range out.Items {
		ids = append(ids, u.ID)
	}
	return ids
}

// TestFilterService_Filter tests the Filter method
func TestFilterService_Filter(t *testing.T) {
	ctx := context.Background()

	t.Run("no active predicates returns every document", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1", "rep-1", "gen-1"}, matchedIDs(out))
		assert.Equal(t, 3, out.Total)
	})

	t.Run("document type is case-insensitive", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{DocumentType: "INVOICE"})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, matchedIDs(out))
	})

	t.Run("multiple document types union", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{DocumentTypes: []string{"invoice", "Report"}})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1", "rep-1"}, matchedIDs(out))
	})

	t.Run("date range matches any stored date", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{DateFrom: "2024-01-01", DateTo: "2024-12-31"})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, matchedIDs(out))
	})

	t.Run("date range parses written portuguese dates", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{DateFrom: "2023-11-01", DateTo: "2023-12-31"})

		require.NoError(t, err)
		assert.Equal(t, []string{"rep-1"}, matchedIDs(out))
	})

	t.Run("year matches across formats", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{Year: 2023})

		require.NoError(t, err)
		assert.Equal(t, []string{"rep-1"}, matchedIDs(out))
	})

	t.Run("amount range bounds are inclusive", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		minAmount := 1234.56
		maxAmount := 1234.56
		out, err := service.Filter(ctx, FilterInput{MinAmount: &minAmount, MaxAmount: &maxAmount})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, matchedIDs(out))
	})

	t.Run("person substring is case-insensitive", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{Person: "silva"})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, matchedIDs(out))
	})

	t.Run("organization substring matches", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{Organization: "vortex"})

		require.NoError(t, err)
		assert.Equal(t, []string{"rep-1"}, matchedIDs(out))
	})

	t.Run("custom entity group with value", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{EntityGroup: "contract_ids", EntityValue: "ct-2024"})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, matchedIDs(out))
	})

	t.Run("predicates combine as a conjunction", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		minAmount := 1000.0
		out, err := service.Filter(ctx, FilterInput{
			DocumentType: "invoice",
			Year:         2024,
			MinAmount:    &minAmount,
			Organization: "acme",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, matchedIDs(out))

		// Same conjunction with one failing predicate matches nothing.
		out, err = service.Filter(ctx, FilterInput{
			DocumentType: "invoice",
			Year:         2023,
			MinAmount:    &minAmount,
			Organization: "acme",
		})
		require.NoError(t, err)
		assert.Empty(t, out.Items)
	})

	t.Run("chunks are excluded unless requested", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{DocumentType: "invoice", IncludeChunks: true})

		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1", "inv-1_chunk_0"}, matchedIDs(out))
	})

	t.Run("tolerates jsonb round-tripped metadata shapes", func(t *testing.T) {
		units := []*domain.ContentUnit{
			uploadUnit("rt-1", map[string]any{
				domain.MetaDocumentType: "invoice",
				domain.MetaDates:        []any{"15/03/2024"},
				domain.MetaAmounts:      []any{float64(1234.56)},
				domain.MetaPeople:       []any{"João Silva"},
			}),
		}
		_, service := newFilterService(units)

		minAmount := 1000.0
		out, err := service.Filter(ctx, FilterInput{
			Year:      2024,
			MinAmount: &minAmount,
			Person:    "joão",
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"rt-1"}, matchedIDs(out))
	})

	t.Run("documents without entities never match entity predicates", func(t *testing.T) {
		_, service := newFilterService(filterCorpus())

		out, err := service.Filter(ctx, FilterInput{Person: "silva", DocumentType: "general"})

		require.NoError(t, err)
		assert.Empty(t, out.Items)
	})
}

// TestFilterService_Validation tests predicate validation
func TestFilterService_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   FilterInput
		wantErr string
	}{
		{
			name:    "unknown document type",
			input:   FilterInput{DocumentType: "spreadsheet"},
			wantErr: "invalid document type",
		},
		{
			name:    "unparseable date",
			input:   FilterInput{DateFrom: "not-a-date"},
			wantErr: "invalid date",
		},
		{
			name:    "inverted date range",
			input:   FilterInput{DateFrom: "2024-06-01", DateTo: "2024-01-01"},
			wantErr: "date range is inverted",
		},
		{
			name: "inverted amount range",
			input: func() FilterInput {
				minAmount, maxAmount := 100.0, 50.0
				return FilterInput{MinAmount: &minAmount, MaxAmount: &maxAmount}
			}(),
			wantErr: "amount range is inverted",
		},
		{
			name:    "entity value without group",
			input:   FilterInput{EntityValue: "ct-2024"},
			wantErr: "entity value requires an entity group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockContentRepository)
			service := NewFilterService(repo)

			_, err := service.Filter(ctx, tt.input)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			repo.AssertNotCalled(t, "ListByProvenance", mock.Anything, mock.Anything)
		})
	}
}

func TestParseFilterDate(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2024-03-15", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
		{"15/03/2024", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
		{"5/3/2024", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), true},
		{"15 de março de 2024", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
		{"1 de dezembro de 2023", time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), true},
		{"março de 2024", time.Time{}, false},
		{"15 de marte de 2024", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := parseFilterDate(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}
