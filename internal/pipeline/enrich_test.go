package pipeline

import (
	"testing"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func allMetadataOn() MetadataConfig {
	return MetadataConfig{AutoCategorize: true, AutoTag: true, DetectBusinessUnit: true}
}

func TestEnricherCategories(t *testing.T) {
	tests := []struct {
		docType  domain.DocumentType
		category string
	}{
		{domain.DocumentTypeFinancial, "finance"},
		{domain.DocumentTypeInvoice, "billing"},
		{domain.DocumentTypeContract, "legal"},
		{domain.DocumentTypeReport, "reporting"},
		{domain.DocumentTypeManual, "documentation"},
		{domain.DocumentTypeGeneral, "general"},
	}

	enricher := NewEnricher(allMetadataOn())
	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			meta := enricher.Enrich("some content", tt.docType, domain.ExtractedEntities{}, 0.5, false)
			assert.Equal(t, tt.category, meta.Category)
			assert.Equal(t, tt.docType, meta.DocumentType)
		})
	}
}

func TestEnricherTags(t *testing.T) {
	enricher := NewEnricher(allMetadataOn())

	entities := domain.ExtractedEntities{
		Dates:   []string{"2024-03-15"},
		Amounts: []float64{1234.56},
		Custom:  map[string][]string{"contract_ids": {"CT-001"}},
	}

	meta := enricher.Enrich("content", domain.DocumentTypeInvoice, entities, 0.8, true)

	assert.Equal(t, []string{"invoice", "table", "amounts", "contract_ids", "dates"}, meta.Tags)
}

func TestEnricherTagsDeterministic(t *testing.T) {
	enricher := NewEnricher(allMetadataOn())

	entities := domain.ExtractedEntities{
		People:        []string{"Maria da Silva"},
		Organizations: []string{"Acme Ltda"},
		Custom: map[string][]string{
			"skus":     {"W-1"},
			"branches": {"SP"},
			"codes":    {"X9"},
		},
	}

	want := []string{"report", "branches", "codes", "organizations", "people", "skus"}
	for i := 0; i < 5; i++ {
		meta := enricher.Enrich("content", domain.DocumentTypeReport, entities, 0.6, false)
		assert.Equal(t, want, meta.Tags)
	}
}

func TestEnricherBusinessUnit(t *testing.T) {
	tests := []struct {
		name    string
		content string
		unit    string
	}{
		{"finance keyword", "Relatório do departamento financeiro referente ao trimestre.", "finance"},
		{"sales keyword", "Resumo da reunião do time de vendas.", "sales"},
		{"legal keyword", "Parecer do jurídico sobre o contrato.", "legal"},
		{"people keyword", "Atualização da folha de pagamento de abril.", "people"},
		{"engineering keyword", "Proposta de arquitetura de software para o novo serviço.", "engineering"},
		{"operations keyword", "Planejamento de logística para o próximo ciclo.", "operations"},
		{"first rule wins", "O time de contabilidade revisou o contrato com o jurídico.", "finance"},
		{"case insensitive", "REUNIÃO DE VENDAS COM A DIRETORIA.", "sales"},
		{"no match", "Texto genérico sem menção a nenhuma área.", ""},
	}

	enricher := NewEnricher(allMetadataOn())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := enricher.Enrich(tt.content, domain.DocumentTypeGeneral, domain.ExtractedEntities{}, 0.4, false)
			assert.Equal(t, tt.unit, meta.BusinessUnit)
		})
	}
}

func TestEnricherToggles(t *testing.T) {
	entities := domain.ExtractedEntities{Dates: []string{"2024-01-01"}}
	content := "Relatório financeiro com tabela."

	enricher := NewEnricher(MetadataConfig{})
	meta := enricher.Enrich(content, domain.DocumentTypeFinancial, entities, 0.7, true)

	assert.Empty(t, meta.Category)
	assert.Empty(t, meta.Tags)
	assert.Empty(t, meta.BusinessUnit)

	// Pass-through fields survive regardless of toggles.
	assert.Equal(t, domain.DocumentTypeFinancial, meta.DocumentType)
	assert.Equal(t, entities, meta.Entities)
	assert.True(t, meta.HasTable)
	assert.InDelta(t, 0.7, meta.Confidence, 1e-9)
}
