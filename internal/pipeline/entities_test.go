package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allExtractorsOn() EntityExtractionConfig {
	return EntityExtractionConfig{
		Enabled:              true,
		ExtractDates:         true,
		ExtractAmounts:       true,
		ExtractNames:         true,
		ExtractOrganizations: true,
	}
}

func TestEntityExtractorAmounts(t *testing.T) {
	extractor, err := NewEntityExtractor(allExtractorsOn())
	require.NoError(t, err)

	tests := []struct {
		name     string
		content  string
		expected []float64
	}{
		{"brazilian format", "Total: R$ 1.234,56 a pagar.", []float64{1234.56}},
		{"us format", "Total: $1,234.56 due.", []float64{1234.56}},
		{"plain amount", "Fee of R$ 500 applies.", []float64{500}},
		{"thousands only", "Budget is R$ 1.234 overall.", []float64{1234}},
		{"decimal comma", "Price €12,5 each.", []float64{12.5}},
		{"multiple amounts", "First R$ 100,00 then R$ 250,50.", []float64{100, 250.5}},
		{"duplicates collapse", "Pay $50.00 now and $50.00 later.", []float64{50}},
		{"no currency marker", "The code 1.234,56 is not money.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := extractor.Extract(tt.content)
			assert.Equal(t, tt.expected, entities.Amounts)
		})
	}
}

func TestEntityExtractorDates(t *testing.T) {
	extractor, err := NewEntityExtractor(allExtractorsOn())
	require.NoError(t, err)

	content := "Assinado em 2024-03-15, com vigência a partir de 01/04/2024 até 15 de janeiro de 2025. Reunião em 2024-03-15."
	entities := extractor.Extract(content)

	assert.Equal(t, []string{"2024-03-15", "01/04/2024", "15 de janeiro de 2025"}, entities.Dates)
}

func TestEntityExtractorPeopleAndOrganizations(t *testing.T) {
	extractor, err := NewEntityExtractor(allExtractorsOn())
	require.NoError(t, err)

	content := "Maria da Silva assinou o contrato com a Acme Ltda. João Pereira foi testemunha."
	entities := extractor.Extract(content)

	assert.Contains(t, entities.People, "Maria da Silva")
	assert.Contains(t, entities.People, "João Pereira")
	assert.NotContains(t, entities.People, "Acme")

	require.NotEmpty(t, entities.Organizations)
	assert.Contains(t, entities.Organizations[0], "Acme Ltda")
}

func TestEntityExtractorCustomGroups(t *testing.T) {
	cfg := allExtractorsOn()
	cfg.CustomEntities = []CustomEntityConfig{
		{Name: "contract_ids", Regex: `CT-\d{3,}`},
		{Name: "products", Patterns: []string{"Widget", "gadget"}},
	}

	extractor, err := NewEntityExtractor(cfg)
	require.NoError(t, err)

	content := "Contracts CT-001 and CT-2024 cover the widget line. CT-001 is renewed."
	entities := extractor.Extract(content)

	require.NotNil(t, entities.Custom)
	assert.Equal(t, []string{"CT-001", "CT-2024"}, entities.Custom["contract_ids"])
	assert.Equal(t, []string{"Widget"}, entities.Custom["products"])
}

func TestEntityExtractorDisabled(t *testing.T) {
	cfg := allExtractorsOn()
	cfg.Enabled = false

	extractor, err := NewEntityExtractor(cfg)
	require.NoError(t, err)

	entities := extractor.Extract("R$ 1.234,56 on 2024-03-15 by Maria da Silva.")
	assert.True(t, entities.IsEmpty())
}

func TestEntityExtractorSelectiveToggles(t *testing.T) {
	cfg := EntityExtractionConfig{Enabled: true, ExtractAmounts: true}

	extractor, err := NewEntityExtractor(cfg)
	require.NoError(t, err)

	entities := extractor.Extract("R$ 1.234,56 on 2024-03-15 by Maria da Silva.")

	assert.Equal(t, []float64{1234.56}, entities.Amounts)
	assert.Empty(t, entities.Dates)
	assert.Empty(t, entities.People)
	assert.Empty(t, entities.Organizations)
}

func TestEntityExtractorEmptyContent(t *testing.T) {
	extractor, err := NewEntityExtractor(allExtractorsOn())
	require.NoError(t, err)

	entities := extractor.Extract("")
	assert.True(t, entities.IsEmpty())
}

func TestNewEntityExtractorBadRegex(t *testing.T) {
	cfg := allExtractorsOn()
	cfg.CustomEntities = []CustomEntityConfig{{Name: "broken", Regex: "("}}

	_, err := NewEntityExtractor(cfg)
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"R$ 1.234,56", 1234.56, true},
		{"$1,234.56", 1234.56, true},
		{"R$ 500", 500, true},
		{"R$ 1.234", 1234, true},
		{"$1,234", 1234, true},
		{"€12,5", 12.5, true},
		{"R$ 1.234.567,89", 1234567.89, true},
		{"£99.99", 99.99, true},
		{"R$", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			value, ok := parseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, value, 0.0001)
			}
		})
	}
}
