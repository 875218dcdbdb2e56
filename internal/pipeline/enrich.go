package pipeline

import (
	"sort"
	"strings"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// typeCategories maps each detected type to its corpus category label.
var typeCategories = map[domain.DocumentType]string{
	domain.DocumentTypeFinancial: "finance",
	domain.DocumentTypeInvoice:   "billing",
	domain.DocumentTypeContract:  "legal",
	domain.DocumentTypeReport:    "reporting",
	domain.DocumentTypeManual:    "documentation",
	domain.DocumentTypeGeneral:   "general",
}

// businessUnitRule maps content keywords to a business unit label. Rules
// are checked in order; the first hit wins.
type businessUnitRule struct {
	unit     string
	keywords []string
}

var businessUnitRules = []businessUnitRule{
	{"finance", []string{"finance", "financeiro", "contabilidade", "accounting", "treasury", "orçamento"}},
	{"sales", []string{"sales", "vendas", "comercial", "pipeline de vendas"}},
	{"legal", []string{"legal", "jurídico", "compliance", "regulatório"}},
	{"people", []string{"human resources", "recursos humanos", "payroll", "folha de pagamento", "recrutamento"}},
	{"engineering", []string{"engineering", "engenharia", "software", "infrastructure", "infraestrutura"}},
	{"operations", []string{"operations", "operações", "logistics", "logística", "supply chain"}},
}

// Enricher derives category, tags and business unit from the detected
// type and extracted entities via the built-in keyword-to-label mappings.
type Enricher struct {
	cfg MetadataConfig
}

// NewEnricher creates an Enricher.
func NewEnricher(cfg MetadataConfig) *Enricher {
	return &Enricher{cfg: cfg}
}

// Enrich assembles the enriched metadata for one document. Timestamps are
// stamped by the pipeline once the whole call finishes.
func (e *Enricher) Enrich(content string, docType domain.DocumentType, entities domain.ExtractedEntities, confidence float64, hasTable bool) domain.EnrichedMetadata {
	meta := domain.EnrichedMetadata{
		DocumentType: docType,
		Entities:     entities,
		HasTable:     hasTable,
		Confidence:   confidence,
	}

	if e.cfg.AutoCategorize {
		meta.Category = typeCategories[docType]
	}

	if e.cfg.AutoTag {
		meta.Tags = e.tags(docType, entities, hasTable)
	}

	if e.cfg.DetectBusinessUnit {
		meta.BusinessUnit = detectBusinessUnit(content)
	}

	return meta
}

// tags produces a deterministic tag set: the document type, a table
// marker, and one facet tag per entity group that matched.
func (e *Enricher) tags(docType domain.DocumentType, entities domain.ExtractedEntities, hasTable bool) []string {
	tags := []string{string(docType)}

	if hasTable {
		tags = append(tags, "table")
	}

	facets := make([]string, 0, 4+len(entities.Custom))
	if len(entities.Dates) > 0 {
		facets = append(facets, "dates")
	}
	if len(entities.Amounts) > 0 {
		facets = append(facets, "amounts")
	}
	if len(entities.People) > 0 {
		facets = append(facets, "people")
	}
	if len(entities.Organizations) > 0 {
		facets = append(facets, "organizations")
	}
	for group := range entities.Custom {
		facets = append(facets, group)
	}
	sort.Strings(facets)

	return append(tags, facets...)
}

// detectBusinessUnit returns the first business unit whose keywords occur
// in the content, or empty when nothing matches.
func detectBusinessUnit(content string) string {
	lowered := strings.ToLower(content)
	for _, rule := range businessUnitRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.unit
			}
		}
	}
	return ""
}
