package domain

import (
	"fmt"
	"strings"
)

// KnowledgeRow is one record of the tabular source. Index is the 1-based
// position of the record among the source's data rows and is the row's
// identity across sync passes; everything else is content.
type KnowledgeRow struct {
	Index        int
	Prompt       string
	Answer       string
	SchemaType   string
	Category     string
	BusinessUnit string
	Fingerprint  string
}

// NewKnowledgeRow creates a new KnowledgeRow instance
func NewKnowledgeRow(index int, prompt, answer, schemaType, category, businessUnit string) *KnowledgeRow {
	return &KnowledgeRow{
		Index:        index,
		Prompt:       prompt,
		Answer:       answer,
		SchemaType:   schemaType,
		Category:     category,
		BusinessUnit: businessUnit,
	}
}

// ValidateKnowledgeRow validates a KnowledgeRow instance
func ValidateKnowledgeRow(r *KnowledgeRow) error {
	if r == nil {
		return fmt.Errorf("knowledge row cannot be nil")
	}

	if r.Index <= 0 {
		return fmt.Errorf("knowledge row Index must be greater than 0")
	}

	if strings.TrimSpace(r.Prompt) == "" && strings.TrimSpace(r.Answer) == "" {
		return ErrRowShape
	}

	return nil
}

// Text renders the row as the text body of its content unit.
func (r *KnowledgeRow) Text() string {
	prompt := strings.TrimSpace(r.Prompt)
	answer := strings.TrimSpace(r.Answer)

	switch {
	case prompt == "":
		return answer
	case answer == "":
		return prompt
	default:
		return prompt + "\n\n" + answer
	}
}

// MetadataMap renders the row's classification tags as unit metadata.
// These are the bulk provenance markers IsUploadSourced keys on.
func (r *KnowledgeRow) MetadataMap() map[string]any {
	md := map[string]any{
		MetaRowIndex: r.Index,
	}
	if r.SchemaType != "" {
		md[MetaSchemaType] = r.SchemaType
	}
	if r.Category != "" {
		md[MetaCategory] = r.Category
	}
	if r.BusinessUnit != "" {
		md[MetaBusinessUnit] = r.BusinessUnit
	}
	return md
}
