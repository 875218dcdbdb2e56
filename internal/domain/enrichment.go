package domain

import (
	"fmt"
	"time"
)

// DocumentType classifies an uploaded document
type DocumentType string

const (
	DocumentTypeFinancial DocumentType = "financial"
	DocumentTypeReport    DocumentType = "report"
	DocumentTypeInvoice   DocumentType = "invoice"
	DocumentTypeContract  DocumentType = "contract"
	DocumentTypeManual    DocumentType = "manual"
	DocumentTypeGeneral   DocumentType = "general"
)

// DocumentTypes lists every valid document type.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeFinancial,
		DocumentTypeReport,
		DocumentTypeInvoice,
		DocumentTypeContract,
		DocumentTypeManual,
		DocumentTypeGeneral,
	}
}

// ExtractedEntities holds the deduplicated extractor matches for one
// document. Custom maps user-defined group names to their matches.
type ExtractedEntities struct {
	Dates         []string
	Amounts       []float64
	People        []string
	Organizations []string
	Custom        map[string][]string
}

// IsEmpty reports whether no extractor matched anything.
func (e *ExtractedEntities) IsEmpty() bool {
	return len(e.Dates) == 0 && len(e.Amounts) == 0 && len(e.People) == 0 &&
		len(e.Organizations) == 0 && len(e.Custom) == 0
}

// EnrichedMetadata is the pipeline's metadata output for upload-derived
// units.
type EnrichedMetadata struct {
	DocumentType DocumentType
	Category     string
	Tags         []string
	BusinessUnit string
	Entities     ExtractedEntities
	HasTable     bool
	Confidence   float64
	ProcessedAt  time.Time
	ProcessingMS int64
}

// ValidateEnrichedMetadata validates an EnrichedMetadata instance
func ValidateEnrichedMetadata(m *EnrichedMetadata) error {
	if m == nil {
		return fmt.Errorf("enriched metadata cannot be nil")
	}

	if !isValidDocumentType(m.DocumentType) {
		return fmt.Errorf("enriched metadata DocumentType is invalid: %s", m.DocumentType)
	}

	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("enriched metadata Confidence must be within [0, 1]: %f", m.Confidence)
	}

	if m.ProcessingMS < 0 {
		return fmt.Errorf("enriched metadata ProcessingMS cannot be negative")
	}

	return nil
}

// ChunkMetadata describes one chunk's place inside its source document.
// Start and End are rune offsets into the original text; Overlap is how
// many leading runes repeat the tail of the previous chunk.
type ChunkMetadata struct {
	Index         int
	Size          int
	Start         int
	End           int
	Overlap       int
	TableFragment bool
}

// ValidateChunkMetadata validates a ChunkMetadata instance
func ValidateChunkMetadata(c *ChunkMetadata) error {
	if c == nil {
		return fmt.Errorf("chunk metadata cannot be nil")
	}

	if c.Index < 0 {
		return fmt.Errorf("chunk metadata Index cannot be negative")
	}

	if c.Size <= 0 {
		return fmt.Errorf("chunk metadata Size must be greater than 0")
	}

	if c.End <= c.Start {
		return fmt.Errorf("chunk metadata span is empty: [%d, %d)", c.Start, c.End)
	}

	if c.Overlap < 0 {
		return fmt.Errorf("chunk metadata Overlap cannot be negative")
	}

	return nil
}

// Chunk is one bounded slice of a processed document.
type Chunk struct {
	Text string
	Meta ChunkMetadata
}

// EnrichedDocument is the pipeline's output: the (unmodified) original
// content, the enriched metadata, and the chunk set. Enhanced is false
// when a stage failed and the document passed through unprocessed.
type EnrichedDocument struct {
	Content  string
	Metadata EnrichedMetadata
	Chunks   []Chunk
	Enhanced bool
}

// MetadataMap flattens enriched metadata into content unit metadata keys.
// Custom entity groups land under MetaEntityPrefix + group name.
func (m *EnrichedMetadata) MetadataMap() map[string]any {
	md := map[string]any{
		MetaDocumentType: string(m.DocumentType),
		MetaHasTable:     m.HasTable,
		MetaConfidence:   m.Confidence,
		MetaProcessedAt:  m.ProcessedAt.UTC().Format(time.RFC3339),
		MetaProcessingMS: m.ProcessingMS,
	}

	if m.Category != "" {
		md[MetaCategory] = m.Category
	}
	if m.BusinessUnit != "" {
		md[MetaBusinessUnit] = m.BusinessUnit
	}
	if len(m.Tags) > 0 {
		md[MetaTags] = m.Tags
	}
	if len(m.Entities.Dates) > 0 {
		md[MetaDates] = m.Entities.Dates
	}
	if len(m.Entities.Amounts) > 0 {
		md[MetaAmounts] = m.Entities.Amounts
	}
	if len(m.Entities.People) > 0 {
		md[MetaPeople] = m.Entities.People
	}
	if len(m.Entities.Organizations) > 0 {
		md[MetaOrganizations] = m.Entities.Organizations
	}
	for group, matches := range m.Entities.Custom {
		if len(matches) > 0 {
			md[MetaEntityPrefix+group] = matches
		}
	}

	return md
}

// MetadataMap flattens chunk placement into content unit metadata keys.
func (c *ChunkMetadata) MetadataMap() map[string]any {
	return map[string]any{
		MetaChunkIndex:    c.Index,
		MetaChunkSize:     c.Size,
		MetaChunkStart:    c.Start,
		MetaChunkEnd:      c.End,
		MetaChunkOverlap:  c.Overlap,
		MetaTableFragment: c.TableFragment,
	}
}

// ChunkUnitID derives the stored id of one chunk from its original
// document id.
func ChunkUnitID(originalID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", originalID, index)
}

// isValidDocumentType checks if a DocumentType is valid
func isValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentTypeFinancial, DocumentTypeReport, DocumentTypeInvoice,
		DocumentTypeContract, DocumentTypeManual, DocumentTypeGeneral:
		return true
	}
	return false
}

// ParseDocumentType normalizes a string into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !isValidDocumentType(t) {
		return "", ErrInvalidDocumentType
	}
	return t, nil
}
