package domain

import (
	"fmt"
	"time"
)

// Provenance identifies which ingestion path produced a content unit.
// It is resolved once at the ingestion boundary and carried explicitly
// from then on.
type Provenance string

const (
	ProvenanceBulk   Provenance = "bulk"
	ProvenanceUpload Provenance = "upload"
)

// Metadata keys written by the sync engine for bulk-sourced units. Their
// presence is what marks a unit as bulk at the heuristic boundary.
const (
	MetaSchemaType   = "schema_type"
	MetaRowIndex     = "row_index"
	MetaCategory     = "category"
	MetaBusinessUnit = "business_unit"
)

// Metadata keys typical of uploaded documents.
const (
	MetaPage     = "page"
	MetaFilename = "filename"
)

// Metadata keys attached by the enhancement pipeline.
const (
	MetaDocumentType  = "document_type"
	MetaTags          = "tags"
	MetaDates         = "dates"
	MetaAmounts       = "amounts"
	MetaPeople        = "people"
	MetaOrganizations = "organizations"
	MetaHasTable      = "has_table"
	MetaConfidence    = "confidence"
	MetaProcessedAt   = "processed_at"
	MetaProcessingMS  = "processing_ms"
	MetaOriginalID    = "original_id"
	MetaChunkIndex    = "chunk_index"
	MetaChunkSize     = "chunk_size"
	MetaChunkStart    = "chunk_start"
	MetaChunkEnd      = "chunk_end"
	MetaChunkOverlap  = "chunk_overlap"
	MetaTableFragment = "table_fragment"
)

// MetaEntityPrefix prefixes metadata keys holding matches for user-defined
// entity groups, e.g. "entity_contract_ids".
const MetaEntityPrefix = "entity_"

// ContentUnit is the stored, retrievable unit of the corpus. Bulk content
// maps 1:1 to a source row, uploads map 1:N via chunking.
type ContentUnit struct {
	ID          string
	Text        string
	Metadata    map[string]any
	Provenance  Provenance
	RowIndex    *int // set for bulk units only
	Fingerprint string
	ArchiveKey  string // object key of the archived raw upload, if any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewContentUnit creates a new ContentUnit instance
func NewContentUnit(id, text string, metadata map[string]any, provenance Provenance, createdAt time.Time) *ContentUnit {
	return &ContentUnit{
		ID:         id,
		Text:       text,
		Metadata:   metadata,
		Provenance: provenance,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// ValidateContentUnit validates a ContentUnit instance
func ValidateContentUnit(u *ContentUnit) error {
	if u == nil {
		return fmt.Errorf("content unit cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("content unit ID is required")
	}

	if u.Text == "" {
		return fmt.Errorf("content unit Text is required")
	}

	if !isValidProvenance(u.Provenance) {
		return fmt.Errorf("content unit Provenance is invalid: %s", u.Provenance)
	}

	if u.Provenance == ProvenanceBulk && u.RowIndex == nil {
		return fmt.Errorf("bulk content unit requires a RowIndex")
	}

	if u.Provenance == ProvenanceBulk && u.Fingerprint == "" {
		return fmt.Errorf("bulk content unit requires a Fingerprint")
	}

	return nil
}

// IsUploadSourced classifies a metadata map by its ingestion path. Bulk
// markers win over upload markers in every combination: a schema type tag,
// a row index tag, or a business unit together with a category marks the
// unit as bulk even when a page tag is also present. Anything else,
// including an empty map, counts as an upload so unmarked content is
// enhanced rather than frozen.
//
// This is the one deliberately heuristic spot in the provenance model:
// ingested units carry an explicit Provenance tag, but legacy stored data
// and caller-supplied upload metadata are classified here.
func IsUploadSourced(metadata map[string]any) bool {
	if metadata == nil {
		return true
	}

	if _, ok := metadata[MetaSchemaType]; ok {
		return false
	}

	if _, ok := metadata[MetaRowIndex]; ok {
		return false
	}

	_, hasUnit := metadata[MetaBusinessUnit]
	_, hasCategory := metadata[MetaCategory]
	if hasUnit && hasCategory {
		return false
	}

	return true
}

// DetectProvenance maps the metadata heuristic onto the tagged variant.
func DetectProvenance(metadata map[string]any) Provenance {
	if IsUploadSourced(metadata) {
		return ProvenanceUpload
	}
	return ProvenanceBulk
}

// isValidProvenance checks if a Provenance is valid
func isValidProvenance(p Provenance) bool {
	switch p {
	case ProvenanceBulk, ProvenanceUpload:
		return true
	}
	return false
}
