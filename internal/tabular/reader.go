// Package tabular loads the row-oriented knowledge source consumed by the
// sync engine.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// SourceSchema names the columns carrying each row field. Prompt and
// answer are required in the header, classification columns are optional.
type SourceSchema struct {
	PromptColumn       string
	AnswerColumn       string
	SchemaTypeColumn   string
	CategoryColumn     string
	BusinessUnitColumn string
}

// DefaultSourceSchema returns the column names used when the operator
// configures none.
func DefaultSourceSchema() SourceSchema {
	return SourceSchema{
		PromptColumn:       "prompt",
		AnswerColumn:       "answer",
		SchemaTypeColumn:   "schema_type",
		CategoryColumn:     "category",
		BusinessUnitColumn: "business_unit",
	}
}

// Reader reads one CSV source file into knowledge rows.
type Reader struct {
	path   string
	schema SourceSchema
}

// NewReader creates a Reader for the given source path.
func NewReader(path string, schema SourceSchema) *Reader {
	if schema.PromptColumn == "" || schema.AnswerColumn == "" {
		schema = DefaultSourceSchema()
	}
	return &Reader{path: path, schema: schema}
}

// Path returns the source file path.
func (r *Reader) Path() string {
	return r.path
}

// Load reads every data row of the source, fingerprints it, and returns
// the rows in file order with 1-based indexes. Rows without usable content
// or with too few cells are skipped; the second return value counts them.
// Anything that prevents reading the file at all comes back as a
// SOURCE_LOAD_ERROR and no rows are returned.
func (r *Reader) Load() ([]*domain.KnowledgeRow, int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeSourceLoad, "source file could not be opened", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeSourceLoad, "source file is empty", err)
		}
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeSourceLoad, "source header could not be read", err)
	}

	columns := indexColumns(header)
	promptCol, ok := columns[strings.ToLower(r.schema.PromptColumn)]
	if !ok {
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeSourceLoad, "source is missing required column", fmt.Errorf("column %q not in header", r.schema.PromptColumn))
	}
	answerCol, ok := columns[strings.ToLower(r.schema.AnswerColumn)]
	if !ok {
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeSourceLoad, "source is missing required column", fmt.Errorf("column %q not in header", r.schema.AnswerColumn))
	}

	schemaTypeCol := optionalColumn(columns, r.schema.SchemaTypeColumn)
	categoryCol := optionalColumn(columns, r.schema.CategoryColumn)
	businessUnitCol := optionalColumn(columns, r.schema.BusinessUnitColumn)

	rows := make([]*domain.KnowledgeRow, 0, 64)
	skipped := 0
	index := 0

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeSourceLoad, "source row could not be parsed", err)
		}

		index++

		row := domain.NewKnowledgeRow(
			index,
			cell(record, promptCol),
			cell(record, answerCol),
			cell(record, schemaTypeCol),
			cell(record, categoryCol),
			cell(record, businessUnitCol),
		)

		fp, err := domain.Fingerprint(row)
		if err != nil {
			skipped++
			continue
		}
		row.Fingerprint = fp

		rows = append(rows, row)
	}

	return rows, skipped, nil
}

// indexColumns maps lowercased, trimmed header names to their positions.
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

// optionalColumn resolves a column that may be absent; -1 means absent.
func optionalColumn(columns map[string]int, name string) int {
	if name == "" {
		return -1
	}
	if i, ok := columns[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// cell reads one field, tolerating short records and absent columns.
func cell(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}
