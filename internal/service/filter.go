package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/telemetry"
)

// FilterInput holds the predicates of one filter query. Zero-valued
// fields are inactive; every active predicate must hold for a unit to
// match.
type FilterInput struct {
	DocumentType  string
	DocumentTypes []string
	DateFrom      string
	DateTo        string
	Year          int
	MinAmount     *float64
	MaxAmount     *float64
	Person        string
	Organization  string
	EntityGroup   string
	EntityValue   string
	IncludeChunks bool
}

// FilterOutput represents the result of a filter query
type FilterOutput struct {
	Items []*domain.ContentUnit
	Total int
}

// FilterService queries uploaded documents by their enriched metadata.
// Predicates evaluate against the metadata the pipeline attached, so
// unprocessed uploads only match filters their caller-supplied metadata
// satisfies.
type FilterService struct {
	contentRepo ContentRepositoryInterface
}

// NewFilterService creates a new FilterService instance
func NewFilterService(contentRepo ContentRepositoryInterface) *FilterService {
	return &FilterService{contentRepo: contentRepo}
}

// Filter returns the upload-sourced units matching every active
// predicate. Chunk units are excluded unless IncludeChunks is set.
func (s *FilterService) Filter(ctx context.Context, input FilterInput) (*FilterOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "FilterService.Filter", telemetry.SpanAttributes{
		Operation: "filter",
	})
	defer span.End()

	compiled, err := compileFilter(input)
	if err != nil {
		return nil, err
	}

	units, err := s.contentRepo.ListByProvenance(ctx, domain.ProvenanceUpload)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to list content", err)
	}

	matched := make([]*domain.ContentUnit, 0, len(units))
	for _, unit := range units {
		if !input.IncludeChunks && isChunkUnit(unit) {
			continue
		}
		if compiled.matches(unit) {
			matched = append(matched, unit)
		}
	}

	return &FilterOutput{Items: matched, Total: len(matched)}, nil
}

// isChunkUnit reports whether a unit is a chunk of a larger document.
func isChunkUnit(unit *domain.ContentUnit) bool {
	_, ok := unit.Metadata[domain.MetaOriginalID]
	return ok
}

// compiledFilter is a FilterInput with its predicates normalized and
// validated once, before the unit loop.
type compiledFilter struct {
	types     map[domain.DocumentType]bool
	from      time.Time
	to        time.Time
	hasFrom   bool
	hasTo     bool
	year      int
	minAmount *float64
	maxAmount *float64
	person    string
	org       string
	group     string
	value     string
}

func compileFilter(input FilterInput) (*compiledFilter, error) {
	f := &compiledFilter{
		year:      input.Year,
		minAmount: input.MinAmount,
		maxAmount: input.MaxAmount,
		person:    strings.ToLower(strings.TrimSpace(input.Person)),
		org:       strings.ToLower(strings.TrimSpace(input.Organization)),
		group:     strings.TrimSpace(input.EntityGroup),
		value:     strings.ToLower(strings.TrimSpace(input.EntityValue)),
	}

	names := input.DocumentTypes
	if input.DocumentType != "" {
		names = append([]string{input.DocumentType}, names...)
	}
	if len(names) > 0 {
		f.types = make(map[domain.DocumentType]bool, len(names))
		for _, name := range names {
			docType, err := domain.ParseDocumentType(strings.ToLower(strings.TrimSpace(name)))
			if err != nil {
				return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid document type: %s", name))
			}
			f.types[docType] = true
		}
	}

	if input.DateFrom != "" {
		from, ok := parseFilterDate(input.DateFrom)
		if !ok {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid date: %s", input.DateFrom))
		}
		f.from = from
		f.hasFrom = true
	}
	if input.DateTo != "" {
		to, ok := parseFilterDate(input.DateTo)
		if !ok {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid date: %s", input.DateTo))
		}
		f.to = to
		f.hasTo = true
	}
	if f.hasFrom && f.hasTo && f.to.Before(f.from) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "date range is inverted")
	}

	if input.Year < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "year cannot be negative")
	}

	if f.minAmount != nil && f.maxAmount != nil && *f.maxAmount < *f.minAmount {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "amount range is inverted")
	}

	if f.group == "" && f.value != "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "entity value requires an entity group")
	}

	return f, nil
}

func (f *compiledFilter) matches(unit *domain.ContentUnit) bool {
	md := unit.Metadata

	if len(f.types) > 0 {
		name, ok := metaString(md, domain.MetaDocumentType)
		if !ok {
			return false
		}
		docType, err := domain.ParseDocumentType(strings.ToLower(name))
		if err != nil || !f.types[docType] {
			return false
		}
	}

	if f.hasFrom || f.hasTo || f.year != 0 {
		if !f.matchesDates(metaStrings(md, domain.MetaDates)) {
			return false
		}
	}

	if f.minAmount != nil || f.maxAmount != nil {
		if !f.matchesAmounts(metaFloats(md, domain.MetaAmounts)) {
			return false
		}
	}

	if f.person != "" && !anyContainsFold(metaStrings(md, domain.MetaPeople), f.person) {
		return false
	}

	if f.org != "" && !anyContainsFold(metaStrings(md, domain.MetaOrganizations), f.org) {
		return false
	}

	if f.group != "" {
		matches := metaStrings(md, domain.MetaEntityPrefix+f.group)
		if len(matches) == 0 {
			return false
		}
		if f.value != "" && !anyContainsFold(matches, f.value) {
			return false
		}
	}

	return true
}

// matchesDates reports whether any stored date satisfies the range and
// year predicates. Unparseable stored values are skipped, not failed.
func (f *compiledFilter) matchesDates(raw []string) bool {
	for _, value := range raw {
		date, ok := parseFilterDate(value)
		if !ok {
			continue
		}
		if f.hasFrom && date.Before(f.from) {
			continue
		}
		if f.hasTo && date.After(f.to) {
			continue
		}
		if f.year != 0 && date.Year() != f.year {
			continue
		}
		return true
	}
	return false
}

// matchesAmounts reports whether any stored amount falls inside the
// inclusive range.
func (f *compiledFilter) matchesAmounts(amounts []float64) bool {
	for _, amount := range amounts {
		if f.minAmount != nil && amount < *f.minAmount {
			continue
		}
		if f.maxAmount != nil && amount > *f.maxAmount {
			continue
		}
		return true
	}
	return false
}

// ptMonths maps written Portuguese month names to months.
var ptMonths = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// parseFilterDate parses the date formats the extractor stores: ISO
// (2024-03-15), day-first numeric (15/03/2024) and written Portuguese
// (15 de março de 2024).
func parseFilterDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2/1/2006", value); err == nil {
		return t, true
	}

	parts := strings.Split(strings.ToLower(value), " de ")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := ptMonths[strings.TrimSpace(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || year < 1 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// anyContainsFold reports whether any value contains the needle,
// case-insensitively. The needle must already be lowercased.
func anyContainsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// metaString reads a metadata value as a string.
func metaString(md map[string]any, key string) (string, bool) {
	v, ok := md[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// metaStrings reads a metadata value as a string slice. JSONB round-trips
// arrays as []any, fresh in-memory units carry []string; both appear.
func metaStrings(md map[string]any, key string) []string {
	v, ok := md[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// metaFloats reads a metadata value as a number slice, tolerating the
// same two shapes as metaStrings.
func metaFloats(md map[string]any, key string) []float64 {
	v, ok := md[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []float64:
		return vv
	case []any:
		out := make([]float64, 0, len(vv))
		for _, item := range vv {
			if f, ok := toFloat(item); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
