package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// Extraction patterns. Dates cover ISO, day-first numeric and written
// Portuguese forms; amounts require a currency marker so bare numbers
// never match.
var (
	isoDateRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	numericDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	writtenDateRe = regexp.MustCompile(`\b\d{1,2} de (?:janeiro|fevereiro|março|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro) de \d{4}\b`)

	amountRe = regexp.MustCompile(`(?:R\$|US\$|\$|€|£)\s*\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?`)

	personRe = regexp.MustCompile(`\b\p{Lu}\p{Ll}+(?:\s+(?:d[aeo]s?\s+)?\p{Lu}\p{Ll}+){1,3}\b`)

	organizationRe = regexp.MustCompile(`\b(?:\p{Lu}[\p{L}&.-]*\s+){0,4}(?:Ltda\.?|S\.A\.|S/A|Inc\.?|LLC|Corp\.?|GmbH|Eireli|ME|EPP)\b`)
)

// customMatcher is one compiled user-defined entity group.
type customMatcher struct {
	name     string
	patterns []string
	re       *regexp.Regexp
}

// EntityExtractor applies the configured extractors to document text and
// returns deduplicated matches. It performs no interpretation beyond
// numeric coercion of amounts.
type EntityExtractor struct {
	cfg    EntityExtractionConfig
	custom []customMatcher
}

// NewEntityExtractor compiles the configured custom groups. The config is
// validated at load time, so compile failures here mean the config was
// mutated after loading.
func NewEntityExtractor(cfg EntityExtractionConfig) (*EntityExtractor, error) {
	custom := make([]customMatcher, 0, len(cfg.CustomEntities))
	for _, c := range cfg.CustomEntities {
		m := customMatcher{name: c.Name, patterns: c.Patterns}
		if c.Regex != "" {
			re, err := regexp.Compile(c.Regex)
			if err != nil {
				return nil, err
			}
			m.re = re
		}
		custom = append(custom, m)
	}

	return &EntityExtractor{cfg: cfg, custom: custom}, nil
}

// Extract runs every enabled extractor over the content.
func (e *EntityExtractor) Extract(content string) domain.ExtractedEntities {
	entities := domain.ExtractedEntities{}
	if !e.cfg.Enabled || content == "" {
		return entities
	}

	if e.cfg.ExtractDates {
		entities.Dates = e.extractDates(content)
	}
	if e.cfg.ExtractAmounts {
		entities.Amounts = e.extractAmounts(content)
	}

	var organizations []string
	if e.cfg.ExtractOrganizations {
		organizations = dedupe(organizationRe.FindAllString(content, -1))
		entities.Organizations = organizations
	}
	if e.cfg.ExtractNames {
		entities.People = e.extractPeople(content, organizations)
	}

	if len(e.custom) > 0 {
		entities.Custom = e.extractCustom(content)
	}

	return entities
}

// extractDates collects matches of every date format in document order.
func (e *EntityExtractor) extractDates(content string) []string {
	matches := isoDateRe.FindAllString(content, -1)
	matches = append(matches, numericDateRe.FindAllString(content, -1)...)
	matches = append(matches, writtenDateRe.FindAllString(content, -1)...)
	return dedupe(matches)
}

// extractAmounts parses currency-marked amounts into numbers, handling
// both decimal-comma and decimal-point forms.
func (e *EntityExtractor) extractAmounts(content string) []float64 {
	matches := amountRe.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}

	amounts := make([]float64, 0, len(matches))
	seen := make(map[float64]bool, len(matches))
	for _, m := range matches {
		value, ok := parseAmount(m)
		if !ok || seen[value] {
			continue
		}
		seen[value] = true
		amounts = append(amounts, value)
	}

	if len(amounts) == 0 {
		return nil
	}
	return amounts
}

// extractPeople matches capitalized name sequences, dropping candidates
// that are part of an organization match.
func (e *EntityExtractor) extractPeople(content string, organizations []string) []string {
	candidates := personRe.FindAllString(content, -1)
	people := make([]string, 0, len(candidates))
	for _, c := range candidates {
		inOrg := false
		for _, org := range organizations {
			if strings.Contains(org, c) {
				inOrg = true
				break
			}
		}
		if !inOrg {
			people = append(people, c)
		}
	}
	return dedupe(people)
}

// extractCustom matches the user-defined groups. Keyword patterns match
// case-insensitively and report the configured pattern text; regex groups
// report the matched text.
func (e *EntityExtractor) extractCustom(content string) map[string][]string {
	lowered := strings.ToLower(content)
	result := make(map[string][]string, len(e.custom))

	for _, m := range e.custom {
		var matches []string
		for _, p := range m.patterns {
			if strings.Contains(lowered, strings.ToLower(p)) {
				matches = append(matches, p)
			}
		}
		if m.re != nil {
			matches = append(matches, m.re.FindAllString(content, -1)...)
		}
		matches = dedupe(matches)
		if len(matches) > 0 {
			result[m.name] = matches
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// parseAmount coerces one currency match to a number. The rightmost
// separator decides the locale: "1.234,56" reads as decimal comma,
// "1,234.56" as decimal point, and a trailing three-digit group with no
// further separator ("1.234") reads as a thousands mark.
func parseAmount(match string) (float64, bool) {
	digits := strings.TrimSpace(match)
	for _, symbol := range []string{"R$", "US$", "$", "€", "£"} {
		digits = strings.TrimPrefix(digits, symbol)
	}
	digits = strings.TrimSpace(digits)
	if digits == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(digits, ",")
	lastDot := strings.LastIndex(digits, ".")
	last := lastComma
	if lastDot > last {
		last = lastDot
	}

	if last >= 0 {
		switch {
		case len(digits)-last-1 == 3:
			digits = strings.NewReplacer(",", "", ".", "").Replace(digits)
		case lastComma > lastDot:
			digits = strings.ReplaceAll(digits, ".", "")
			digits = strings.Replace(digits, ",", ".", 1)
		default:
			digits = strings.ReplaceAll(digits, ",", "")
		}
	}

	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
