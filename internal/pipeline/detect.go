package pipeline

import (
	"strings"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// typeSignals is the built-in rule set for one document type: content
// keywords and filename fragments, all lowercase.
type typeSignals struct {
	docType   domain.DocumentType
	keywords  []string
	filenames []string
}

// Scoring weights. Each distinct keyword hit contributes keywordWeight up
// to keywordCap; a filename hit contributes filenameWeight; the total is
// capped at 1.
const (
	keywordWeight  = 0.25
	keywordCap     = 0.75
	filenameWeight = 0.35
)

// defaultTypeSignals lists the rules in fixed order so ties resolve
// deterministically.
func defaultTypeSignals() []typeSignals {
	return []typeSignals{
		{
			docType:   domain.DocumentTypeInvoice,
			keywords:  []string{"invoice", "amount due", "payment due", "bill to", "nota fiscal", "fatura", "boleto", "vencimento"},
			filenames: []string{"invoice", "fatura", "nf-", "nfe"},
		},
		{
			docType:   domain.DocumentTypeContract,
			keywords:  []string{"contract", "agreement", "hereby", "clause", "the parties", "contrato", "cláusula", "partes", "rescisão"},
			filenames: []string{"contract", "agreement", "contrato"},
		},
		{
			docType:   domain.DocumentTypeFinancial,
			keywords:  []string{"revenue", "profit", "balance sheet", "fiscal", "budget", "receita", "lucro", "balanço", "faturamento", "despesa"},
			filenames: []string{"financial", "balanco", "budget", "financeiro"},
		},
		{
			docType:   domain.DocumentTypeReport,
			keywords:  []string{"report", "summary", "analysis", "quarterly", "annual", "findings", "relatório", "resumo", "análise", "trimestral"},
			filenames: []string{"report", "relatorio", "summary"},
		},
		{
			docType:   domain.DocumentTypeManual,
			keywords:  []string{"manual", "guide", "instructions", "step", "procedure", "how to", "guia", "instruções", "passo a passo", "procedimento"},
			filenames: []string{"manual", "guide", "guia", "howto"},
		},
	}
}

// TypeDetector scores content and filename against per-type keyword rules
// and returns the best type when its score clears the configured
// threshold. Deterministic for a fixed config and input.
type TypeDetector struct {
	cfg     TypeDetectionConfig
	signals []typeSignals
}

// NewTypeDetector creates a TypeDetector with the built-in rule set.
func NewTypeDetector(cfg TypeDetectionConfig) *TypeDetector {
	return &TypeDetector{
		cfg:     cfg,
		signals: defaultTypeSignals(),
	}
}

// Detect returns the detected document type and its confidence score.
// Scores below the threshold fall back to the general type, keeping the
// weak score as the reported confidence.
func (d *TypeDetector) Detect(content, filename string) (domain.DocumentType, float64) {
	loweredContent := ""
	if d.cfg.UseContent {
		loweredContent = strings.ToLower(content)
	}
	loweredFilename := ""
	if d.cfg.UseFilename {
		loweredFilename = strings.ToLower(filename)
	}

	best := domain.DocumentTypeGeneral
	bestScore := 0.0

	for _, sig := range d.signals {
		score := d.score(sig, loweredContent, loweredFilename)
		if score > bestScore {
			best = sig.docType
			bestScore = score
		}
	}

	if bestScore < d.cfg.ConfidenceThreshold {
		return domain.DocumentTypeGeneral, bestScore
	}

	return best, bestScore
}

// score computes one type's evidence for the input.
func (d *TypeDetector) score(sig typeSignals, content, filename string) float64 {
	score := 0.0

	if content != "" {
		hits := 0.0
		for _, kw := range sig.keywords {
			if strings.Contains(content, kw) {
				hits += keywordWeight
			}
		}
		if hits > keywordCap {
			hits = keywordCap
		}
		score += hits
	}

	if filename != "" {
		for _, fragment := range sig.filenames {
			if strings.Contains(filename, fragment) {
				score += filenameWeight
				break
			}
		}
	}

	if score > 1 {
		score = 1
	}

	return score
}
