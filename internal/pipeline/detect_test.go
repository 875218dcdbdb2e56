package pipeline

import (
	"testing"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTypeDetectorDetect(t *testing.T) {
	detector := NewTypeDetector(TypeDetectionConfig{
		UseFilename:         true,
		UseContent:          true,
		ConfidenceThreshold: 0.3,
	})

	tests := []struct {
		name     string
		content  string
		filename string
		expected domain.DocumentType
	}{
		{
			name:     "invoice by content",
			content:  "Invoice #1234. Amount due: R$ 500,00. Payment due by the end of the month.",
			filename: "document.pdf",
			expected: domain.DocumentTypeInvoice,
		},
		{
			name:     "contract by content",
			content:  "This agreement is made between the parties. The contract includes the following clause.",
			filename: "scan.pdf",
			expected: domain.DocumentTypeContract,
		},
		{
			name:     "report by filename and content",
			content:  "Quarterly summary of findings.",
			filename: "q3_report.docx",
			expected: domain.DocumentTypeReport,
		},
		{
			name:     "manual by content",
			content:  "User guide. Step 1: open the panel. Follow the instructions in each procedure.",
			filename: "notes.txt",
			expected: domain.DocumentTypeManual,
		},
		{
			name:     "no signal falls back to general",
			content:  "Nothing remarkable in here at all.",
			filename: "misc.txt",
			expected: domain.DocumentTypeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docType, confidence := detector.Detect(tt.content, tt.filename)
			assert.Equal(t, tt.expected, docType)
			assert.GreaterOrEqual(t, confidence, 0.0)
			assert.LessOrEqual(t, confidence, 1.0)
		})
	}
}

func TestTypeDetectorHighThresholdFallsBackToGeneral(t *testing.T) {
	detector := NewTypeDetector(TypeDetectionConfig{
		UseFilename:         true,
		UseContent:          true,
		ConfidenceThreshold: 0.9,
	})

	// One weak keyword is nowhere near 0.9.
	docType, confidence := detector.Detect("A short note that mentions an invoice once.", "note.txt")

	assert.Equal(t, domain.DocumentTypeGeneral, docType)
	assert.Less(t, confidence, 0.9)
	assert.Greater(t, confidence, 0.0)
}

func TestTypeDetectorStrongSignalClearsHighThreshold(t *testing.T) {
	detector := NewTypeDetector(TypeDetectionConfig{
		UseFilename:         true,
		UseContent:          true,
		ConfidenceThreshold: 0.9,
	})

	content := "Invoice #99. Amount due: $120.00. Payment due immediately. Bill to: Acme. Nota fiscal anexa."
	docType, confidence := detector.Detect(content, "invoice_99.pdf")

	assert.Equal(t, domain.DocumentTypeInvoice, docType)
	assert.GreaterOrEqual(t, confidence, 0.9)
}

func TestTypeDetectorSourceToggles(t *testing.T) {
	content := "Invoice with an amount due and a nota fiscal."
	filename := "invoice.pdf"

	t.Run("content disabled", func(t *testing.T) {
		detector := NewTypeDetector(TypeDetectionConfig{UseFilename: true, UseContent: false, ConfidenceThreshold: 0.3})
		docType, confidence := detector.Detect(content, filename)
		assert.Equal(t, domain.DocumentTypeInvoice, docType)
		assert.Equal(t, filenameWeight, confidence)
	})

	t.Run("filename disabled", func(t *testing.T) {
		detector := NewTypeDetector(TypeDetectionConfig{UseFilename: false, UseContent: true, ConfidenceThreshold: 0.3})
		docType, _ := detector.Detect(content, filename)
		assert.Equal(t, domain.DocumentTypeInvoice, docType)
	})

	t.Run("both disabled", func(t *testing.T) {
		detector := NewTypeDetector(TypeDetectionConfig{UseFilename: false, UseContent: false, ConfidenceThreshold: 0.3})
		docType, confidence := detector.Detect(content, filename)
		assert.Equal(t, domain.DocumentTypeGeneral, docType)
		assert.Equal(t, 0.0, confidence)
	})
}

func TestTypeDetectorDeterministic(t *testing.T) {
	detector := NewTypeDetector(TypeDetectionConfig{UseFilename: true, UseContent: true, ConfidenceThreshold: 0.3})
	content := "Annual report with revenue analysis and a budget summary."

	firstType, firstScore := detector.Detect(content, "annual.pdf")
	for i := 0; i < 5; i++ {
		docType, score := detector.Detect(content, "annual.pdf")
		assert.Equal(t, firstType, docType)
		assert.Equal(t, firstScore, score)
	}
}
