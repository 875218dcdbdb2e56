package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintSep separates fields inside the digest input so adjacent
// values can never run together ("ab"+"c" vs "a"+"bc").
const fingerprintSep = "\x1f"

// Fingerprint computes the content digest of a row: SHA-256 over the
// meaningful fields joined in fixed order prompt, answer, schema type,
// category, business unit. The row's position is excluded, so reordering
// rows never changes a digest and any meaningful edit always does.
// Returns ErrRowShape for rows with no usable content.
func Fingerprint(r *KnowledgeRow) (string, error) {
	if r == nil {
		return "", ErrRowShape
	}

	if strings.TrimSpace(r.Prompt) == "" && strings.TrimSpace(r.Answer) == "" {
		return "", ErrRowShape
	}

	fields := []string{
		r.Prompt,
		r.Answer,
		r.SchemaType,
		r.Category,
		r.BusinessUnit,
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, fingerprintSep)))
	return hex.EncodeToString(sum[:]), nil
}
