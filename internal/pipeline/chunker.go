package pipeline

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// span is a half-open rune range [start, end).
type span struct {
	start int
	end   int
}

// Chunker splits document text into size-bounded chunks. All offsets and
// sizes are in runes. Chunks are never trimmed, so concatenating each
// chunk's non-overlap span reproduces the original text exactly.
type Chunker struct {
	cfg ChunkingConfig
}

// NewChunker creates a Chunker. The config is assumed validated.
func NewChunker(cfg ChunkingConfig) *Chunker {
	return &Chunker{cfg: cfg}
}

// Chunk splits text into chunks of at most max_size runes, preferring
// structural boundaries under the semantic method and never cutting
// inside a detected table. Consecutive chunks share overlap runes. A
// table longer than max_size is emitted as one oversized chunk rather
// than split.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var tables []span
	if c.cfg.PreserveTables {
		tables = detectTableSpans(runes)
	}

	if n <= c.cfg.MaxSize {
		return []domain.Chunk{{
			Text: text,
			Meta: domain.ChunkMetadata{
				Index:         0,
				Size:          n,
				Start:         0,
				End:           n,
				Overlap:       0,
				TableFragment: intersectsAny(tables, 0, n),
			},
		}}
	}

	chunks := make([]domain.Chunk, 0, n/c.cfg.MinSize+1)
	start := 0
	prevEnd := 0

	for start < n {
		end := c.cut(runes, tables, start)

		overlap := 0
		if len(chunks) > 0 && prevEnd > start {
			overlap = prevEnd - start
		}

		chunks = append(chunks, domain.Chunk{
			Text: string(runes[start:end]),
			Meta: domain.ChunkMetadata{
				Index:         len(chunks),
				Size:          end - start,
				Start:         start,
				End:           end,
				Overlap:       overlap,
				TableFragment: intersectsAny(tables, start, end),
			},
		})

		if end >= n {
			break
		}

		prevEnd = end
		start = c.nextStart(tables, start, end)
	}

	return chunks
}

// cut picks the end of the chunk beginning at start.
func (c *Chunker) cut(runes []rune, tables []span, start int) int {
	n := len(runes)
	end := start + c.cfg.MaxSize
	if end >= n {
		return n
	}

	if c.cfg.Method == ChunkMethodSemantic {
		end = c.boundaryCut(runes, start, end)
	}

	if t, ok := tableAround(tables, end); ok {
		if t.start > start {
			// cut before the table instead of inside it
			end = t.start
		} else {
			// the chunk starts at or inside the table, take it whole
			end = t.end
			if end > n {
				end = n
			}
		}
	}

	if end <= start {
		end = start + c.cfg.MaxSize
		if end > n {
			end = n
		}
	}

	return end
}

// boundaryCut searches backward from end toward start+min_size for the
// best structural boundary: paragraph break, then sentence end, then line
// break, then any whitespace. Falls back to the hard cut at end.
func (c *Chunker) boundaryCut(runes []rune, start, end int) int {
	minCut := start + c.cfg.MinSize
	if minCut >= end {
		return end
	}

	for i := end; i > minCut; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}

	for i := end; i > minCut; i-- {
		r := runes[i-1]
		if (r == ' ' || r == '\n') && i >= 2 && isSentenceEnd(runes[i-2]) {
			return i
		}
	}

	for i := end; i > minCut; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}

	for i := end; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	return end
}

// nextStart rewinds by the configured overlap, keeping chunk starts out
// of table interiors.
func (c *Chunker) nextStart(tables []span, start, end int) int {
	next := end
	if c.cfg.Overlap > 0 && end-start > c.cfg.Overlap {
		next = end - c.cfg.Overlap
	}

	if t, ok := tableAround(tables, next); ok {
		next = t.end
	}

	if next <= start || next > end {
		next = end
	}

	return next
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// detectTableSpans finds blocks of two or more consecutive table lines. A
// table line either starts with a pipe or contains at least two pipes,
// the shape of a markdown table row. Spans include the trailing newline
// of their last line.
func detectTableSpans(runes []rune) []span {
	var spans []span
	blockStart := -1
	lines := 0
	pos := 0
	n := len(runes)

	for pos < n {
		lineEnd := pos
		for lineEnd < n && runes[lineEnd] != '\n' {
			lineEnd++
		}
		nextPos := lineEnd
		if nextPos < n {
			nextPos++
		}

		if isTableLine(runes[pos:lineEnd]) {
			if blockStart < 0 {
				blockStart = pos
			}
			lines++
		} else {
			if lines >= 2 {
				spans = append(spans, span{start: blockStart, end: pos})
			}
			blockStart = -1
			lines = 0
		}

		pos = nextPos
	}

	if lines >= 2 {
		spans = append(spans, span{start: blockStart, end: n})
	}

	return spans
}

func isTableLine(line []rune) bool {
	s := strings.TrimSpace(string(line))
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "|") {
		return true
	}
	return strings.Count(s, "|") >= 2
}

// tableAround returns the table span strictly containing pos, if any.
func tableAround(tables []span, pos int) (span, bool) {
	for _, t := range tables {
		if t.start < pos && pos < t.end {
			return t, true
		}
	}
	return span{}, false
}

// intersectsAny reports whether [start, end) overlaps any table span.
func intersectsAny(tables []span, start, end int) bool {
	for _, t := range tables {
		if t.start < end && start < t.end {
			return true
		}
	}
	return false
}
