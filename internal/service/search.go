package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/telemetry"
)

const (
	defaultSearchLimit  = 20
	candidateMultiplier = 4
	minCandidates       = 20
	maxCandidates       = 200
	snippetMaxChars     = 220
)

// EmbeddingServiceInterface defines the interface for embedding generation
type EmbeddingServiceInterface interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchInput represents input for search operation
type SearchInput struct {
	Query  string
	Limit  int
	Filter *FilterInput
}

// SearchResult pairs one matching unit with its relevance score.
type SearchResult struct {
	Unit    *domain.ContentUnit
	Score   float64
	Snippet string
}

// SearchOutput represents output from search operation
type SearchOutput struct {
	Results []*SearchResult
	Total   int
}

// SearchService answers semantic queries over the corpus. The query is
// embedded, pgvector ranks candidates by embedding distance, and an
// optional metadata filter prunes the ranked list. Chunk units rank
// independently of their parents, so a query can land on the one chunk
// that actually mentions it.
type SearchService struct {
	contentRepo ContentRepositoryInterface
	embedding   EmbeddingServiceInterface
}

// NewSearchService creates a new SearchService instance
func NewSearchService(contentRepo ContentRepositoryInterface, embedding EmbeddingServiceInterface) *SearchService {
	return &SearchService{contentRepo: contentRepo, embedding: embedding}
}

// Search runs one semantic query.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return &SearchOutput{Results: []*SearchResult{}}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var compiled *compiledFilter
	fetchLimit := limit
	if input.Filter != nil {
		var err error
		compiled, err = compileFilter(*input.Filter)
		if err != nil {
			return nil, err
		}

		// Over-fetch so post-filtering still fills the page.
		fetchLimit = limit * candidateMultiplier
		if fetchLimit < minCandidates {
			fetchLimit = minCandidates
		}
		if fetchLimit > maxCandidates {
			fetchLimit = maxCandidates
		}
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to embed query", err)
	}

	scored, err := s.contentRepo.SemanticSearch(ctx, embedding, fetchLimit)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "semantic search failed", err)
	}

	results := make([]*SearchResult, 0, limit)
	for _, candidate := range scored {
		if compiled != nil && !compiled.matches(candidate.Unit) {
			continue
		}
		results = append(results, &SearchResult{
			Unit:    candidate.Unit,
			Score:   candidate.Score,
			Snippet: makeSnippet(candidate.Unit.Text),
		})
		if len(results) == limit {
			break
		}
	}

	return &SearchOutput{Results: results, Total: len(results)}, nil
}

// makeSnippet collapses whitespace and truncates on a rune boundary.
func makeSnippet(content string) string {
	if content == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(content), " ")
	runes := []rune(clean)
	if len(runes) <= snippetMaxChars {
		return clean
	}
	return string(runes[:snippetMaxChars-3]) + "..."
}
