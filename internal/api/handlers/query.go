package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/corpusd/internal/api"
	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type FilterService interface {
	Filter(ctx context.Context, input service.FilterInput) (*service.FilterOutput, error)
}

type QueryHandler struct {
	search SearchService
	filter FilterService
}

func NewQueryHandler(search SearchService, filter FilterService) *QueryHandler {
	return &QueryHandler{search: search, filter: filter}
}

// FilterRequest selects upload-sourced units by their enriched metadata.
// All present predicates must hold.
type FilterRequest struct {
	DocumentType  string   `json:"document_type,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
	DateFrom      string   `json:"date_from,omitempty"`
	DateTo        string   `json:"date_to,omitempty"`
	Year          int      `json:"year,omitempty"`
	MinAmount     *float64 `json:"min_amount,omitempty"`
	MaxAmount     *float64 `json:"max_amount,omitempty"`
	Person        string   `json:"person,omitempty"`
	Organization  string   `json:"organization,omitempty"`
	EntityGroup   string   `json:"entity_group,omitempty"`
	EntityValue   string   `json:"entity_value,omitempty"`
	IncludeChunks bool     `json:"include_chunks,omitempty"`
}

func (req *FilterRequest) toInput() service.FilterInput {
	return service.FilterInput{
		DocumentType:  req.DocumentType,
		DocumentTypes: req.DocumentTypes,
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
		Year:          req.Year,
		MinAmount:     req.MinAmount,
		MaxAmount:     req.MaxAmount,
		Person:        req.Person,
		Organization:  req.Organization,
		EntityGroup:   req.EntityGroup,
		EntityValue:   req.EntityValue,
		IncludeChunks: req.IncludeChunks,
	}
}

type SearchContentRequest struct {
	Query  string         `json:"query"`
	Limit  int            `json:"limit,omitempty"`
	Filter *FilterRequest `json:"filter,omitempty"`
}

type SearchResultResponse struct {
	ID           string  `json:"id"`
	Snippet      string  `json:"snippet,omitempty"`
	Score        float64 `json:"score"`
	Provenance   string  `json:"provenance"`
	DocumentType string  `json:"document_type,omitempty"`
	OriginalID   string  `json:"original_id,omitempty"`
}

type SearchContentResponse struct {
	Results []*SearchResultResponse `json:"results"`
	Total   int                     `json:"total"`
}

func (h *QueryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	input := service.SearchInput{
		Query: req.Query,
		Limit: req.Limit,
	}
	if req.Filter != nil {
		filterInput := req.Filter.toInput()
		input.Filter = &filterInput
	}

	output, err := h.search.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SearchResultResponse, len(output.Results))
	for i, result := range output.Results {
		responses[i] = searchResultToResponse(result)
	}

	api.Success(w, http.StatusOK, SearchContentResponse{
		Results: responses,
		Total:   output.Total,
	})
}

func searchResultToResponse(result *service.SearchResult) *SearchResultResponse {
	resp := &SearchResultResponse{
		ID:         result.Unit.ID,
		Snippet:    result.Snippet,
		Score:      result.Score,
		Provenance: string(result.Unit.Provenance),
	}
	if docType, ok := result.Unit.Metadata[domain.MetaDocumentType].(string); ok {
		resp.DocumentType = docType
	}
	if originalID, ok := result.Unit.Metadata[domain.MetaOriginalID].(string); ok {
		resp.OriginalID = originalID
	}
	return resp
}

type FilterContentResponse struct {
	Items []*ContentUnitResponse `json:"items"`
	Total int                    `json:"total"`
}

func (h *QueryHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	output, err := h.filter.Filter(r.Context(), req.toInput())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ContentUnitResponse, len(output.Items))
	for i, u := range output.Items {
		responses[i] = contentToResponse(u)
	}

	api.Success(w, http.StatusOK, FilterContentResponse{
		Items: responses,
		Total: output.Total,
	})
}
