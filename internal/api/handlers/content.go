package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/corpusd/internal/api"
	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/service"
)

type ContentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*service.UploadOutput, error)
	GetByID(ctx context.Context, id string) (*domain.ContentUnit, error)
	ListContent(ctx context.Context, input service.ListContentInput) (*service.ListContentOutput, error)
	Delete(ctx context.Context, id string) error
	ArchiveURL(ctx context.Context, id string) (string, error)
}

type ContentHandler struct {
	svc ContentService
}

func NewContentHandler(svc ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type UploadContentRequest struct {
	Content  string         `json:"content"`
	Filename string         `json:"filename,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ContentUnitResponse struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Provenance  string         `json:"provenance"`
	RowIndex    *int           `json:"row_index,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	ArchiveKey  string         `json:"archive_key,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type UploadContentResponse struct {
	Unit       *ContentUnitResponse `json:"unit"`
	Enhanced   bool                 `json:"enhanced"`
	ChunkCount int                  `json:"chunk_count"`
}

func contentToResponse(u *domain.ContentUnit) *ContentUnitResponse {
	return &ContentUnitResponse{
		ID:          u.ID,
		Text:        u.Text,
		Metadata:    u.Metadata,
		Provenance:  string(u.Provenance),
		RowIndex:    u.RowIndex,
		Fingerprint: u.Fingerprint,
		ArchiveKey:  u.ArchiveKey,
		CreatedAt:   u.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   u.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	input := service.UploadInput{
		Content:  req.Content,
		Filename: req.Filename,
		Metadata: req.Metadata,
	}

	output, err := h.svc.Upload(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadContentResponse{
		Unit:       contentToResponse(output.Unit),
		Enhanced:   output.Enhanced,
		ChunkCount: output.ChunkCount,
	})
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	unit, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentToResponse(unit))
}

type ContentListResponse struct {
	Items   []*ContentUnitResponse `json:"items"`
	Cursor  string                 `json:"cursor,omitempty"`
	HasMore bool                   `json:"has_more"`
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	provenance := r.URL.Query().Get("provenance")
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	input := service.ListContentInput{
		Provenance: provenance,
		Cursor:     cursor,
		Limit:      limit,
	}

	output, err := h.svc.ListContent(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ContentUnitResponse, len(output.Items))
	for i, u := range output.Items {
		responses[i] = contentToResponse(u)
	}

	api.Success(w, http.StatusOK, ContentListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

type ArchiveURLResponse struct {
	URL string `json:"url"`
}

// Archive returns a presigned URL for the raw payload as it arrived,
// before any enhancement touched it.
func (h *ContentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.ArchiveURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ArchiveURLResponse{URL: url})
}
