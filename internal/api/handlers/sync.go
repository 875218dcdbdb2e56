package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/corpusd/internal/api"
	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/service"
)

type SyncService interface {
	Sync(ctx context.Context, trigger domain.SyncTrigger) (*service.SyncResult, error)
	Status(ctx context.Context) (*domain.SyncRun, error)
	History(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

type SyncRunResponse struct {
	ID          string `json:"id"`
	TriggeredBy string `json:"triggered_by"`
	Status      string `json:"status"`
	Added       int    `json:"added"`
	Changed     int    `json:"changed"`
	Deleted     int    `json:"deleted"`
	Unchanged   int    `json:"unchanged"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

func syncRunToResponse(run *domain.SyncRun) *SyncRunResponse {
	resp := &SyncRunResponse{
		ID:          run.ID,
		TriggeredBy: string(run.Trigger),
		Status:      string(run.Status),
		Added:       run.Added,
		Changed:     run.Changed,
		Deleted:     run.Deleted,
		Unchanged:   run.Unchanged,
		Error:       run.Error,
		StartedAt:   run.StartedAt.Format("2006-01-02T15:04:05Z"),
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// Trigger runs a forced sync pass. The pass runs to completion before
// the response is written, so the caller gets the final counts.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Sync(r.Context(), domain.SyncTriggerForced)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, syncRunToResponse(result.Run))
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Status(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, syncRunToResponse(run))
}

type SyncHistoryResponse struct {
	Runs []*SyncRunResponse `json:"runs"`
}

func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SyncRunResponse, len(runs))
	for i, run := range runs {
		responses[i] = syncRunToResponse(run)
	}

	api.Success(w, http.StatusOK, SyncHistoryResponse{Runs: responses})
}
