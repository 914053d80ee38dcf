package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragseed/internal/middleware"
	"ragseed/internal/seed"
)

type SourceRepo interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status seed.Status) (int, error)
}

type LogRepo interface {
	Count(ctx context.Context) (int, error)
}

type RecordStore interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	sourceRepo SourceRepo
	logRepo    LogRepo
	store      RecordStore
}

func NewHandler(s SourceRepo, l LogRepo, r RecordStore) *Handler {
	return &Handler{sourceRepo: s, logRepo: l, store: r}
}

type StatsResponse struct {
	Sources int `json:"sources"`
	Seeded  int `json:"seeded"`
	Failed  int `json:"failed"`
	Records int `json:"records"`
	Logs    int `json:"logs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	var resp StatsResponse
	counts := []struct {
		name  string
		count func(context.Context) (int, error)
		dst   *int
	}{
		{"sources", h.sourceRepo.Count, &resp.Sources},
		{"seeded sources", statusCount(h.sourceRepo, seed.StatusSeeded), &resp.Seeded},
		{"failed sources", statusCount(h.sourceRepo, seed.StatusError), &resp.Failed},
		{"records", h.store.Count, &resp.Records},
		{"seed logs", h.logRepo.Count, &resp.Logs},
	}
	for _, c := range counts {
		n, err := c.count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count "+c.name, "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count "+c.name, http.StatusInternalServerError)
			return
		}
		*c.dst = n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func statusCount(repo SourceRepo, status seed.Status) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		return repo.CountByStatus(ctx, status)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
