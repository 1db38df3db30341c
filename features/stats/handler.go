package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"manualgen/features/run"
	"manualgen/internal/middleware"
)

type RunRepo interface {
	Summary(ctx context.Context) (*run.Summary, error)
}

type Handler struct {
	runRepo RunRepo
}

func NewHandler(r RunRepo) *Handler {
	return &Handler{runRepo: r}
}

type StatsResponse struct {
	Runs            int `json:"runs"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	ImagesGenerated int `json:"images_generated"`
	ImagesMissing   int `json:"images_missing"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slog.InfoContext(ctx, "getting stats")

	s, err := h.runRepo.Summary(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to summarize runs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to summarize runs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Runs:            s.Runs,
		Completed:       s.Completed,
		Failed:          s.Failed,
		ImagesGenerated: s.ImagesGenerated,
		ImagesMissing:   s.ImagesMissing,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
