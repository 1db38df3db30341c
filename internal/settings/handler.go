package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"manualgen/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type keyView struct {
	Set    bool   `json:"set"`
	Source string `json:"source"`
	Masked string `json:"masked,omitempty"`
}

func mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func view(stored, effective string) keyView {
	v := keyView{Set: effective != "", Masked: mask(effective)}
	switch {
	case stored != "":
		v.Source = "settings"
	case effective != "":
		v.Source = "environment"
	default:
		v.Source = "none"
	}
	return v
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := h.svc.Get(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	eff, err := h.svc.Effective(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]keyView{
			"gemini_api_key": view(stored.GeminiAPIKey, eff.GeminiAPIKey),
			"openai_api_key": view(stored.OpenAIAPIKey, eff.OpenAIAPIKey),
		},
	})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	s.GeminiAPIKey = strings.TrimSpace(s.GeminiAPIKey)
	s.OpenAIAPIKey = strings.TrimSpace(s.OpenAIAPIKey)
	if err := h.svc.Update(r.Context(), &s); err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
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

	json.NewEncoder(w).Encode(resp)
}
