package manual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"manualgen/internal/media"
	"manualgen/internal/middleware"
	"manualgen/internal/pipeline"
)

const TimeoutHeader = "X-Request-Timeout"

type Handler struct {
	service  *Service
	maxBytes int64
}

func NewHandler(s *Service, maxBytes int64) *Handler {
	return &Handler{service: s, maxBytes: maxBytes}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.writeError(ctx, w, "PAYLOAD_TOO_LARGE", fmt.Sprintf("Request exceeds %d bytes", h.maxBytes), http.StatusRequestEntityTooLarge)
			return
		case errors.Is(err, http.ErrNotMultipart):
			// Plain form posts carry a topic only.
			if err := r.ParseForm(); err != nil {
				h.writeError(ctx, w, "BAD_REQUEST", "Invalid form body", http.StatusBadRequest)
				return
			}
		default:
			h.writeError(ctx, w, "BAD_REQUEST", "Invalid multipart body", http.StatusBadRequest)
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.WarnContext(ctx, "failed to remove multipart temp files", "error", err)
			}
		}()
	}

	topic := strings.TrimSpace(r.FormValue("topic"))

	generateImages, err := parseBool(r.FormValue("generate_images"), true)
	if err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "generate_images must be a boolean", http.StatusBadRequest)
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if topic == "" && len(headers) == 0 {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Provide a topic or at least one file", http.StatusBadRequest)
		return
	}

	timeout, err := parseTimeout(r.Header.Get(TimeoutHeader))
	if err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", TimeoutHeader+" must be a positive number of seconds", http.StatusBadRequest)
		return
	}

	uploads, closeUploads, err := media.FromMultipart(headers)
	if err != nil {
		h.writeError(ctx, w, "MEDIA_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	defer closeUploads()

	out, err := h.service.Generate(ctx, Input{
		Topic:          topic,
		Uploads:        uploads,
		GenerateImages: generateImages,
		Timeout:        timeout,
	})
	if err != nil {
		h.handleGenerateError(ctx, w, err)
		return
	}

	if wantsMarkdown(r) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="manual.md"`)
		if out.ID != "" {
			w.Header().Set("X-Manual-ID", out.ID)
		}
		if _, err := w.Write([]byte(out.Markdown)); err != nil {
			slog.ErrorContext(ctx, "failed to write manual", "error", err)
		}
		return
	}

	if out.ImageURLs == nil {
		out.ImageURLs = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": out}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) handleGenerateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(ctx, w, "TIMEOUT", "Manual generation timed out", http.StatusGatewayTimeout)
	case errors.Is(err, pipeline.ErrEmptyInput):
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
	case errors.Is(err, media.ErrRead):
		h.writeError(ctx, w, "MEDIA_ERROR", err.Error(), http.StatusBadRequest)
	case errors.Is(err, pipeline.ErrExtraction), errors.Is(err, pipeline.ErrSynthesis):
		slog.ErrorContext(ctx, "manual generation failed", "error", err)
		h.writeError(ctx, w, "UPSTREAM_ERROR", err.Error(), http.StatusBadGateway)
	default:
		slog.ErrorContext(ctx, "manual generation failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	}
}

func wantsMarkdown(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/markdown")
}

func parseBool(v string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def, nil
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

func parseTimeout(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid timeout %q", v)
	}
	return time.Duration(n) * time.Second, nil
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
