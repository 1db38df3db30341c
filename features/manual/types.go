package manual

import (
	"context"
	"time"

	"manualgen/features/run"
	"manualgen/internal/media"
	"manualgen/internal/pipeline"
)

// Generator runs the manual pipeline. *pipeline.Pipeline implements it.
type Generator interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// RunRecorder stores run metadata. *run.Service implements it.
type RunRecorder interface {
	Record(ctx context.Context, r *run.Run)
}

type Input struct {
	Topic          string
	Uploads        []media.Upload
	GenerateImages bool
	// Timeout replaces the service default when positive and shorter.
	Timeout time.Duration
}

type Section struct {
	Index       int    `json:"index"`
	Heading     string `json:"heading"`
	Illustrated bool   `json:"illustrated"`
	Error       string `json:"error,omitempty"`
}

type Stats struct {
	Sections        int   `json:"sections"`
	ImagesGenerated int   `json:"images_generated"`
	ImagesMissing   int   `json:"images_missing"`
	DurationMs      int64 `json:"duration_ms"`
}

// Manual is the response body of a successful generation.
type Manual struct {
	ID        string    `json:"id"`
	Markdown  string    `json:"manual_markdown"`
	HTML      string    `json:"manual_html"`
	ImageURLs []string  `json:"image_urls"`
	Sections  []Section `json:"sections"`
	Stats     Stats     `json:"stats"`
}
