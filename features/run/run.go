package run

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("run not found")

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is the metadata of one generation request. Manual content, the corpus
// and images are never part of it.
type Run struct {
	ID              string    `json:"id"`
	CorrelationID   string    `json:"correlation_id"`
	Topic           string    `json:"topic"`
	AttachmentCount int       `json:"attachment_count"`
	Status          string    `json:"status"`
	Sections        int       `json:"sections"`
	ImagesGenerated int       `json:"images_generated"`
	ImagesMissing   int       `json:"images_missing"`
	Error           string    `json:"error,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}
