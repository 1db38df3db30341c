// Package llm defines the capabilities the manual pipeline consumes from a
// hosted model provider. Provider adapters live under internal/adapter.
package llm

import (
	"context"

	"manualgen/internal/media"
)

// Part is one element of a user turn: either text or an attachment.
type Part struct {
	Text  string
	Media *media.Attachment
}

func TextPart(s string) Part { return Part{Text: s} }

func MediaPart(a media.Attachment) Part { return Part{Media: &a} }

// TextGenerator runs a single-turn exchange: a fixed system instruction
// followed by one user turn made of parts, in order.
type TextGenerator interface {
	Generate(ctx context.Context, system string, parts []Part) (string, error)
}

type Image struct {
	Data      []byte
	MediaType string
}

// ImageGenerator produces zero or one image for a prompt. A nil image with a
// nil error means the provider answered without an image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}
