package pipeline

import (
	"context"
	"errors"

	"manualgen/internal/imagestore"
	"manualgen/internal/llm"
	"manualgen/internal/text"
)

var (
	ErrEmptyInput    = errors.New("topic or attachments required")
	ErrExtraction    = errors.New("corpus extraction failed")
	ErrSynthesis     = errors.New("manual synthesis failed")
	ErrArityMismatch = errors.New("illustration count does not match section count")
)

// Corpus is the unstructured knowledge extracted from the topic and media.
type Corpus string

// Manual is the synthesized Markdown document with its sections as
// discovered by heading scan.
type Manual struct {
	Markdown string
	Overview string
	Sections []text.Section
}

func NewManual(markdown string) Manual {
	doc := text.ParseSections(markdown)
	return Manual{
		Markdown: markdown,
		Overview: doc.Overview,
		Sections: doc.Sections,
	}
}

type IllustrationRequest struct {
	SectionIndex int
	Heading      string
	Prompt       string
}

type IllustrationResult struct {
	SectionIndex int                 `json:"section_index"`
	Prompt       string              `json:"prompt"`
	Image        *llm.Image          `json:"-"`
	Ref          string              `json:"ref,omitempty"`
	Encoding     imagestore.Encoding `json:"encoding,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Present reports whether an image was obtained and encoded.
func (r IllustrationResult) Present() bool {
	return r.Image != nil && r.Ref != ""
}

// ImageStore turns generated image bytes into a reference usable from Markdown.
type ImageStore interface {
	Save(ctx context.Context, img llm.Image) (string, error)
	Encoding() imagestore.Encoding
}

// PromptDeriver produces exactly one request per manual section. It never fails.
type PromptDeriver interface {
	Derive(ctx context.Context, m Manual) []IllustrationRequest
}
