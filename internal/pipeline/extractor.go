package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"manualgen/internal/llm"
	"manualgen/internal/media"
)

const extractorInstruction = `You are a meticulous product analyst preparing source material for a technical writer.
From the topic description and every attached image, video or document, capture every observable
feature of the product: controls, buttons, indicators, parts, accessories, states, settings,
safety notes, maintenance tasks and the steps a person performs to use it.
Describe only what is stated or visible. Do not fabricate features, specifications or steps.
If something is unclear, say that it is unclear.
Write the result as thorough Markdown-flavored notes. Completeness matters more than structure.`

const defaultMediaTopic = "Produce a comprehensive knowledge corpus from the provided media."

type Extractor struct {
	gen llm.TextGenerator
}

func NewExtractor(gen llm.TextGenerator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract builds the knowledge corpus. The topic text comes first, followed by
// each attachment in input order with a short label before it.
func (e *Extractor) Extract(ctx context.Context, topic string, atts []media.Attachment) (Corpus, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" && len(atts) == 0 {
		return "", ErrEmptyInput
	}
	if topic == "" {
		topic = defaultMediaTopic
	}

	parts := make([]llm.Part, 0, 1+2*len(atts))
	parts = append(parts, llm.TextPart("Topic: "+topic))
	for i, a := range atts {
		parts = append(parts,
			llm.TextPart(fmt.Sprintf("Attachment %d: %s (%s)", i+1, a.Filename, a.MediaType)),
			llm.MediaPart(a),
		)
	}

	start := time.Now()
	out, err := e.gen.Generate(ctx, extractorInstruction, parts)
	if err != nil {
		slog.ErrorContext(ctx, "corpus extraction failed", "error", err, "attachments", len(atts))
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	corpus := strings.TrimSpace(out)
	if corpus == "" {
		return "", fmt.Errorf("%w: model returned an empty corpus", ErrExtraction)
	}

	slog.InfoContext(ctx, "corpus extracted",
		"attachments", len(atts),
		"corpus_length", len(corpus),
		"duration", time.Since(start))
	return Corpus(corpus), nil
}
