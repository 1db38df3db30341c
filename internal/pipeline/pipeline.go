package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"manualgen/internal/media"
)

type Request struct {
	Topic          string
	Attachments    []media.Attachment
	GenerateImages bool
}

type Result struct {
	Markdown      string
	Manual        Manual
	Illustrations []IllustrationResult
	Duration      time.Duration
}

// ImageRefs lists the references of the images that were produced, in
// section order.
func (r *Result) ImageRefs() []string {
	refs := make([]string, 0, len(r.Illustrations))
	for _, il := range r.Illustrations {
		if il.Present() {
			refs = append(refs, il.Ref)
		}
	}
	return refs
}

func (r *Result) MissingImages() int {
	n := 0
	for _, il := range r.Illustrations {
		if !il.Present() {
			n++
		}
	}
	return n
}

type Pipeline struct {
	extractor   *Extractor
	synthesizer *Synthesizer
	illustrator *Illustrator
}

func New(extractor *Extractor, synthesizer *Synthesizer, illustrator *Illustrator) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		synthesizer: synthesizer,
		illustrator: illustrator,
	}
}

// Run executes extraction, synthesis, illustration and assembly in order.
// Only the first two stages can fail the request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	corpus, err := p.extractor.Extract(ctx, req.Topic, req.Attachments)
	if err != nil {
		return nil, err
	}

	manual, err := p.synthesizer.Synthesize(ctx, corpus)
	if err != nil {
		return nil, err
	}

	res := &Result{Markdown: manual.Markdown, Manual: manual}
	if req.GenerateImages && p.illustrator != nil && len(manual.Sections) > 0 {
		res.Illustrations = p.illustrator.Illustrate(ctx, manual)
		assembled, err := Assemble(manual.Markdown, res.Illustrations)
		if err != nil {
			slog.ErrorContext(ctx, "assembly invariant violated", "error", err)
			return nil, fmt.Errorf("assemble manual: %w", err)
		}
		res.Markdown = assembled
	}

	res.Duration = time.Since(start)
	slog.InfoContext(ctx, "manual generated",
		"sections", len(manual.Sections),
		"images", len(res.ImageRefs()),
		"missing", res.MissingImages(),
		"duration", res.Duration)
	return res, nil
}
