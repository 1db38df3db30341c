package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"manualgen/internal/llm"
)

var errNoImage = errors.New("model returned no image")

type Illustrator struct {
	prompts     PromptDeriver
	images      llm.ImageGenerator
	store       ImageStore
	concurrency int
	// limit is shared by every Illustrate call on this Illustrator.
	limit *semaphore.Weighted
}

// NewIllustrator runs at most concurrency image requests at a time across
// all concurrent Illustrate calls.
func NewIllustrator(prompts PromptDeriver, images llm.ImageGenerator, store ImageStore, concurrency int) *Illustrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Illustrator{
		prompts:     prompts,
		images:      images,
		store:       store,
		concurrency: concurrency,
		limit:       semaphore.NewWeighted(int64(concurrency)),
	}
}

// Illustrate returns one result per section, in section order. A failed image
// is recorded on its result and never aborts the others.
func (il *Illustrator) Illustrate(ctx context.Context, m Manual) []IllustrationResult {
	if len(m.Sections) == 0 {
		return nil
	}

	reqs := il.prompts.Derive(ctx, m)
	if len(reqs) != len(m.Sections) {
		prompts := make([]string, len(reqs))
		for i, r := range reqs {
			prompts[i] = r.Prompt
		}
		reqs = ReconcilePrompts(m.Sections, prompts)
	}

	start := time.Now()
	results := make([]IllustrationResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(il.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = il.render(ctx, i, req)
			return nil
		})
	}
	_ = g.Wait()

	missing := 0
	for _, r := range results {
		if !r.Present() {
			missing++
		}
	}
	slog.InfoContext(ctx, "illustrations rendered",
		"sections", len(results),
		"missing", missing,
		"concurrency", il.concurrency,
		"duration", time.Since(start))
	return results
}

func (il *Illustrator) render(ctx context.Context, index int, req IllustrationRequest) (res IllustrationResult) {
	res = IllustrationResult{SectionIndex: index, Prompt: req.Prompt}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic during image generation", "section", index, "panic", r)
			res.Image, res.Ref = nil, ""
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := il.limit.Acquire(ctx, 1); err != nil {
		res.Error = err.Error()
		return res
	}
	defer il.limit.Release(1)

	img, err := il.images.GenerateImage(ctx, req.Prompt)
	if err == nil && (img == nil || len(img.Data) == 0) {
		err = errNoImage
	}
	if err != nil {
		slog.WarnContext(ctx, "image generation failed", "section", index, "error", err)
		res.Error = err.Error()
		return res
	}

	ref, err := il.store.Save(ctx, *img)
	if err != nil {
		slog.WarnContext(ctx, "image encoding failed", "section", index, "error", err)
		res.Error = err.Error()
		return res
	}

	res.Image = img
	res.Ref = ref
	res.Encoding = il.store.Encoding()
	return res
}
