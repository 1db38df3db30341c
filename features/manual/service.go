package manual

import (
	"context"
	"log/slog"
	"time"

	"manualgen/features/run"
	"manualgen/internal/media"
	"manualgen/internal/middleware"
	"manualgen/internal/pipeline"
	"manualgen/internal/render"
)

type Service struct {
	gen     Generator
	runs    RunRecorder
	timeout time.Duration
}

func NewService(gen Generator, runs RunRecorder, timeout time.Duration) *Service {
	return &Service{gen: gen, runs: runs, timeout: timeout}
}

// Generate reads the uploads, runs the pipeline under the request deadline
// and records the outcome. Failed runs are recorded too.
func (s *Service) Generate(ctx context.Context, in Input) (*Manual, error) {
	start := time.Now()

	// A per-request timeout can only shorten the server limit.
	timeout := s.timeout
	if in.Timeout > 0 && (timeout <= 0 || in.Timeout < timeout) {
		timeout = in.Timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rec := &run.Run{
		CorrelationID:   middleware.GetCorrelationID(ctx),
		Topic:           in.Topic,
		AttachmentCount: len(in.Uploads),
	}

	attachments, err := media.Normalize(runCtx, in.Uploads)
	if err != nil {
		s.fail(ctx, rec, start, err)
		return nil, err
	}

	res, err := s.gen.Run(runCtx, pipeline.Request{
		Topic:          in.Topic,
		Attachments:    attachments,
		GenerateImages: in.GenerateImages,
	})
	if err != nil {
		s.fail(ctx, rec, start, err)
		return nil, err
	}

	out := &Manual{
		Markdown:  res.Markdown,
		ImageURLs: res.ImageRefs(),
		Sections:  sectionsOf(res),
	}

	html, err := render.HTML(res.Markdown)
	if err != nil {
		slog.WarnContext(ctx, "failed to render manual html", "error", err)
	}
	out.HTML = html

	out.Stats = Stats{
		Sections:        len(res.Manual.Sections),
		ImagesGenerated: len(out.ImageURLs),
		ImagesMissing:   res.MissingImages(),
		DurationMs:      time.Since(start).Milliseconds(),
	}

	rec.Status = run.StatusCompleted
	rec.Sections = out.Stats.Sections
	rec.ImagesGenerated = out.Stats.ImagesGenerated
	rec.ImagesMissing = out.Stats.ImagesMissing
	rec.DurationMs = out.Stats.DurationMs
	s.record(ctx, rec)

	out.ID = rec.ID
	return out, nil
}

func (s *Service) fail(ctx context.Context, rec *run.Run, start time.Time, err error) {
	rec.Status = run.StatusFailed
	rec.Error = err.Error()
	rec.DurationMs = time.Since(start).Milliseconds()
	s.record(ctx, rec)
}

func (s *Service) record(ctx context.Context, rec *run.Run) {
	if s.runs == nil {
		return
	}
	s.runs.Record(ctx, rec)
}

func sectionsOf(res *pipeline.Result) []Section {
	out := make([]Section, len(res.Manual.Sections))
	for i, sec := range res.Manual.Sections {
		out[i] = Section{Index: i, Heading: sec.Heading}
		if i < len(res.Illustrations) {
			il := res.Illustrations[i]
			out[i].Illustrated = il.Present()
			out[i].Error = il.Error
		}
	}
	return out
}
