package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"manualgen/internal/llm"
	"manualgen/internal/text"
)

const synthesizerTemplate = `You are an expert technical writer. From the knowledge corpus you are given, write a clear
usage manual in Markdown.

Rules:
1. Begin with an overview: a level-1 title ("# ...") and a short introduction. The overview must not
   use level-2 headings.
2. Then write at most %d feature sections. Each feature section starts with a level-2 heading
   ("## Feature name") and explains, step by step, how to use that feature.
3. Select the features that are most essential for a user to operate the product effectively.
   Leave out minor details rather than exceeding the section limit.
4. Use only facts from the corpus. Do not invent features.
5. Output only the Markdown document, without commentary and without wrapping it in a code block.`

type Synthesizer struct {
	gen         llm.TextGenerator
	maxSections int
}

// NewSynthesizer bounds the manual to maxSections feature sections; a
// non-positive value leaves it unbounded.
func NewSynthesizer(gen llm.TextGenerator, maxSections int) *Synthesizer {
	return &Synthesizer{gen: gen, maxSections: maxSections}
}

func (s *Synthesizer) instruction() string {
	if s.maxSections <= 0 {
		return strings.Replace(synthesizerTemplate, "at most %d feature sections", "one feature section per essential feature", 1)
	}
	return fmt.Sprintf(synthesizerTemplate, s.maxSections)
}

func (s *Synthesizer) Synthesize(ctx context.Context, corpus Corpus) (Manual, error) {
	if strings.TrimSpace(string(corpus)) == "" {
		return Manual{}, fmt.Errorf("%w: empty corpus", ErrSynthesis)
	}

	start := time.Now()
	out, err := s.gen.Generate(ctx, s.instruction(), []llm.Part{
		llm.TextPart("Knowledge corpus:\n\n" + string(corpus)),
	})
	if err != nil {
		slog.ErrorContext(ctx, "manual synthesis failed", "error", err)
		return Manual{}, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	markdown := text.StripCodeFence(out)
	if markdown == "" {
		return Manual{}, fmt.Errorf("%w: model returned an empty manual", ErrSynthesis)
	}

	if s.maxSections > 0 {
		bounded := text.LimitSections(markdown, s.maxSections)
		if bounded != markdown {
			slog.WarnContext(ctx, "manual exceeded section limit, extra sections dropped",
				"max_sections", s.maxSections,
				"found", len(text.ParseSections(markdown).Sections))
			markdown = bounded
		}
	}

	m := NewManual(markdown)
	slog.InfoContext(ctx, "manual synthesized",
		"sections", len(m.Sections),
		"length", len(markdown),
		"duration", time.Since(start))
	return m, nil
}
