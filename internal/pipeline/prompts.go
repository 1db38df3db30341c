package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"manualgen/internal/llm"
	"manualgen/internal/text"
)

const promptInstruction = `You are an art director for technical documentation. For each section of the usage
manual you are given, write one image-generation prompt for a clear instructional illustration
that shows a person performing the task the section describes.
Return only a JSON array of strings with exactly %d entries, in the same order as the sections.
Do not include commentary.`

var errNoPrompts = errors.New("no prompt list found in model output")

// FallbackPrompt is the deterministic prompt used when a model-derived one is
// missing. ordinal is 1-based.
func FallbackPrompt(ordinal int, heading string) string {
	heading = strings.TrimSpace(heading)
	if heading == "" {
		heading = fmt.Sprintf("Section %d", ordinal)
	}
	return fmt.Sprintf(
		"Clean instructional illustration for section %d of a product usage manual, titled %q. "+
			"Show the product and a person's hands performing the step. Neutral background, technical line-art style, no text.",
		ordinal, heading)
}

// ReconcilePrompts returns exactly one request per section. Missing or blank
// entries get a fallback prompt and surplus entries are dropped.
func ReconcilePrompts(sections []text.Section, prompts []string) []IllustrationRequest {
	reqs := make([]IllustrationRequest, len(sections))
	for i, s := range sections {
		p := ""
		if i < len(prompts) {
			p = strings.TrimSpace(prompts[i])
		}
		if p == "" {
			p = FallbackPrompt(i+1, s.Heading)
		}
		reqs[i] = IllustrationRequest{SectionIndex: i, Heading: s.Heading, Prompt: p}
	}
	return reqs
}

// ModelPrompts asks a text model for all prompts in a single call.
type ModelPrompts struct {
	gen llm.TextGenerator
}

func NewModelPrompts(gen llm.TextGenerator) *ModelPrompts {
	return &ModelPrompts{gen: gen}
}

func (p *ModelPrompts) Derive(ctx context.Context, m Manual) []IllustrationRequest {
	n := len(m.Sections)
	if n == 0 {
		return nil
	}

	out, err := p.gen.Generate(ctx, fmt.Sprintf(promptInstruction, n), []llm.Part{
		llm.TextPart("Manual:\n\n" + m.Markdown),
	})
	if err != nil {
		slog.WarnContext(ctx, "prompt derivation failed, using fallback prompts", "error", err, "sections", n)
		return ReconcilePrompts(m.Sections, nil)
	}

	prompts, err := ParsePromptList(out)
	if err != nil {
		slog.WarnContext(ctx, "prompt list unparseable, using fallback prompts", "error", err, "sections", n)
		return ReconcilePrompts(m.Sections, nil)
	}
	if len(prompts) != n {
		slog.WarnContext(ctx, "prompt count mismatch, reconciling", "expected", n, "got", len(prompts))
	}
	return ReconcilePrompts(m.Sections, prompts)
}

// ParsePromptList accepts a JSON array of strings, an array of objects with a
// "prompt" field, or an object holding either under "prompts". A surrounding
// code fence is ignored, and so is prose around the first JSON value.
func ParsePromptList(raw string) ([]string, error) {
	if list, err := decodePromptList([]byte(text.StripCodeFence(raw))); err == nil {
		return list, nil
	}

	idx := strings.IndexAny(raw, "[{")
	if idx < 0 {
		return nil, errNoPrompts
	}
	var first json.RawMessage
	if err := json.NewDecoder(strings.NewReader(raw[idx:])).Decode(&first); err != nil {
		return nil, errNoPrompts
	}
	return decodePromptList(first)
}

func decodePromptList(body []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var objects []struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(body, &objects); err == nil {
		out := make([]string, len(objects))
		for i, o := range objects {
			out[i] = o.Prompt
		}
		return out, nil
	}

	var wrapped struct {
		Prompts json.RawMessage `json:"prompts"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Prompts) > 0 {
		return decodePromptList(wrapped.Prompts)
	}
	return nil, errNoPrompts
}

// InlinePrompts builds each prompt from the section itself without a model call.
type InlinePrompts struct{}

const inlineBodyLimit = 300

func (InlinePrompts) Derive(_ context.Context, m Manual) []IllustrationRequest {
	prompts := make([]string, len(m.Sections))
	for i, s := range m.Sections {
		prompts[i] = inlinePrompt(s)
	}
	return ReconcilePrompts(m.Sections, prompts)
}

func inlinePrompt(s text.Section) string {
	if strings.TrimSpace(s.Heading) == "" {
		return ""
	}
	summary := strings.Join(strings.Fields(s.Body), " ")
	if utf8.RuneCountInString(summary) > inlineBodyLimit {
		summary = string([]rune(summary)[:inlineBodyLimit]) + "..."
	}
	prompt := fmt.Sprintf("Instructional illustration for a product manual: %s.", s.Heading)
	if summary != "" {
		prompt += " The step: " + summary
	}
	return prompt + " Clean technical style, no text."
}
