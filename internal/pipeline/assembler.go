package pipeline

import (
	"fmt"
	"strings"

	"manualgen/internal/text"
)

// MissingIllustrationMarker appears in the placeholder emitted for a section
// whose image could not be produced.
const MissingIllustrationMarker = "[Illustration missing]"

func AltText(ordinal int) string {
	return fmt.Sprintf("Section illustration %d", ordinal)
}

func embedLine(ordinal int, r IllustrationResult) string {
	if r.Present() {
		return fmt.Sprintf("![%s](%s)", AltText(ordinal), r.Ref)
	}
	return fmt.Sprintf("> **%s** %s could not be generated.", MissingIllustrationMarker, AltText(ordinal))
}

// Assemble places the Nth result directly below the Nth section heading. The
// document is otherwise unchanged; with no headings it is returned as is.
func Assemble(markdown string, results []IllustrationResult) (string, error) {
	lines := text.SplitLines(markdown)

	boundaries := 0
	for _, l := range lines {
		if text.IsSectionBoundary(l) {
			boundaries++
		}
	}
	if boundaries != len(results) {
		return "", fmt.Errorf("%w: %d sections, %d illustrations", ErrArityMismatch, boundaries, len(results))
	}
	if boundaries == 0 {
		return markdown, nil
	}

	out := make([]string, 0, len(lines)+3*boundaries)
	n := 0
	for i, l := range lines {
		out = append(out, l)
		if !text.IsSectionBoundary(l) {
			continue
		}
		// Inserted lines follow the heading's line ending.
		eol := ""
		if strings.HasSuffix(l, "\r") {
			eol = "\r"
		}
		out = append(out, eol, embedLine(n+1, results[n])+eol)
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
			out = append(out, eol)
		}
		n++
	}
	return strings.Join(out, "\n"), nil
}
