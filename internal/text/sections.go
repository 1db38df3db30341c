package text

import (
	"regexp"
	"strings"
)

// HeadingMarker starts a level-2 heading line. "### " does not match because
// the third character is not a space.
const HeadingMarker = "## "

type Section struct {
	Index   int
	Heading string
	// Line is the 0-based line number of the heading in the source document.
	Line int
	Body string
}

type Document struct {
	Overview string
	Sections []Section
}

// IsSectionBoundary reports whether line opens a feature section.
func IsSectionBoundary(line string) bool {
	return strings.HasPrefix(strings.TrimSuffix(line, "\r"), HeadingMarker)
}

// SplitLines splits on "\n" only, so joining the result with "\n" gives back
// the input byte for byte.
func SplitLines(doc string) []string {
	return strings.Split(doc, "\n")
}

// ParseSections scans doc line by line. Everything before the first boundary
// is the overview and is never counted as a section.
func ParseSections(doc string) Document {
	lines := SplitLines(doc)
	var (
		d        Document
		overview []string
		body     []string
		current  *Section
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		d.Sections = append(d.Sections, *current)
		body = nil
	}

	for i, line := range lines {
		if IsSectionBoundary(line) {
			flush()
			heading := strings.TrimSuffix(line, "\r")
			current = &Section{
				Index:   len(d.Sections),
				Heading: strings.TrimSpace(strings.TrimPrefix(heading, HeadingMarker)),
				Line:    i,
			}
			continue
		}
		if current == nil {
			overview = append(overview, line)
		} else {
			body = append(body, line)
		}
	}
	flush()

	d.Overview = strings.TrimSpace(strings.Join(overview, "\n"))
	return d
}

// LimitSections keeps the overview and the first k sections of doc.
// A negative k means no limit.
func LimitSections(doc string, k int) string {
	if k < 0 {
		return doc
	}
	lines := SplitLines(doc)
	seen := 0
	for i, line := range lines {
		if !IsSectionBoundary(line) {
			continue
		}
		if seen == k {
			return strings.TrimRight(strings.Join(lines[:i], "\n"), " \t\r\n")
		}
		seen++
	}
	return doc
}

var fenceRe = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n(.*?)\\r?\\n?```$")

// StripCodeFence removes a single code fence wrapping the whole of s, which
// models often add around Markdown documents and JSON payloads.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}
