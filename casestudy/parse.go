package casestudy

import (
	"strings"
)

// The document heading convention: a line beginning with "# " opens a
// top-level section, a line beginning with "## " opens a subsection of
// the enclosing section. Anything else, including malformed headings, is
// body text of the innermost open block. Text before the first section
// heading is preamble and is dropped.

// Subsection is a "## "-titled block nested inside a section. It is never
// independently positioned.
type Subsection struct {
	Title string
	Body  string
}

// Section is a top-level titled block of narrative text. Byte offsets of
// the heading line start and of the section end within the source
// document are retained so splicing can cut and relocate exact spans.
type Section struct {
	Title       string
	Body        string
	Subsections []Subsection

	start, end int
}

// Span returns the byte offsets of the section text within the document
// it was parsed from: start of the heading line through the start of the
// next top-level heading (or end of document).
func (s *Section) Span() (start, end int) {
	return s.start, s.end
}

type scanState int

const (
	scanNone scanState = iota
	scanSection
	scanSubsection
)

// ParseDocument scans the document in a single pass and returns its
// ordered top-level sections. It never fails: anomalies degrade to body
// text and an ill-formed document simply yields fewer sections.
func ParseDocument(text string) []Section {
	var (
		sections []Section
		state    scanState
		body     []string
		subBody  []string
	)

	closeSubsection := func() {
		if state != scanSubsection {
			return
		}
		last := &sections[len(sections)-1]
		sub := &last.Subsections[len(last.Subsections)-1]
		sub.Body = strings.TrimSpace(strings.Join(subBody, "\n"))
		subBody = subBody[:0]
		state = scanSection
	}
	closeSection := func(end int) {
		closeSubsection()
		if state != scanSection {
			return
		}
		last := &sections[len(sections)-1]
		last.Body = strings.TrimSpace(strings.Join(body, "\n"))
		last.end = end
		body = body[:0]
		state = scanNone
	}

	offset := 0
	for offset <= len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text) + 1
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = text[offset:]
		}
		trimmed := strings.TrimSuffix(line, "\r")

		switch {
		case strings.HasPrefix(trimmed, "# ") && strings.TrimSpace(trimmed[2:]) != "":
			closeSection(offset)
			sections = append(sections, Section{
				Title: strings.TrimSpace(trimmed[2:]),
				start: offset,
			})
			state = scanSection
		case strings.HasPrefix(trimmed, "## ") && strings.TrimSpace(trimmed[3:]) != "" && state != scanNone:
			closeSubsection()
			last := &sections[len(sections)-1]
			last.Subsections = append(last.Subsections, Subsection{
				Title: strings.TrimSpace(trimmed[3:]),
			})
			state = scanSubsection
		default:
			switch state {
			case scanSubsection:
				subBody = append(subBody, trimmed)
			case scanSection:
				body = append(body, trimmed)
			default:
				// preamble, ignore
			}
		}

		if lineEnd < 0 {
			break
		}
		offset = next
	}
	closeSection(len(text))

	return sections
}

// RenderSection reconstructs the canonical text of a section, heading
// line included.
func RenderSection(s *Section) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(s.Title)
	if body := RenderSectionContent(s); body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}
	return sb.String()
}

// RenderSectionContent reconstructs the body of a section without its
// top-level heading, subsections included.
func RenderSectionContent(s *Section) string {
	parts := make([]string, 0, 1+len(s.Subsections))
	if s.Body != "" {
		parts = append(parts, s.Body)
	}
	for i := range s.Subsections {
		sub := &s.Subsections[i]
		if sub.Body != "" {
			parts = append(parts, "## "+sub.Title+"\n\n"+sub.Body)
		} else {
			parts = append(parts, "## "+sub.Title)
		}
	}
	return strings.Join(parts, "\n\n")
}

// RenderDocument reconstructs a canonical document from sections. Spans
// of the input are ignored, the result is normalized to single blank
// lines between blocks.
func RenderDocument(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for i := range sections {
		parts = append(parts, RenderSection(&sections[i]))
	}
	out := strings.Join(parts, "\n\n")
	if out != "" {
		out += "\n"
	}
	return out
}

// FindSection returns the index of the first section whose title matches
// (case-insensitive, surrounding space ignored), or -1.
func FindSection(sections []Section, title string) int {
	want := strings.ToLower(strings.TrimSpace(title))
	for i := range sections {
		if strings.ToLower(strings.TrimSpace(sections[i].Title)) == want {
			return i
		}
	}
	return -1
}

// CutSpan removes [start, end) from text collapsing surplus blank lines
// left at the cut point.
func CutSpan(text string, start, end int) string {
	if start < 0 || end > len(text) || start >= end {
		return text
	}
	head, tail := text[:start], text[end:]
	for strings.HasSuffix(head, "\n\n") && strings.HasPrefix(tail, "\n") {
		tail = strings.TrimPrefix(tail, "\n")
	}
	if tail == "" {
		for strings.HasSuffix(head, "\n\n") {
			head = head[:len(head)-1]
		}
	}
	if head == "" {
		tail = strings.TrimLeft(tail, "\n")
	}
	return head + tail
}
