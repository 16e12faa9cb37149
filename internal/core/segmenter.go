// ABOUTME: Segmenter splits document text into contiguous clause spans
// ABOUTME: Uses section, heading and paragraph cues with a fixed-window fallback
package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harper/redliner/internal/models"
)

var (
	// "1.", "1.2", "2)", "10.3.1 Fees"
	numberedSection = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)*[.)]|\d+\.\d+(?:\.\d+)*)\s+\S`)
	// "Section 4", "ARTICLE IV", "Clause 12"
	namedSection = regexp.MustCompile(`(?i)^\s*(?:section|article|clause|schedule)\s+(?:\d+|[ivxlc]+)\b`)
	// "(a) ", "A. "
	letteredItem = regexp.MustCompile(`^\s*(?:\([a-z]{1,3}\)|[A-Z]\.)\s+\S`)
)

// Segmenter produces spans that partition the document text exactly
type Segmenter struct {
	window int
}

// NewSegmenter creates a Segmenter whose fallback windows are about window bytes
func NewSegmenter(window int) *Segmenter {
	if window < 64 {
		window = 64
	}
	return &Segmenter{window: window}
}

type line struct {
	start, end int // end includes the line terminator
	trimmed    string
}

// Segment splits doc.Text() into ordered spans with no gaps and no overlaps.
// It fails only when the text is empty, whitespace-only or not valid UTF-8.
func (s *Segmenter) Segment(doc *models.Document) ([]models.Span, error) {
	text := doc.Text()
	if !utf8.ValidString(text) {
		return nil, &SegmentationError{DocumentID: doc.ID, Err: ErrUnreadableInput}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &SegmentationError{DocumentID: doc.ID, Err: ErrEmptyInput}
	}

	lines := splitLines(text)
	raw := s.structuralSpans(text, lines)
	raw = mergeTitles(text, raw)

	var spans []models.Span
	for _, sp := range raw {
		if (len(raw) == 1 && sp.Len() > s.window) || sp.Len() > 4*s.window {
			spans = append(spans, s.windows(text, sp.Start, sp.End)...)
			continue
		}
		spans = append(spans, sp)
	}
	return spans, nil
}

// structuralSpans opens a new span at every cue line. Blank lines stay with the span before them.
func (s *Segmenter) structuralSpans(text string, lines []line) []models.Span {
	var spans []models.Span
	cur := models.Span{Start: 0, Hint: models.HintParagraph}
	sawContent := false
	prevBlank := false

	for _, ln := range lines {
		if ln.trimmed == "" {
			prevBlank = true
			continue
		}
		hint, isCue := classifyLine(ln.trimmed)
		if !sawContent {
			// first content line belongs to the span starting at offset 0
			sawContent = true
			cur.Hint = hint
			if isTitleLine(ln.trimmed) && isCue {
				cur.Heading = ln.trimmed
			}
			prevBlank = false
			continue
		}
		if isCue || prevBlank {
			cur.End = ln.start
			cur.Text = text[cur.Start:cur.End]
			spans = append(spans, cur)
			cur = models.Span{Start: ln.start, Hint: hint}
			if isCue && isTitleLine(ln.trimmed) {
				cur.Heading = ln.trimmed
			}
		}
		prevBlank = false
	}
	cur.End = len(text)
	cur.Text = text[cur.Start:cur.End]
	return append(spans, cur)
}

// mergeTitles folds a span holding only a title line into the span that follows it
func mergeTitles(text string, spans []models.Span) []models.Span {
	out := make([]models.Span, 0, len(spans))
	var pending *models.Span
	for i := range spans {
		cur := spans[i]
		if pending != nil {
			cur.Start = pending.Start
			cur.Hint = pending.Hint
			if pending.Heading != "" {
				cur.Heading = pending.Heading
			}
			cur.Text = text[cur.Start:cur.End]
			pending = nil
		}
		if i < len(spans)-1 && titleOnly(cur.Text) {
			p := cur
			pending = &p
			continue
		}
		out = append(out, cur)
	}
	return out
}

// windows splits [start, end) into contiguous pieces of about s.window bytes,
// breaking after whitespace where possible and never inside a rune.
func (s *Segmenter) windows(text string, start, end int) []models.Span {
	var spans []models.Span
	pos := start
	for pos < end {
		cut := pos + s.window
		if cut >= end || end-cut < s.window/4 {
			cut = end
		} else {
			cut = breakPoint(text, pos, cut)
		}
		spans = append(spans, models.Span{Start: pos, End: cut, Text: text[pos:cut], Hint: models.HintWindow})
		pos = cut
	}
	return spans
}

// breakPoint finds a cut at or before limit, preferring just after whitespace in the back half
func breakPoint(text string, start, limit int) int {
	floor := start + (limit-start)/2
	for i := limit; i > floor; i-- {
		switch text[i-1] {
		case ' ', '\n', '\t', '\r':
			return i
		}
	}
	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

func splitLines(text string) []line {
	var lines []line
	start := 0
	for start < len(text) {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end = start + end + 1
		}
		lines = append(lines, line{start: start, end: end, trimmed: strings.TrimSpace(text[start:end])})
		start = end
	}
	return lines
}

// classifyLine returns the hint a span opened by this line would carry and whether the line is a structural cue
func classifyLine(trimmed string) (models.SpanHint, bool) {
	switch {
	case numberedSection.MatchString(trimmed), namedSection.MatchString(trimmed), letteredItem.MatchString(trimmed):
		return models.HintSection, true
	case isHeadingLine(trimmed):
		return models.HintHeading, true
	default:
		return models.HintParagraph, false
	}
}

// isHeadingLine matches short all-caps lines and short lines ending in a colon
func isHeadingLine(trimmed string) bool {
	if utf8.RuneCountInString(trimmed) > 80 || len(strings.Fields(trimmed)) > 10 {
		return false
	}
	if strings.HasSuffix(trimmed, ":") {
		return true
	}
	letters, upper := 0, 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 3 && upper == letters
}

// isTitleLine reports whether a cue line reads as a title rather than clause body
func isTitleLine(trimmed string) bool {
	if utf8.RuneCountInString(trimmed) > 80 || len(strings.Fields(trimmed)) > 10 {
		return false
	}
	return !strings.ContainsAny(trimmed[len(trimmed)-1:], ".;,")
}

func titleOnly(spanText string) bool {
	content := 0
	var first string
	for _, l := range strings.Split(spanText, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			content++
			first = t
		}
	}
	if content != 1 {
		return false
	}
	_, isCue := classifyLine(first)
	return isCue && isTitleLine(first)
}
