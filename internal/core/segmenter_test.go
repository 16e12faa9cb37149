// ABOUTME: Tests for the clause segmenter
// ABOUTME: Verifies exact partitioning, structural cues, title merging and window fallback
package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/harper/redliner/internal/models"
)

func assertPartition(t *testing.T, text string, spans []models.Span) {
	t.Helper()
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}
	pos := 0
	var rebuilt strings.Builder
	for i, sp := range spans {
		if sp.Start != pos {
			t.Fatalf("span %d starts at %d, want %d (gap or overlap)", i, sp.Start, pos)
		}
		if sp.End <= sp.Start {
			t.Fatalf("span %d is empty: [%d, %d)", i, sp.Start, sp.End)
		}
		if sp.Text != text[sp.Start:sp.End] {
			t.Fatalf("span %d text does not match its offsets", i)
		}
		rebuilt.WriteString(sp.Text)
		pos = sp.End
	}
	if pos != len(text) {
		t.Fatalf("spans end at %d, text length %d", pos, len(text))
	}
	if rebuilt.String() != text {
		t.Fatal("concatenated spans do not reconstruct the text")
	}
}

func TestSegmenter_PartitionsInput(t *testing.T) {
	inputs := map[string][]string{
		"numbered":        {"1. Term. This agreement starts today.\n\n", "2. Fees. Customer pays monthly.\n"},
		"leading blanks":  {"\n\n\n  1. Term.\n2. Fees.\n\n\n"},
		"no newline":      {"A single clause without any trailing newline"},
		"crlf":            {"1. Term.\r\n\r\n2. Fees.\r\n"},
		"headings":        {"TERMINATION\n\nEither party may end this.\n\nFEES:\nFees are due.\n"},
		"lettered":        {"Obligations.\n(a) Vendor shall deliver.\n(b) Customer shall pay.\n"},
		"unicode":         {"1. Überlassung - der Vertrag läuft.\n\n2. Gebühren: 5 € pro Monat.\n"},
		"long paragraph":  {strings.Repeat("lorem ipsum dolor sit amet ", 300)},
		"long no spaces":  {strings.Repeat("é", 3000)},
		"multiple blocks": {"Section 1 Scope\n", "The vendor provides hosting.\n", "\n", "Section 2 Fees\n", "Fees are fixed.\n"},
	}

	seg := NewSegmenter(1200)
	for name, blocks := range inputs {
		t.Run(name, func(t *testing.T) {
			doc := &models.Document{ID: "d1", Blocks: blocks}
			spans, err := seg.Segment(doc)
			if err != nil {
				t.Fatalf("Segment() error = %v", err)
			}
			assertPartition(t, doc.Text(), spans)
		})
	}
}

func TestSegmenter_NumberedSections(t *testing.T) {
	text := "1. Termination. Either party may terminate.\n\n2. Fees. Customer shall pay fees.\n\n3. Notices. Notices are written.\n"
	spans, err := NewSegmenter(1200).Segment(&models.Document{Blocks: []string{text}})
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}
	for i, sp := range spans {
		if sp.Hint != models.HintSection {
			t.Errorf("span %d hint = %s, want section", i, sp.Hint)
		}
	}
	if !strings.HasPrefix(spans[1].Text, "2. Fees.") {
		t.Errorf("span 1 = %q, want it to start at section 2", spans[1].Text)
	}
	if !strings.HasSuffix(spans[0].Text, "\n\n") {
		t.Errorf("trailing blank line should stay with span 0, got %q", spans[0].Text)
	}
}

func TestSegmenter_TitleLinesMergeForward(t *testing.T) {
	text := "TERMINATION\n\nEither party may terminate on notice.\n\nFEES\n\nCustomer pays the fees.\n"
	spans, err := NewSegmenter(1200).Segment(&models.Document{Blocks: []string{text}})
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].Heading != "TERMINATION" || spans[1].Heading != "FEES" {
		t.Errorf("headings = %q, %q", spans[0].Heading, spans[1].Heading)
	}
	if spans[0].Hint != models.HintHeading {
		t.Errorf("hint = %s, want heading", spans[0].Hint)
	}
	assertPartition(t, text, spans)
}

func TestSegmenter_WindowFallback(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	spans, err := NewSegmenter(1200).Segment(&models.Document{Blocks: []string{text}})
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(spans) < 4 {
		t.Fatalf("got %d spans, want at least 4 windows", len(spans))
	}
	for i, sp := range spans {
		if sp.Hint != models.HintWindow {
			t.Errorf("span %d hint = %s, want window", i, sp.Hint)
		}
		if i < len(spans)-1 && sp.Len() > 1200 {
			t.Errorf("span %d length %d exceeds window", i, sp.Len())
		}
		if i < len(spans)-1 && !strings.HasSuffix(sp.Text, " ") {
			t.Errorf("span %d should break after whitespace, ends with %q", i, sp.Text[len(sp.Text)-1:])
		}
	}
	assertPartition(t, text, spans)
}

func TestSegmenter_ShortUnstructuredTextIsOneClause(t *testing.T) {
	text := "The parties agree to cooperate in good faith."
	spans, err := NewSegmenter(1200).Segment(&models.Document{Blocks: []string{text}})
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(spans) != 1 || spans[0].Text != text {
		t.Fatalf("spans = %+v, want the whole text as one span", spans)
	}
}

func TestSegmenter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
		want   error
	}{
		{"no blocks", nil, ErrEmptyInput},
		{"empty block", []string{""}, ErrEmptyInput},
		{"whitespace only", []string{"  \n\t\n  "}, ErrEmptyInput},
		{"invalid utf8", []string{"ok \xff\xfe broken"}, ErrUnreadableInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSegmenter(1200).Segment(&models.Document{ID: "d1", Blocks: tt.blocks})
			var segErr *SegmentationError
			if !errors.As(err, &segErr) {
				t.Fatalf("error = %v, want *SegmentationError", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want wrapping %v", err, tt.want)
			}
			if segErr.DocumentID != "d1" {
				t.Errorf("DocumentID = %q, want d1", segErr.DocumentID)
			}
		})
	}
}

func TestSegmenter_Deterministic(t *testing.T) {
	doc := &models.Document{Blocks: []string{"ARTICLE I\nDefinitions apply.\n\n1.1 Scope. Hosting.\n\n(a) uptime\n"}}
	seg := NewSegmenter(1200)
	first, err := seg.Segment(doc)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := seg.Segment(doc)
		if len(again) != len(first) {
			t.Fatalf("run %d produced %d spans, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d span %d differs", i, j)
			}
		}
	}
}
