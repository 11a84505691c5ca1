package validation

import "testing"

const sampleAnswer = `## Summary

The budget grew by **12%** in Q3 [1].

- Revenue rose [1]
- Costs fell [2]

See the appendix for details [2].`

func TestParseAnswerExtractsComponents(t *testing.T) {
	components := ParseAnswer(sampleAnswer)

	if len(components.Headings) != 1 || components.Headings[0] != "Summary" {
		t.Fatalf("expected one heading, got %v", components.Headings)
	}
	if len(components.ListItems) != 2 {
		t.Fatalf("expected 2 list items, got %v", components.ListItems)
	}
	if len(components.BoldSpans) != 1 || components.BoldSpans[0] != "12%" {
		t.Fatalf("expected one bold span, got %v", components.BoldSpans)
	}
	if len(components.Citations) != 4 {
		t.Fatalf("expected 4 citations, got %v", components.Citations)
	}
	if components.Citations[0].Marker != 1 || components.Citations[3].Marker != 2 {
		t.Fatalf("expected markers in document order, got %v", components.Citations)
	}
	if len(components.Paragraphs) != 2 {
		t.Fatalf("expected 2 prose paragraphs, got %v", components.Paragraphs)
	}
}

func TestParseAnswerEmptyInput(t *testing.T) {
	components := ParseAnswer("")
	if len(components.Paragraphs) != 0 || len(components.Citations) != 0 {
		t.Fatalf("expected empty parse, got %+v", components)
	}
	if components.FirstParagraph() != "" {
		t.Fatalf("expected no first paragraph, got %q", components.FirstParagraph())
	}
}

func TestFirstParagraphReturnsOpeningProse(t *testing.T) {
	components := ParseAnswer("Opening statement.\n\nSecond block.")
	if components.FirstParagraph() != "Opening statement." {
		t.Fatalf("expected opening prose, got %q", components.FirstParagraph())
	}
}
