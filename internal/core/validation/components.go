package validation

import (
	"regexp"
	"strconv"
	"strings"
)

// Citation is one inline [n] marker found in the answer.
type Citation struct {
	Marker int
	Raw    string
}

// AnswerComponents is the structural parse of a generated answer. It is
// built once per validation run so every rule reuses the same parse
// instead of re-scanning the text.
type AnswerComponents struct {
	Raw        string
	Headings   []string
	Paragraphs []string
	ListItems  []string
	BoldSpans  []string
	Citations  []Citation
}

var (
	headingPattern  = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	listItemPattern = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)
	boldPattern     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	citationPattern = regexp.MustCompile(`\[(\d{1,3})\]`)
)

// ParseAnswer splits the answer into headings, paragraphs, list items,
// bold spans and inline citation markers.
func ParseAnswer(text string) AnswerComponents {
	components := AnswerComponents{Raw: text}

	for _, m := range headingPattern.FindAllStringSubmatch(text, -1) {
		components.Headings = append(components.Headings, strings.TrimSpace(m[1]))
	}
	for _, m := range listItemPattern.FindAllStringSubmatch(text, -1) {
		components.ListItems = append(components.ListItems, strings.TrimSpace(m[1]))
	}
	for _, m := range boldPattern.FindAllStringSubmatch(text, -1) {
		components.BoldSpans = append(components.BoldSpans, m[1])
	}
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		marker, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		components.Citations = append(components.Citations, Citation{Marker: marker, Raw: m[0]})
	}

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if headingPattern.MatchString(block) && !strings.Contains(block, "\n") {
			continue
		}
		if listItemPattern.MatchString(block) {
			continue
		}
		components.Paragraphs = append(components.Paragraphs, block)
	}

	return components
}

// FirstParagraph returns the opening prose paragraph, if any.
func (c AnswerComponents) FirstParagraph() string {
	if len(c.Paragraphs) == 0 {
		return ""
	}
	return c.Paragraphs[0]
}
