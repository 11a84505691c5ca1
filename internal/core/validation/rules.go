package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// Outcome is one validator's raw verdict before the engine attaches rule
// identity and severity.
type Outcome struct {
	Passed  bool
	Message string
	Fixable bool
}

// Rule is a pure check over the shared answer parse. Check must not mutate
// its inputs; a panicking Check is contained by the engine and recorded as
// a critical failure for that rule only.
type Rule struct {
	ID       string
	Category domain.RuleCategory
	Severity domain.Severity
	Check    func(components AnswerComponents, answerCtx domain.AnswerContext) Outcome
}

var numberPattern = regexp.MustCompile(`(?:[$€£R]\$?\s?)?\d[\d.,]*\s?(?:%|USD|EUR|BRL|million|billion|mil|milhoes|millones)?`)

var personaPhrases = []string{
	"as an ai", "as a language model", "i am an ai", "my training data",
	"i cannot access your", "system prompt", "my instructions say",
	"como uma ia", "como modelo de linguagem", "como una ia", "como modelo de lenguaje",
}

// DefaultRules is the fixed validator registry.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "citations_in_context",
			Category: domain.CategoryCitations,
			Severity: domain.SeverityCritical,
			Check:    checkCitationsInContext,
		},
		{
			ID:       "bold_key_figures",
			Category: domain.CategoryFormatting,
			Severity: domain.SeverityFixable,
			Check:    checkBoldKeyFigures,
		},
		{
			ID:       "structure_matches_profile",
			Category: domain.CategoryStructure,
			Severity: domain.SeverityFixable,
			Check:    checkStructureMatchesProfile,
		},
		{
			ID:       "paragraph_length",
			Category: domain.CategoryStructure,
			Severity: domain.SeverityFixable,
			Check:    checkParagraphLength,
		},
		{
			ID:       "persona_leak",
			Category: domain.CategoryContent,
			Severity: domain.SeverityCritical,
			Check:    checkPersonaLeak,
		},
		{
			ID:       "context_relevance",
			Category: domain.CategoryContent,
			Severity: domain.SeverityCritical,
			Check:    checkContextRelevance,
		},
		{
			ID:       "duplicate_content",
			Category: domain.CategoryQuality,
			Severity: domain.SeverityWarning,
			Check:    checkDuplicateContent,
		},
		{
			ID:       "intro_present",
			Category: domain.CategoryQuality,
			Severity: domain.SeverityWarning,
			Check:    checkIntroPresent,
		},
	}
}

// Citation markers may only reference documents actually in context.
func checkCitationsInContext(components AnswerComponents, answerCtx domain.AnswerContext) Outcome {
	limit := len(answerCtx.DocumentIDs)
	if limit == 0 {
		limit = len(answerCtx.Titles)
	}
	for _, citation := range components.Citations {
		if citation.Marker < 1 || citation.Marker > limit {
			return Outcome{
				Passed:  false,
				Message: fmt.Sprintf("citation %s references a document outside the provided context (%d available)", citation.Raw, limit),
			}
		}
	}
	return Outcome{Passed: true}
}

func checkBoldKeyFigures(components AnswerComponents, _ domain.AnswerContext) Outcome {
	figures := 0
	for _, p := range components.Paragraphs {
		for _, m := range numberPattern.FindAllString(p, -1) {
			if strings.ContainsAny(m, "0123456789") && len(strings.TrimSpace(m)) >= 3 {
				figures++
			}
		}
	}
	if figures >= 2 && len(components.BoldSpans) == 0 {
		return Outcome{
			Passed:  false,
			Message: "answer quotes figures but emphasizes none of them",
			Fixable: true,
		}
	}
	return Outcome{Passed: true}
}

func checkStructureMatchesProfile(components AnswerComponents, answerCtx domain.AnswerContext) Outcome {
	switch answerCtx.Profile {
	case domain.ProfileList:
		if len(components.ListItems) == 0 {
			return Outcome{Passed: false, Message: "list profile expects at least one list item", Fixable: true}
		}
	case domain.ProfileDeepAnalysis:
		if len(components.Headings) == 0 && len(components.Paragraphs) > 3 {
			return Outcome{Passed: false, Message: "long analysis lacks section headings", Fixable: true}
		}
	}
	return Outcome{Passed: true}
}

func checkParagraphLength(components AnswerComponents, _ domain.AnswerContext) Outcome {
	const maxParagraphChars = 1200
	for _, p := range components.Paragraphs {
		if len(p) > maxParagraphChars {
			return Outcome{
				Passed:  false,
				Message: fmt.Sprintf("paragraph exceeds %d characters", maxParagraphChars),
				Fixable: true,
			}
		}
	}
	return Outcome{Passed: true}
}

func checkPersonaLeak(components AnswerComponents, _ domain.AnswerContext) Outcome {
	lower := strings.ToLower(components.Raw)
	for _, phrase := range personaPhrases {
		if strings.Contains(lower, phrase) {
			return Outcome{Passed: false, Message: "answer leaks assistant persona: " + phrase}
		}
	}
	return Outcome{Passed: true}
}

// The answer must share vocabulary with the question or the retrieved
// context; a fully disjoint answer is treated as ungrounded.
func checkContextRelevance(components AnswerComponents, answerCtx domain.AnswerContext) Outcome {
	answerTokens := contentTokens(components.Raw)
	if len(answerTokens) == 0 {
		return Outcome{Passed: false, Message: "answer is empty"}
	}

	reference := contentTokens(answerCtx.Query)
	for _, chunk := range answerCtx.Chunks {
		for tok := range contentTokens(chunk.Text) {
			reference[tok] = struct{}{}
		}
	}
	if len(reference) == 0 {
		return Outcome{Passed: true}
	}

	for tok := range answerTokens {
		if _, ok := reference[tok]; ok {
			return Outcome{Passed: true}
		}
	}
	return Outcome{Passed: false, Message: "answer shares no content vocabulary with the question or retrieved context"}
}

func checkDuplicateContent(components AnswerComponents, _ domain.AnswerContext) Outcome {
	seen := make(map[string]struct{}, len(components.Paragraphs))
	segments := append(append([]string{}, components.Paragraphs...), components.ListItems...)
	for _, segment := range segments {
		normalized := strings.ToLower(strings.Join(strings.Fields(segment), " "))
		if len(normalized) < 40 {
			continue
		}
		if _, dup := seen[normalized]; dup {
			return Outcome{Passed: false, Message: "answer repeats an identical passage"}
		}
		seen[normalized] = struct{}{}
	}
	return Outcome{Passed: true}
}

func checkIntroPresent(components AnswerComponents, _ domain.AnswerContext) Outcome {
	first := components.FirstParagraph()
	if first == "" || len(components.Headings) > 0 && strings.HasPrefix(strings.TrimSpace(components.Raw), "#") {
		return Outcome{Passed: false, Message: "answer opens without an introductory paragraph"}
	}
	return Outcome{Passed: true}
}

var stopTokens = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "is": {}, "are": {}, "to": {}, "and": {},
	"o": {}, "os": {}, "de": {}, "em": {}, "e": {}, "um": {}, "uma": {},
	"el": {}, "la": {}, "los": {}, "las": {}, "en": {}, "y": {}, "un": {}, "una": {},
}

func contentTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?()[]*#\"'")
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopTokens[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}
