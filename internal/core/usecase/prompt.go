package usecase

import (
	"fmt"
	"strings"

	"github.com/askdocs/askdocs/internal/core/domain"
)

func buildSystemPrompt(profile domain.ResponseProfile, language string) string {
	var b strings.Builder
	b.WriteString("You answer questions strictly from the numbered document excerpts provided.\n")
	b.WriteString("Cite every factual claim with the excerpt number in square brackets, e.g. [1].\n")
	b.WriteString("If the excerpts are insufficient, say so directly instead of inventing content.\n")

	switch profile {
	case domain.ProfileList:
		b.WriteString("Format the answer as a concise bullet list.\n")
	case domain.ProfileComparison:
		b.WriteString("Structure the answer as a point-by-point comparison, covering each side before concluding.\n")
	case domain.ProfileDeepAnalysis:
		b.WriteString("Write a structured analysis with short section headings.\n")
	}

	switch language {
	case "pt":
		b.WriteString("Answer in Portuguese.\n")
	case "es":
		b.WriteString("Answer in Spanish.\n")
	}
	return b.String()
}

func buildUserPrompt(query string, sources []domain.Source, chunks []domain.TaggedChunk) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nExcerpts:\n")

	sourceIndex := make(map[string]int, len(sources))
	for i, src := range sources {
		sourceIndex[src.DocumentID] = i + 1
	}
	for _, chunk := range chunks {
		marker, ok := sourceIndex[chunk.DocumentID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "[%d] %s", marker, chunk.DocumentTitle)
		if chunk.Location != "" {
			fmt.Fprintf(&b, " (%s)", chunk.Location)
		}
		b.WriteString("\n")
		b.WriteString(chunk.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func buildRegeneratePrompt(query string, sources []domain.Source, chunks []domain.TaggedChunk, report domain.ValidationReport) string {
	var b strings.Builder
	b.WriteString(buildUserPrompt(query, sources, chunks))
	b.WriteString("The previous answer was rejected for these reasons; produce a corrected answer:\n")
	for _, failure := range report.Errors {
		b.WriteString("- ")
		b.WriteString(failure.Message)
		b.WriteString("\n")
	}
	for _, failure := range report.Fixable {
		b.WriteString("- ")
		b.WriteString(failure.Message)
		b.WriteString("\n")
	}
	return b.String()
}

// fallbackAnswer is the canned grounded reply used when regeneration still
// fails validation: it quotes the strongest excerpts rather than prose the
// model produced.
func fallbackAnswer(sources []domain.Source) string {
	var b strings.Builder
	b.WriteString("I could not produce a fully validated answer, but these are the most relevant excerpts from your documents:\n\n")
	for i, src := range sources {
		snippet := src.Content
		const maxSnippet = 300
		if len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet] + "..."
		}
		fmt.Fprintf(&b, "- %s [%d]: %s\n", src.DocumentTitle, i+1, snippet)
	}
	return b.String()
}
