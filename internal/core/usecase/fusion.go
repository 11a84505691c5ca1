package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/askdocs/askdocs/internal/core/domain"
)

const defaultRRFK = 60

var (
	cellRefPattern   = regexp.MustCompile(`\b[a-z]{1,3}[0-9]{1,5}\b`)
	alphaCodePattern = regexp.MustCompile(`\b[a-z]{2,}[-_]?[0-9]{2,}\b`)
)

var entityKeywords = []string{
	"cell", "row", "column", "sheet", "page", "slide", "tab",
	"celula", "linha", "coluna", "planilha", "pagina",
	"celda", "fila", "columna", "hoja", "diapositiva",
}

var navigationalPhrases = []string{
	"where is", "find the file", "file named", "list all files", "which folder",
	"onde esta", "qual pasta", "arquivo chamado",
	"donde esta", "que carpeta", "archivo llamado",
}

var semanticKeywords = []string{
	"explain", "summarize", "summary", "about", "compare", "describe", "why",
	"explique", "resuma", "resumo", "sobre", "compara", "descreva", "por que",
	"explica", "resume", "resumen", "acerca", "describe", "porque",
}

// weightRule is one step of the ordered first-match-wins cascade.
type weightRule struct {
	class   domain.SignalClass
	match   func(string) bool
	weights domain.FusionWeights
}

var weightCascade = []weightRule{
	{
		// Exact-token queries are hurt by semantic blurring.
		class: domain.SignalEntity,
		match: func(q string) bool {
			if cellRefPattern.MatchString(q) || alphaCodePattern.MatchString(q) {
				return true
			}
			tokens := toTokenSet(q)
			for _, kw := range entityKeywords {
				if _, ok := tokens[kw]; ok {
					return true
				}
			}
			return false
		},
		weights: domain.FusionWeights{Lexical: 2.0, Vector: 0.5, Title: 1.0},
	},
	{
		// The answer is a filename match, not passage content.
		class: domain.SignalNavigational,
		match: func(q string) bool {
			return containsAny(q, navigationalPhrases...)
		},
		weights: domain.FusionWeights{Lexical: 1.0, Vector: 0.5, Title: 2.5},
	},
	{
		class: domain.SignalSemantic,
		match: func(q string) bool {
			tokens := toTokenSet(q)
			for _, kw := range semanticKeywords {
				if strings.Contains(kw, " ") {
					if strings.Contains(q, kw) {
						return true
					}
					continue
				}
				if _, ok := tokens[kw]; ok {
					return true
				}
			}
			return false
		},
		weights: domain.FusionWeights{Lexical: 0.5, Vector: 2.0, Title: 1.0},
	},
}

var hybridWeights = domain.FusionWeights{Lexical: 1.0, Vector: 1.0, Title: 1.5}

// SelectFusionWeights picks relative signal weights for a (sub-)query.
// Pure function of the query text; the cascade is evaluated in priority
// order and the first matching class wins.
func SelectFusionWeights(query string) (domain.SignalClass, domain.FusionWeights) {
	normalized := normalizeQuery(query)
	for _, rule := range weightCascade {
		if rule.match(normalized) {
			return rule.class, rule.weights
		}
	}
	return domain.SignalHybrid, hybridWeights
}

type fusedCandidate struct {
	chunk domain.RetrievedChunk
	score float64
}

// fuseWeightedRRF combines per-signal rankings into one fused score per
// chunk. Each signal's reciprocal-rank contribution is multiplied by its
// weight before summation.
func fuseWeightedRRF(dense, lexical, title []domain.RetrievedChunk, w domain.FusionWeights, rrfK int) []domain.RetrievedChunk {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(lexical)+len(title))
	addRanking := func(chunks []domain.RetrievedChunk, weight float64) {
		if weight <= 0 {
			return
		}
		for rank, chunk := range chunks {
			key := chunkKey(chunk)
			candidate := acc[key]
			candidate.chunk = preferRicherChunk(candidate.chunk, chunk)
			candidate.score += weight / float64(rrfK+rank+1)
			acc[key] = candidate
		}
	}

	addRanking(dense, w.Vector)
	addRanking(lexical, w.Lexical)
	addRanking(title, w.Title)

	out := make([]domain.RetrievedChunk, 0, len(acc))
	for _, c := range acc {
		chunk := c.chunk
		chunk.Score = c.score
		out = append(out, chunk)
	}
	sortChunks(out)
	return out
}

// rankByTitleMatch orders candidates whose document title overlaps the
// query, strongest overlap first. This is the title retrieval signal; it
// draws from the union of the other signals' candidates.
func rankByTitleMatch(query string, candidates []domain.RetrievedChunk) []domain.RetrievedChunk {
	queryTokens := toTokenSet(query)
	type titled struct {
		chunk   domain.RetrievedChunk
		overlap float64
	}

	seen := make(map[string]struct{}, len(candidates))
	ranked := make([]titled, 0, len(candidates))
	for _, chunk := range candidates {
		key := chunkKey(chunk)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		overlap := tokenOverlap(queryTokens, toTokenSet(chunk.DocumentTitle))
		if overlap <= 0 {
			continue
		}
		ranked = append(ranked, titled{chunk: chunk, overlap: overlap})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overlap != ranked[j].overlap {
			return ranked[i].overlap > ranked[j].overlap
		}
		return ranked[i].chunk.Score > ranked[j].chunk.Score
	})

	out := make([]domain.RetrievedChunk, 0, len(ranked))
	for _, t := range ranked {
		out = append(out, t.chunk)
	}
	return out
}

func chunkKey(chunk domain.RetrievedChunk) string {
	if chunk.ChunkID != "" {
		return chunk.ChunkID
	}
	return fmt.Sprintf("%s|%s|%s", chunk.DocumentID, chunk.Location, chunk.Text)
}

func preferRicherChunk(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if current.ChunkID == "" && current.DocumentID == "" && current.Text == "" {
		return candidate
	}
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.DocumentTitle == "" && candidate.DocumentTitle != "" {
		current.DocumentTitle = candidate.DocumentTitle
	}
	if current.ChunkType == "" && candidate.ChunkType != "" {
		current.ChunkType = candidate.ChunkType
	}
	if current.MicroSummary == "" && candidate.MicroSummary != "" {
		current.MicroSummary = candidate.MicroSummary
	}
	if current.Location == "" && candidate.Location != "" {
		current.Location = candidate.Location
	}
	return current
}

func sortChunks(chunks []domain.RetrievedChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
}
