package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// IntentPatterns maps one intent to its multilingual keyword set. Lower
// Priority wins ties.
type IntentPatterns struct {
	Intent   domain.Intent
	Priority int
	Keywords []string
	Phrases  []string
}

// ClassifierConfig is the pattern table loaded once at startup and injected
// into the classifier; there is no ambient/global copy.
type ClassifierConfig struct {
	Intents           []IntentPatterns
	ComplexityMarkers []string
	EnumerationMarks  []string
	MinComplexWords   int
}

// DefaultClassifierConfig covers English, Portuguese and Spanish queries.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Intents: []IntentPatterns{
			{
				Intent:   domain.IntentComparison,
				Priority: 1,
				Keywords: []string{"compare", "versus", "vs", "difference", "compara", "comparar", "diferenca", "diferencia"},
				Phrases:  []string{"compared to", "em comparacao", "en comparacion"},
			},
			{
				Intent:   domain.IntentSummary,
				Priority: 2,
				Keywords: []string{"summarize", "summary", "overview", "resuma", "resumo", "resumir", "resumen"},
				Phrases:  []string{"sum up", "de forma resumida", "en resumen"},
			},
			{
				Intent:   domain.IntentNavigation,
				Priority: 3,
				Keywords: []string{"file", "folder", "arquivo", "pasta", "archivo", "carpeta"},
				Phrases:  []string{"where is", "find the file", "list all files", "onde esta", "donde esta"},
			},
			{
				Intent:   domain.IntentChitChat,
				Priority: 5,
				Keywords: []string{"hello", "hi", "thanks", "ola", "obrigado", "hola", "gracias"},
				Phrases:  []string{"how are you", "como vai", "como estas"},
			},
			{
				Intent:   domain.IntentDocumentQA,
				Priority: 4,
				Keywords: []string{"what", "when", "who", "how", "why", "qual", "quando", "quem", "como", "que", "cuando", "quien"},
			},
		},
		ComplexityMarkers: []string{
			"compare", "versus", "vs", "compara", "comparar",
			"and also", "as well as", "e tambem", "y tambien",
			"first", "then", "after that", "primeiro", "depois", "primero", "luego",
			"both", "ambos", "ambas",
		},
		EnumerationMarks: []string{"1.", "2.", "3.", "1)", "2)", "3)", "- "},
		MinComplexWords:  6,
	}
}

// QueryClassifier decides whether a query is simple or complex and assigns
// a coarse intent. Pure function of the text and the injected table.
type QueryClassifier struct {
	cfg ClassifierConfig
}

func NewQueryClassifier(cfg ClassifierConfig) *QueryClassifier {
	if len(cfg.Intents) == 0 {
		cfg = DefaultClassifierConfig()
	}
	if cfg.MinComplexWords <= 0 {
		cfg.MinComplexWords = DefaultClassifierConfig().MinComplexWords
	}
	return &QueryClassifier{cfg: cfg}
}

// Classify never fails: malformed or empty input yields the neutral
// unknown classification, which callers treat as simple.
func (c *QueryClassifier) Classify(text string) domain.Classification {
	normalized := normalizeQuery(text)
	tokens := tokenizeLetters(normalized)
	if len(tokens) == 0 {
		return domain.Classification{
			Complexity: domain.ComplexityUnknown,
			Intent:     domain.IntentUnknown,
		}
	}

	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}

	intent := c.scoreIntents(normalized, tokenSet)
	complexity := c.scoreComplexity(normalized, tokens)

	return domain.Classification{
		Complexity: complexity,
		Intent:     intent,
		Language:   detectLanguage(tokenSet),
	}
}

// scoreIntents maps hit counts through log1p so repeated keyword hits
// saturate instead of dominating. Ties break on pattern priority.
func (c *QueryClassifier) scoreIntents(normalized string, tokenSet map[string]struct{}) domain.Intent {
	type scored struct {
		intent   domain.Intent
		priority int
		score    float64
	}

	results := make([]scored, 0, len(c.cfg.Intents))
	for _, set := range c.cfg.Intents {
		hits := 0
		for _, kw := range set.Keywords {
			if _, ok := tokenSet[kw]; ok {
				hits++
			}
		}
		for _, phrase := range set.Phrases {
			hits += strings.Count(normalized, phrase)
		}
		if hits == 0 {
			continue
		}
		results = append(results, scored{
			intent:   set.Intent,
			priority: set.Priority,
			score:    math.Log1p(float64(hits)),
		})
	}
	if len(results) == 0 {
		return domain.IntentDocumentQA
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].priority < results[j].priority
	})
	return results[0].intent
}

func (c *QueryClassifier) scoreComplexity(normalized string, tokens []string) domain.QueryComplexity {
	markers := 0
	for _, m := range c.cfg.ComplexityMarkers {
		markers += strings.Count(normalized, m)
	}
	for _, m := range c.cfg.EnumerationMarks {
		if strings.Contains(normalized, m) {
			markers++
		}
	}
	questionMarks := strings.Count(normalized, "?")
	conjunctions := countConjunctions(tokens)

	switch {
	case markers >= 2, questionMarks >= 2:
		return domain.ComplexityComplex
	case markers >= 1 && len(tokens) >= c.cfg.MinComplexWords:
		return domain.ComplexityComplex
	case conjunctions >= 2 && len(tokens) >= c.cfg.MinComplexWords*2:
		return domain.ComplexityComplex
	default:
		return domain.ComplexitySimple
	}
}

func countConjunctions(tokens []string) int {
	n := 0
	for _, tok := range tokens {
		switch tok {
		case "and", "e", "y":
			n++
		}
	}
	return n
}

var languageMarkers = map[string][]string{
	"pt": {"o", "a", "os", "as", "de", "do", "da", "em", "que", "onde", "qual", "como", "nao", "um", "uma"},
	"es": {"el", "la", "los", "las", "de", "del", "en", "que", "donde", "cual", "como", "no", "un", "una"},
	"en": {"the", "a", "an", "of", "in", "is", "what", "where", "which", "how", "not"},
}

func detectLanguage(tokenSet map[string]struct{}) string {
	best, bestHits := "", 0
	for _, lang := range []string{"en", "pt", "es"} {
		hits := 0
		for _, marker := range languageMarkers[lang] {
			if _, ok := tokenSet[marker]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	if best == "" {
		return "en"
	}
	return best
}
