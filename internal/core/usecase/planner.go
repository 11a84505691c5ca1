package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// PlannerConfig bounds decomposition output.
type PlannerConfig struct {
	MaxSubQuestions  int
	MinFragmentWords int
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		MaxSubQuestions:  6,
		MinFragmentWords: 3,
	}
}

// Planner decomposes a complex query into an ordered set of sub-questions.
type Planner struct {
	cfg PlannerConfig
}

func NewPlanner(cfg PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	if cfg.MaxSubQuestions < 2 {
		cfg.MaxSubQuestions = def.MaxSubQuestions
	}
	if cfg.MinFragmentWords <= 0 {
		cfg.MinFragmentWords = def.MinFragmentWords
	}
	return &Planner{cfg: cfg}
}

var (
	enumerationSplit = regexp.MustCompile(`(?m)(?:^|\s)(?:\d+[.)]\s+|[-*]\s+)`)
	comparisonJoin   = regexp.MustCompile(`\s+(?:and|e|y|versus|vs\.?)\s+`)
)

var comparisonLeads = []string{
	"compare", "compara", "comparar", "difference between", "diferenca entre", "diferencia entre",
}

// Plan builds a QueryPlan for the given query. A query that cannot be
// meaningfully split yields a single sub-question equal to the original
// query; callers must not special-case that shape.
func (p *Planner) Plan(query string, cls domain.Classification) (*domain.QueryPlan, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "plan query", fmt.Errorf("query text is empty"))
	}

	subs := p.decompose(trimmed, cls)
	if len(subs) > p.cfg.MaxSubQuestions {
		subs = subs[:p.cfg.MaxSubQuestions]
	}

	order, err := executionOrder(subs)
	if err != nil {
		return nil, err
	}

	return &domain.QueryPlan{
		SubQuestions:   subs,
		ExecutionOrder: order,
		Profile:        responseProfile(trimmed, cls, subs),
		Language:       cls.Language,
	}, nil
}

func (p *Planner) decompose(query string, cls domain.Classification) []domain.SubQuestion {
	if parts, ok := splitComparison(query); ok {
		subs := make([]domain.SubQuestion, 0, len(parts))
		for _, part := range parts {
			subs = append(subs, newSubQuestion(part, domain.QuestionComparison, nil))
		}
		return subs
	}

	fragments := p.fragments(query)
	if len(fragments) <= 1 {
		return []domain.SubQuestion{newSubQuestion(query, questionTypeOf(query), nil)}
	}

	subs := make([]domain.SubQuestion, 0, len(fragments))
	for _, frag := range fragments {
		var deps []string
		// An anaphoric fragment needs the previous sub-question's context.
		if len(subs) > 0 && hasAnaphor(frag) {
			deps = []string{subs[len(subs)-1].ID}
		}
		subs = append(subs, newSubQuestion(frag, questionTypeOf(frag), deps))
	}
	return subs
}

// fragments splits on sentence boundaries, enumeration markers and
// clause-level connectives, merging fragments too short to stand alone.
func (p *Planner) fragments(query string) []string {
	normalized := strings.ReplaceAll(query, "\n", " ")

	var raw []string
	for _, sentence := range strings.FieldsFunc(normalized, func(r rune) bool {
		return r == '?' || r == ';'
	}) {
		for _, part := range enumerationSplit.Split(sentence, -1) {
			for _, clause := range splitConnectives(part) {
				clause = strings.TrimSpace(clause)
				if clause != "" {
					raw = append(raw, clause)
				}
			}
		}
	}

	merged := make([]string, 0, len(raw))
	for _, frag := range raw {
		if len(strings.Fields(frag)) < p.cfg.MinFragmentWords && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + frag
			continue
		}
		merged = append(merged, frag)
	}
	return merged
}

var clauseConnectives = []string{
	" and also ", " as well as ", " e tambem ", " y tambien ", " and then ", " after that ",
}

func splitConnectives(s string) []string {
	parts := []string{s}
	lower := strings.ToLower(s)
	for _, conn := range clauseConnectives {
		if !strings.Contains(lower, conn) {
			continue
		}
		var next []string
		for _, part := range parts {
			idx := strings.Index(strings.ToLower(part), conn)
			if idx < 0 {
				next = append(next, part)
				continue
			}
			next = append(next, part[:idx], part[idx+len(conn):])
		}
		parts = next
	}
	return parts
}

// splitComparison turns "compare X and Y" into one sub-question per
// comparand by substituting each comparand into the shared stem.
func splitComparison(query string) ([]string, bool) {
	normalized := normalizeQuery(query)
	lead := ""
	for _, candidate := range comparisonLeads {
		if strings.Contains(normalized, candidate) {
			lead = candidate
			break
		}
	}
	if lead == "" {
		return nil, false
	}

	pieces := comparisonJoin.Split(query, 2)
	if len(pieces) != 2 {
		return nil, false
	}
	left := strings.TrimSpace(pieces[0])
	right := strings.TrimRight(strings.TrimSpace(pieces[1]), "?!. ")
	if left == "" || right == "" {
		return nil, false
	}

	leftWords := strings.Fields(left)
	if len(leftWords) < 2 {
		return nil, false
	}
	// The stem is the left clause minus its trailing comparand.
	stem := strings.Join(leftWords[:len(leftWords)-1], " ")
	return []string{left, stem + " " + right}, true
}

func newSubQuestion(text string, qt domain.QuestionType, deps []string) domain.SubQuestion {
	return domain.SubQuestion{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(text),
		Type:      qt,
		DependsOn: deps,
	}
}

func questionTypeOf(text string) domain.QuestionType {
	normalized := normalizeQuery(text)
	switch {
	case containsAny(normalized, "compare", "versus", "difference", "compara", "diferenca", "diferencia"):
		return domain.QuestionComparison
	case containsAny(normalized, "what is", "what are", "define", "meaning of", "o que e", "que es", "definicao", "definicion"):
		return domain.QuestionDefinition
	case containsAny(normalized, "how do", "how to", "steps", "como fazer", "como hacer", "passo", "paso"):
		return domain.QuestionProcedural
	case containsAny(normalized, "where is", "find the file", "which folder", "onde esta", "donde esta"):
		return domain.QuestionNavigational
	default:
		return domain.QuestionFactual
	}
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

var anaphors = map[string]struct{}{
	"it": {}, "that": {}, "this": {}, "those": {}, "them": {},
	"isso": {}, "esse": {}, "essa": {}, "eso": {}, "esto": {}, "ese": {},
}

func hasAnaphor(fragment string) bool {
	for _, tok := range tokenizeLetters(normalizeQuery(fragment)) {
		if _, ok := anaphors[tok]; ok {
			return true
		}
	}
	return false
}

func responseProfile(query string, cls domain.Classification, subs []domain.SubQuestion) domain.ResponseProfile {
	if cls.Intent == domain.IntentComparison {
		return domain.ProfileComparison
	}
	for _, sq := range subs {
		if sq.Type == domain.QuestionComparison {
			return domain.ProfileComparison
		}
	}
	if containsAny(normalizeQuery(query), "list", "enumerate", "liste", "listar", "enumera") {
		return domain.ProfileList
	}
	return domain.ProfileDeepAnalysis
}

// executionOrder is a stable topological ordering over DependsOn.
// Sub-questions with no dependency keep declaration order; a dependency
// cycle or a reference to an unknown sibling rejects the plan.
func executionOrder(subs []domain.SubQuestion) ([]string, error) {
	known := make(map[string]int, len(subs))
	for i, sq := range subs {
		known[sq.ID] = i
	}

	remainingDeps := make(map[string]int, len(subs))
	dependents := make(map[string][]string, len(subs))
	for _, sq := range subs {
		for _, dep := range sq.DependsOn {
			if _, ok := known[dep]; !ok {
				return nil, domain.WrapError(domain.ErrInvalidInput, "order plan",
					fmt.Errorf("sub-question %s depends on unknown id %s", sq.ID, dep))
			}
			remainingDeps[sq.ID]++
			dependents[dep] = append(dependents[dep], sq.ID)
		}
	}

	order := make([]string, 0, len(subs))
	ready := make([]string, 0, len(subs))
	for _, sq := range subs {
		if remainingDeps[sq.ID] == 0 {
			ready = append(ready, sq.ID)
		}
	}

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dependent := range dependents[id] {
			remainingDeps[dependent]--
			if remainingDeps[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(subs) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "order plan",
			fmt.Errorf("dependency cycle among sub-questions"))
	}
	return order, nil
}
