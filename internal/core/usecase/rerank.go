package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/askdocs/askdocs/internal/core/domain"
	"github.com/askdocs/askdocs/internal/core/ports"
)

// RerankClass selects the per-query-type reranking policy.
type RerankClass string

const (
	RerankSpecific   RerankClass = "specific"
	RerankGeneral    RerankClass = "general"
	RerankComparison RerankClass = "comparison"
	RerankDefault    RerankClass = "default"
)

// Skip reasons reported to logs and metrics.
const (
	rerankSkipDisabled = "disabled"
	rerankSkipTooFew   = "too_few_candidates"
	rerankSkipCost     = "cost_threshold"
	rerankSkipFailure  = "service_failure"
	rerankApplied      = "applied"
)

// RerankPolicy bounds one query type's second-pass scoring.
type RerankPolicy struct {
	MaxCandidates int
	MinCandidates int
	CostThreshold float64
}

type RerankConfig struct {
	Enabled bool
	// Estimated service cost in USD per 1000 characters of candidate text.
	CostPerKiloChar float64
	// Skipped candidates keep fusedScore * PenaltyFactor so reranked
	// results are never outranked by skipped ones on tie.
	PenaltyFactor float64
	Policies      map[RerankClass]RerankPolicy
}

func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Enabled:         true,
		CostPerKiloChar: 0.001,
		PenaltyFactor:   0.5,
		Policies: map[RerankClass]RerankPolicy{
			RerankSpecific:   {MaxCandidates: 8, MinCandidates: 4, CostThreshold: 0.02},
			RerankGeneral:    {MaxCandidates: 12, MinCandidates: 6, CostThreshold: 0.04},
			RerankComparison: {MaxCandidates: 16, MinCandidates: 6, CostThreshold: 0.06},
			RerankDefault:    {MaxCandidates: 10, MinCandidates: 5, CostThreshold: 0.03},
		},
	}
}

func (c RerankConfig) policyFor(class RerankClass) RerankPolicy {
	if policy, ok := c.Policies[class]; ok {
		return policy
	}
	if policy, ok := c.Policies[RerankDefault]; ok {
		return policy
	}
	return DefaultRerankConfig().Policies[RerankDefault]
}

// SelectiveReranker bounds second-pass scoring to a prefix of the fused
// candidate list and treats the decision as per-query-type policy.
type SelectiveReranker struct {
	client ports.Reranker
	cfg    RerankConfig
	log    *slog.Logger
}

func NewSelectiveReranker(client ports.Reranker, cfg RerankConfig, log *slog.Logger) *SelectiveReranker {
	if cfg.PenaltyFactor <= 0 || cfg.PenaltyFactor >= 1 {
		cfg.PenaltyFactor = DefaultRerankConfig().PenaltyFactor
	}
	if cfg.CostPerKiloChar <= 0 {
		cfg.CostPerKiloChar = DefaultRerankConfig().CostPerKiloChar
	}
	if len(cfg.Policies) == 0 {
		cfg.Policies = DefaultRerankConfig().Policies
	}
	if log == nil {
		log = slog.Default()
	}
	return &SelectiveReranker{client: client, cfg: cfg, log: log}
}

// Apply returns the candidates in final order plus the outcome label.
// Candidates must arrive sorted descending by fused score; any skip path
// preserves that order exactly.
func (r *SelectiveReranker) Apply(
	ctx context.Context,
	class RerankClass,
	query string,
	fused []domain.RetrievedChunk,
) ([]domain.RetrievedChunk, string) {
	if !r.cfg.Enabled || r.client == nil {
		return fused, rerankSkipDisabled
	}
	policy := r.cfg.policyFor(class)
	if len(fused) < policy.MinCandidates {
		return fused, rerankSkipTooFew
	}

	head := fused
	if policy.MaxCandidates > 0 && len(head) > policy.MaxCandidates {
		head = fused[:policy.MaxCandidates]
	}

	if cost := r.estimateCost(head); cost > policy.CostThreshold {
		r.log.Debug("rerank_skipped",
			"reason", rerankSkipCost,
			"class", string(class),
			"estimated_cost", cost,
			"threshold", policy.CostThreshold,
		)
		return fused, rerankSkipCost
	}

	documents := make([]string, len(head))
	for i, chunk := range head {
		documents[i] = chunk.Text
	}

	results, err := r.client.Rerank(ctx, query, documents)
	if err != nil {
		r.log.Warn("rerank_failed", "class", string(class), "error", err)
		return fused, rerankSkipFailure
	}

	out := make([]domain.RetrievedChunk, 0, len(fused))
	seen := make(map[int]struct{}, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(head) {
			continue
		}
		if _, dup := seen[res.Index]; dup {
			continue
		}
		seen[res.Index] = struct{}{}
		chunk := head[res.Index]
		chunk.Score = res.RelevanceScore
		out = append(out, chunk)
	}
	// Entries the service dropped keep fusion order behind the scored head.
	for i, chunk := range head {
		if _, ok := seen[i]; !ok {
			chunk.Score *= r.cfg.PenaltyFactor
			out = append(out, chunk)
		}
	}
	for _, chunk := range fused[len(head):] {
		chunk.Score *= r.cfg.PenaltyFactor
		out = append(out, chunk)
	}

	sort.SliceStable(out[:len(head)], func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, rerankApplied
}

func (r *SelectiveReranker) estimateCost(candidates []domain.RetrievedChunk) float64 {
	totalChars := 0
	for _, chunk := range candidates {
		totalChars += len(chunk.Text)
	}
	return float64(totalChars) / 1000.0 * r.cfg.CostPerKiloChar
}

// RerankClassFor maps a sub-question type to its rerank policy class.
func RerankClassFor(qt domain.QuestionType) RerankClass {
	switch qt {
	case domain.QuestionComparison:
		return RerankComparison
	case domain.QuestionFactual, domain.QuestionNavigational:
		return RerankSpecific
	case domain.QuestionDefinition, domain.QuestionProcedural:
		return RerankGeneral
	default:
		return RerankDefault
	}
}

// boostByMetadata applies the auxiliary chunk-type- and micro-summary-aware
// adjustment when retrieved chunks carry that metadata. The fused score is
// normalized and blended with query overlap against the micro summary and
// the document title.
func boostByMetadata(query string, chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	carriesMetadata := false
	for _, chunk := range chunks {
		if chunk.ChunkType != "" || chunk.MicroSummary != "" {
			carriesMetadata = true
			break
		}
	}
	if !carriesMetadata || len(chunks) == 0 {
		return chunks
	}

	queryTokens := toTokenSet(query)
	minScore, maxScore := chunks[0].Score, chunks[0].Score
	for _, chunk := range chunks[1:] {
		if chunk.Score < minScore {
			minScore = chunk.Score
		}
		if chunk.Score > maxScore {
			maxScore = chunk.Score
		}
	}
	scoreRange := maxScore - minScore
	normalize := func(v float64) float64 {
		if scoreRange <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / scoreRange
	}

	out := make([]domain.RetrievedChunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		summarySource := out[i].MicroSummary
		if summarySource == "" {
			summarySource = out[i].Text
		}
		overlap := tokenOverlap(queryTokens, toTokenSet(summarySource))
		titleHit := tokenOverlap(queryTokens, toTokenSet(out[i].DocumentTitle))
		out[i].Score = 0.60*normalize(out[i].Score) + 0.30*overlap + 0.10*titleHit
	}
	sortChunks(out)
	return out
}
